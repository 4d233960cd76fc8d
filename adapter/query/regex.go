package query

import "go.mongodb.org/mongo-driver/bson/primitive"

// Regex reads a regular expression node. Two expressions are equal when both
// the pattern and the options are.
type Regex struct {
	node
}

// Equal matches expressions with the same pattern and options as v.
func (r *Regex) Equal(v primitive.Regex) *Match { return r.compare(Equal, v) }

// NotEqual matches expressions that differ from v in pattern or options.
func (r *Regex) NotEqual(v primitive.Regex) *Match { return r.compare(NotEqual, v) }
