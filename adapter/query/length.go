package query

import "go.mongodb.org/mongo-driver/bson"

// Length reads the size of a node through operator, such as $size or
// $strLenCP.
type Length struct {
	node
	operator string
}

// Compare writes {o: [{operator: path}, {$literal: v}]}. It panics with
// [ErrInvalidOperator] if o is not a comparison operator.
func (l *Length) Compare(o Operator, v int) *Match {
	o.check()
	l.slot.set(op(string(o), bson.A{op(l.operator, l.path), literal(v)}))
	return l.match()
}

// Equal matches lengths equal to v.
func (l *Length) Equal(v int) *Match { return l.Compare(Equal, v) }

// NotEqual matches lengths different from v.
func (l *Length) NotEqual(v int) *Match { return l.Compare(NotEqual, v) }

// GreaterThan matches lengths greater than v.
func (l *Length) GreaterThan(v int) *Match { return l.Compare(GreaterThan, v) }

// GreaterThanEqual matches lengths greater than or equal to v.
func (l *Length) GreaterThanEqual(v int) *Match { return l.Compare(GreaterThanEqual, v) }

// LessThan matches lengths less than v.
func (l *Length) LessThan(v int) *Match { return l.Compare(LessThan, v) }

// LessThanEqual matches lengths less than or equal to v.
func (l *Length) LessThanEqual(v int) *Match { return l.Compare(LessThanEqual, v) }
