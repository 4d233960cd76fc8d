package query

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/gemongo/domain"
)

// slot is a hole in an expression tree, filled by the operation called on the
// builder that owns it. A slot that was never filled renders as an empty
// document.
type slot struct {
	value bson.D
}

func (s *slot) set(d bson.D) { s.value = d }

// tree is a filter rooted at {$expr: root}. Every builder derived from the
// same root shares the tree and writes into its own slot.
type tree struct {
	root *slot
}

func newTree() *tree {
	return &tree{root: new(slot)}
}

// filter renders the tree, replacing every slot by its content.
func (t *tree) filter() bson.D {
	return bson.D{{Key: "$expr", Value: render(t.root)}}
}

func render(v any) any {
	switch t := v.(type) {
	case *slot:
		if t.value == nil {
			return bson.D{}
		}
		return render(t.value)
	case bson.D:
		res := make(bson.D, len(t))
		for n, e := range t {
			res[n] = bson.E{Key: e.Key, Value: render(e.Value)}
		}
		return res
	case bson.A:
		res := make(bson.A, len(t))
		for n, e := range t {
			res[n] = render(e)
		}
		return res
	default:
		return t
	}
}

// cloner deep copies trees and matches. Slots, trees and matches reached more
// than once are copied once, so sharing inside the copy mirrors the original.
type cloner struct {
	slots   map[*slot]*slot
	trees   map[*tree]*tree
	matches map[*Match]*Match
}

func newCloner() *cloner {
	return &cloner{
		slots:   make(map[*slot]*slot),
		trees:   make(map[*tree]*tree),
		matches: make(map[*Match]*Match),
	}
}

func (c *cloner) tree(t *tree) *tree {
	if res, ok := c.trees[t]; ok {
		return res
	}
	res := &tree{}
	c.trees[t] = res
	res.root = c.slot(t.root)
	return res
}

func (c *cloner) slot(s *slot) *slot {
	if res, ok := c.slots[s]; ok {
		return res
	}
	res := new(slot)
	c.slots[s] = res
	if s.value != nil {
		res.value = c.value(s.value).(bson.D)
	}
	return res
}

func (c *cloner) value(v any) any {
	switch t := v.(type) {
	case *slot:
		return c.slot(t)
	case bson.D:
		res := make(bson.D, len(t))
		for n, e := range t {
			res[n] = bson.E{Key: e.Key, Value: c.value(e.Value)}
		}
		return res
	case bson.A:
		res := make(bson.A, len(t))
		for n, e := range t {
			res[n] = c.value(e)
		}
		return res
	default:
		return t
	}
}

// literal wraps a caller supplied value so the store never reads it as an
// operator.
func literal(v any) bson.D {
	return bson.D{{Key: "$literal", Value: v}}
}

func op(name string, args any) bson.D {
	return bson.D{{Key: name, Value: args}}
}

func eq(a, b any) bson.D {
	return op("$eq", bson.A{a, b})
}

func cond(test, then, otherwise any) bson.D {
	return op("$cond", bson.A{test, then, otherwise})
}

func let(name string, value any, in any) bson.D {
	return op("$let", bson.D{
		{Key: "vars", Value: bson.D{{Key: name, Value: value}}},
		{Key: "in", Value: in},
	})
}

func kindTag(k domain.Kind) int32 {
	return int32(k)
}

func variable(name string) string {
	return "$$" + name
}

func field(path string, name string) string {
	return path + "." + name
}
