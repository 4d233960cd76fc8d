// Package query compiles typed navigation over encoded documents into
// aggregation expressions that a document store evaluates server side.
//
// Every builder writes into a slot of a shared expression tree and returns a
// builder for the slot it created, so a chain such as
//
//	f.Data().MustObjGet("age").Integer().GreaterThan(18)
//
// produces a single {$expr: ...} filter. Stored values that do not have the
// expected kind make the expression evaluate to false instead of failing.
package query

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/gemongo/pkg/scope"
)

// Filter is the entry point of every query.
type Filter struct{}

// New returns a new Filter.
func New() *Filter {
	return &Filter{}
}

// Key starts a tree over the document key.
func (f *Filter) Key() *String {
	t := newTree()
	return &String{node: node{path: "$key", slot: t.root, tree: t}}
}

// Data starts a tree over the document value.
func (f *Filter) Data() *Value {
	t := newTree()
	return &Value{
		node:  node{path: "$data", slot: t.root, tree: t},
		namer: scope.New(),
	}
}

// node is the state shared by every builder: the path it reads, the slot it
// writes and the tree it belongs to.
type node struct {
	path string
	slot *slot
	tree *tree
}

func (n node) match() *Match {
	return newMatch(n.tree)
}

// compare writes {op: [path, {$literal: operand}]}.
func (n node) compare(o Operator, operand any) *Match {
	o.check()
	n.slot.set(op(string(o), bson.A{n.path, literal(operand)}))
	return n.match()
}

// bind writes {$let: {vars: {name: value}, in: <new slot>}} and returns the
// node reading the new variable.
func (n node) bind(namer *scope.Namer, value any) node {
	name := namer.Next()
	child := node{path: variable(name), slot: new(slot), tree: n.tree}
	n.slot.set(let(name, value, child.slot))
	return child
}
