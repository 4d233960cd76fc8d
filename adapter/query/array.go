package query

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/gemongo/pkg/scope"
)

// Array reads the items of an array or a set.
type Array struct {
	node
	namer *scope.Namer
}

// Length reads the number of items.
func (a *Array) Length() *Length {
	return &Length{node: a.node, operator: "$size"}
}

// First reads the first item. It is missing for empty arrays.
func (a *Array) First() *Value { return a.item(op("$first", a.path)) }

// Last reads the last item.
func (a *Array) Last() *Value { return a.item(op("$last", a.path)) }

// At reads the item at index i. Negative indexes count from the end.
func (a *Array) At(i int) *Value {
	return a.item(op("$arrayElemAt", bson.A{a.path, literal(i)}))
}

func (a *Array) item(expr bson.D) *Value {
	return &Value{node: a.bind(a.namer, expr), namer: a.namer}
}
