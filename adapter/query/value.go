package query

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/gemongo/domain"
	"github.com/vinicius-lino-figueiredo/gemongo/pkg/scope"
)

// Value reads a node of any kind.
type Value struct {
	node
	namer *scope.Namer
}

// Nullish matches missing values and nulls.
func (v *Value) Nullish() *Match {
	v.slot.set(op("$or", bson.A{
		eq(op("$type", v.path), "missing"),
		eq(v.path, nil),
		eq(field(v.path, "type"), kindTag(domain.KindNull)),
	}))
	return v.match()
}

// TypeOf matches values of the given kind. With resolveReference set, a
// reference matches if the slot it points to has that kind.
func (v *Value) TypeOf(kind domain.Kind, resolveReference bool) *Match {
	typ := field(v.path, "type")
	if !resolveReference {
		v.slot.set(eq(typ, literal(kindTag(kind))))
		return v.match()
	}
	name := v.namer.Next()
	v.slot.set(cond(
		op("$or", bson.A{
			eq(typ, literal(kindTag(kind))),
			eq(typ, kindTag(domain.KindReference)),
		}),
		let(name, v.dereference(), eq(field(variable(name), "type"), literal(kindTag(kind)))),
		false,
	))
	return v.match()
}

// Bool reads the value as a boolean.
func (v *Value) Bool() *Bool {
	return &Bool{node: v.leaf(domain.KindBool, "bool")}
}

// Number reads the value as a float.
func (v *Value) Number() *Number {
	return &Number{node: v.leaf(domain.KindNumber, "num")}
}

// Integer reads the value as a 64-bit integer.
func (v *Value) Integer() *Integer {
	return &Integer{node: v.leaf(domain.KindInteger64, "big")}
}

// String reads the value as a string.
func (v *Value) String() *String {
	return &String{node: v.leaf(domain.KindString, "str")}
}

// Date reads the value as a date.
func (v *Value) Date() *Date {
	return &Date{node: v.leaf(domain.KindDate, "date"), namer: v.namer}
}

// Regex reads the value as a regular expression.
func (v *Value) Regex() *Regex {
	return &Regex{node: v.leaf(domain.KindRegex, "regex")}
}

// ByteLength reads the length of a binary value.
func (v *Value) ByteLength() *Length {
	n := v.resolve(domain.KindBytes, "buf")
	return &Length{node: n, operator: "$binarySize"}
}

// Array reads the value as an array.
func (v *Value) Array() *Array {
	return &Array{node: v.resolve(domain.KindArray, "arr"), namer: v.namer}
}

// Set reads the value as a set.
func (v *Value) Set() *Array {
	return &Array{node: v.resolve(domain.KindSet, "set"), namer: v.namer}
}

// ObjGet reads a field of an object.
func (v *Value) ObjGet(key string) (*Value, error) {
	return v.get(domain.KindObject, "obj", key)
}

// MapGet reads an entry of a map.
func (v *Value) MapGet(key string) (*Value, error) {
	return v.get(domain.KindMap, "map", key)
}

// MustObjGet is like [Value.ObjGet] but panics if key is invalid. It is meant
// for literal keys.
func (v *Value) MustObjGet(key string) *Value {
	return must(v.ObjGet(key))
}

// MustMapGet is like [Value.MapGet] but panics if key is invalid.
func (v *Value) MustMapGet(key string) *Value {
	return must(v.MapGet(key))
}

// Clone returns a copy of v over a deep copy of its tree. The copy has a new
// empty slot in place of v's, so v and its copy can end in different
// operations.
func (v *Value) Clone() *Value {
	c := newCloner()
	fresh := new(slot)
	c.slots[v.slot] = fresh
	return &Value{
		node:  node{path: v.path, slot: fresh, tree: c.tree(v.tree)},
		namer: v.namer,
	}
}

func (v *Value) get(kind domain.Kind, name, key string) (*Value, error) {
	// empty keys would render as an invalid field path
	if key == "" || !domain.ValidKey(key) {
		return nil, domain.ErrInvalidKey{Key: key}
	}
	container := v.resolve(kind, name)
	child := container.bind(v.namer, field(container.path, key))
	return &Value{node: child, namer: v.namer}, nil
}

// leaf writes {$cond: [{$eq: [path.type, kind]}, <new slot>, false]}.
func (v *Value) leaf(kind domain.Kind, name string) node {
	child := node{path: field(v.path, name), slot: new(slot), tree: v.tree}
	v.slot.set(cond(eq(field(v.path, "type"), kindTag(kind)), child.slot, false))
	return child
}

// resolve binds the node, following it to the table when it is a reference,
// and makes everything below it depend on the bound node having the given
// kind.
func (v *Value) resolve(kind domain.Kind, name string) node {
	bound := v.namer.Next()
	child := node{path: field(variable(bound), name), slot: new(slot), tree: v.tree}
	v.slot.set(let(bound, v.dereference(),
		cond(eq(field(variable(bound), "type"), kindTag(kind)), child.slot, false),
	))
	return child
}

func (v *Value) dereference() bson.D {
	return cond(
		eq(field(v.path, "type"), kindTag(domain.KindReference)),
		op("$arrayElemAt", bson.A{"$refs", field(v.path, "ref")}),
		v.path,
	)
}

func must(v *Value, err error) *Value {
	if err != nil {
		panic(err)
	}
	return v
}
