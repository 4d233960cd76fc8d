// Package encoder contains the default [domain.Encoder] implementation.
package encoder

import (
	"math/big"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-reflect"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/gemongo/adapter/keygen"
	"github.com/vinicius-lino-figueiredo/gemongo/domain"
	"github.com/vinicius-lino-figueiredo/gemongo/pkg/structure"
)

// Encoder implements [domain.Encoder]. It holds only configuration, so a
// single instance can be shared between goroutines.
type Encoder struct {
	tagName      string
	keyGenerator domain.KeyGenerator
}

// NewEncoder returns a new implementation of [domain.Encoder].
func NewEncoder(opts ...Option) domain.Encoder {
	e := Encoder{
		tagName: domain.TagName,
	}
	for _, opt := range opts {
		opt(&e)
	}
	if e.keyGenerator == nil {
		e.keyGenerator = keygen.NewKeyGenerator()
	}
	return &e
}

// Generate implements [domain.Encoder].
func (e *Encoder) Generate(value any) (domain.Node, []domain.Node, error) {
	g := generation{
		tagName: e.tagName,
		refs:     []domain.Node{},
		slots:    make(map[identity]int),
		visiting: make(map[identity]bool),
	}
	root, err := g.encode(value)
	if err != nil {
		return domain.Node{}, nil, err
	}
	return root, g.refs, nil
}

// Document implements [domain.Encoder].
func (e *Encoder) Document(key string, value any) (domain.EncodedDocument, error) {
	if key == "" {
		var err error
		if key, err = e.keyGenerator.GenerateKey(); err != nil {
			return domain.EncodedDocument{}, err
		}
	}
	data, refs, err := e.Generate(value)
	if err != nil {
		return domain.EncodedDocument{}, err
	}
	return domain.EncodedDocument{Key: key, Data: data, Refs: refs}, nil
}

// identity tells apart composite values that must share a table slot. Two
// slices are only the same value if they start at the same address and have
// the same length and type.
type identity struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// generation holds the state of a single call to [Encoder.Generate].
type generation struct {
	tagName  string
	refs     []domain.Node
	slots    map[identity]int
	visiting map[identity]bool
}

// reserve appends an empty slot for a composite about to be visited. The slot
// is registered before the children are encoded so cycles find it.
func (g *generation) reserve(id *identity) int {
	slot := len(g.refs)
	g.refs = append(g.refs, domain.Node{})
	if id != nil {
		g.slots[*id] = slot
	}
	return slot
}

func (g *generation) seen(id *identity) (domain.Node, bool) {
	if id == nil {
		return domain.Node{}, false
	}
	slot, ok := g.slots[*id]
	return domain.RefTo(slot), ok
}

func (g *generation) encode(value any) (domain.Node, error) {
	switch t := value.(type) {
	case nil:
		return domain.Node{Kind: domain.KindNull}, nil
	case bool:
		return domain.Node{Kind: domain.KindBool, Bool: t}, nil
	case float64:
		return domain.Node{Kind: domain.KindNumber, Num: t}, nil
	case float32:
		return domain.Node{Kind: domain.KindNumber, Num: float64(t)}, nil
	case string:
		return domain.Node{Kind: domain.KindString, Str: t}, nil
	case time.Time:
		return domain.Node{Kind: domain.KindDate, Date: time.UnixMilli(t.UnixMilli()).UTC()}, nil
	case primitive.DateTime:
		return domain.Node{Kind: domain.KindDate, Date: t.Time().UTC()}, nil
	case primitive.Regex:
		return encodeRegex(t.Pattern, t.Options), nil
	case *regexp.Regexp:
		if t == nil {
			return domain.Node{Kind: domain.KindNull}, nil
		}
		return encodeRegex(t.String(), ""), nil
	case *big.Int:
		if t == nil {
			return domain.Node{Kind: domain.KindNull}, nil
		}
	case []byte:
		if t == nil {
			return domain.Node{Kind: domain.KindNull}, nil
		}
		return g.bytes(t, sliceIdentity(reflect.ValueNoEscapeOf(t))), nil
	case primitive.Binary:
		return g.bytes(t.Data, sliceIdentity(reflect.ValueNoEscapeOf(t.Data))), nil
	case domain.Set:
		if t == nil {
			return domain.Node{Kind: domain.KindNull}, nil
		}
		return g.list(domain.KindSet, t, sliceIdentity(reflect.ValueNoEscapeOf(t)))
	case domain.Map:
		if t == nil {
			return domain.Node{Kind: domain.KindNull}, nil
		}
		return g.fields(domain.KindMap, t, mapIdentity(reflect.ValueNoEscapeOf(t)))
	}
	if i, ok := structure.AsInt64(value); ok {
		return domain.Node{Kind: domain.KindInteger64, Big: i}, nil
	}
	return g.encodeReflect(value)
}

func (g *generation) encodeReflect(value any) (domain.Node, error) {
	v := reflect.ValueNoEscapeOf(value)
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return domain.Node{Kind: domain.KindNull}, nil
		}
		id := identity{typ: v.Type(), ptr: v.Pointer()}
		switch elem := v.Elem(); elem.Kind() {
		case reflect.Struct:
			if !special(elem) {
				return g.fields(domain.KindObject, value, &id)
			}
		case reflect.Array:
			if elem.Type().Elem().Kind() != reflect.Uint8 {
				return g.list(domain.KindArray, elem.Interface(), &id)
			}
		}
		return g.deref(v, id)
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return domain.Node{}, unsupported(v)
		}
		if v.IsNil() {
			return domain.Node{Kind: domain.KindNull}, nil
		}
		return g.fields(domain.KindObject, value, mapIdentity(v))
	case reflect.Struct:
		return g.fields(domain.KindObject, value, nil)
	case reflect.Slice:
		if v.IsNil() {
			return domain.Node{Kind: domain.KindNull}, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return g.bytes(v.Bytes(), sliceIdentity(v)), nil
		}
		return g.list(domain.KindArray, value, sliceIdentity(v))
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			buf := make([]byte, v.Len())
			for n := range buf {
				buf[n] = byte(v.Index(n).Uint())
			}
			return g.bytes(buf, nil), nil
		}
		return g.list(domain.KindArray, value, nil)
	case reflect.Bool:
		return domain.Node{Kind: domain.KindBool, Bool: v.Bool()}, nil
	case reflect.String:
		return domain.Node{Kind: domain.KindString, Str: v.String()}, nil
	case reflect.Float32, reflect.Float64:
		return domain.Node{Kind: domain.KindNumber, Num: v.Float()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return domain.Node{Kind: domain.KindInteger64, Big: v.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return domain.Node{Kind: domain.KindInteger64, Big: int64(v.Uint())}, nil
	default:
		return domain.Node{}, unsupported(v)
	}
}

// deref encodes the value behind a pointer that is not itself stored by
// reference. A pointer met again before its value is done can only have come
// back through other pointers or interfaces.
func (g *generation) deref(v reflect.Value, id identity) (domain.Node, error) {
	if g.visiting[id] {
		return domain.Node{}, domain.ErrEncode{Err: domain.ErrCyclicPointer{Type: v.Type().String()}}
	}
	g.visiting[id] = true
	defer delete(g.visiting, id)
	return g.encode(v.Elem().Interface())
}

// special reports whether a struct has its own node kind instead of being
// encoded field by field.
func special(v reflect.Value) bool {
	switch v.Interface().(type) {
	case time.Time, big.Int, primitive.Regex, primitive.Binary:
		return true
	default:
		return false
	}
}

func unsupported(v reflect.Value) error {
	return domain.ErrEncode{Err: domain.ErrUnsupportedType{Type: v.Type().String()}}
}

func sliceIdentity(v reflect.Value) *identity {
	// empty slices may all point at the same zero-sized allocation
	if v.Len() == 0 {
		return nil
	}
	return &identity{typ: v.Type(), ptr: v.Pointer(), len: v.Len()}
}

func mapIdentity(v reflect.Value) *identity {
	return &identity{typ: v.Type(), ptr: v.Pointer()}
}

func encodeRegex(pattern, options string) domain.Node {
	var flags []byte
	for _, flag := range []byte("ims") {
		if strings.IndexByte(options, flag) >= 0 {
			flags = append(flags, flag)
		}
	}
	return domain.Node{
		Kind:  domain.KindRegex,
		Regex: primitive.Regex{Pattern: pattern, Options: string(flags)},
	}
}

func (g *generation) bytes(buf []byte, id *identity) domain.Node {
	if ref, ok := g.seen(id); ok {
		return ref
	}
	slot := g.reserve(id)
	g.refs[slot] = domain.Node{Kind: domain.KindBytes, Buf: slices.Clone(buf)}
	if g.refs[slot].Buf == nil {
		g.refs[slot].Buf = []byte{}
	}
	return domain.RefTo(slot)
}

func (g *generation) list(kind domain.Kind, value any, id *identity) (domain.Node, error) {
	if ref, ok := g.seen(id); ok {
		return ref, nil
	}
	slot := g.reserve(id)

	seq, l, err := structure.Seq(value)
	if err != nil {
		return domain.Node{}, domain.ErrEncode{Err: err}
	}
	nodes := make([]domain.Node, 0, l)
	for item := range seq {
		node, err := g.encode(item)
		if err != nil {
			return domain.Node{}, domain.EncodeAt(err, domain.Segment{Kind: kind, Index: len(nodes)})
		}
		nodes = append(nodes, node)
	}

	if kind == domain.KindSet {
		g.refs[slot] = domain.Node{Kind: kind, Set: nodes}
	} else {
		g.refs[slot] = domain.Node{Kind: kind, Arr: nodes}
	}
	return domain.RefTo(slot), nil
}

// fields encodes a map or struct. Keys that could never be queried are left
// out silently.
func (g *generation) fields(kind domain.Kind, value any, id *identity) (domain.Node, error) {
	if ref, ok := g.seen(id); ok {
		return ref, nil
	}
	slot := g.reserve(id)

	seq, l, err := structure.Seq2(value, g.tagName)
	if err != nil {
		return domain.Node{}, domain.ErrEncode{Err: err}
	}
	fields := make(domain.Fields, 0, l)
	for key, item := range seq {
		if !domain.ValidKey(key) {
			continue
		}
		node, err := g.encode(item)
		if err != nil {
			return domain.Node{}, domain.EncodeAt(err, domain.Segment{Kind: kind, Key: key})
		}
		fields = append(fields, domain.Field{Key: key, Value: node})
	}

	if kind == domain.KindMap {
		g.refs[slot] = domain.Node{Kind: kind, Map: fields}
	} else {
		g.refs[slot] = domain.Node{Kind: kind, Obj: fields}
	}
	return domain.RefTo(slot), nil
}
