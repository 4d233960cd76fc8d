// Package decoder contains the default [domain.Decoder] implementation.
package decoder

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/gemongo/domain"
)

// Decoder implements [domain.Decoder]. It holds only configuration, so a
// single instance can be shared between goroutines.
type Decoder struct {
	tagName string
}

// NewDecoder returns a new implementation of [domain.Decoder].
func NewDecoder(opts ...Option) domain.Decoder {
	d := Decoder{
		tagName: domain.TagName,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return &d
}

// Transform implements [domain.Decoder].
func (d *Decoder) Transform(raw bson.Raw) (domain.Doc, error) {
	doc, err := domain.ParseDocument(raw)
	if err != nil {
		return domain.Doc{}, err
	}
	return d.TransformDocument(doc)
}

// TransformDocument implements [domain.Decoder].
func (d *Decoder) TransformDocument(doc domain.EncodedDocument) (domain.Doc, error) {
	t := transformation{
		refs:  doc.Refs,
		cache: make(map[int]any, len(doc.Refs)),
	}
	value, err := t.decode(doc.Data)
	if err != nil {
		return domain.Doc{}, domain.WithKey(err, doc.Key)
	}
	return domain.Doc{Key: doc.Key, Value: value}, nil
}

// transformation holds the state of a single call to
// [Decoder.TransformDocument]. Every composite found in the table is cached by
// index so that it is built only once.
type transformation struct {
	refs  []domain.Node
	cache map[int]any
}

func (t *transformation) decode(node domain.Node) (any, error) {
	switch node.Kind {
	case domain.KindNull:
		return nil, nil
	case domain.KindBool:
		return node.Bool, nil
	case domain.KindNumber:
		return node.Num, nil
	case domain.KindInteger64:
		return node.Big, nil
	case domain.KindString:
		return node.Str, nil
	case domain.KindDate:
		return node.Date, nil
	case domain.KindRegex:
		return node.Regex, nil
	case domain.KindReference:
		return t.resolve(node.Ref)
	case domain.KindBytes, domain.KindArray, domain.KindSet,
		domain.KindMap, domain.KindObject:
		// inline composites are accepted, but cannot be shared
		return t.composite(node, nil)
	default:
		return nil, domain.ErrDecode{Err: domain.ErrUnknownKind{Kind: node.Kind}}
	}
}

func (t *transformation) resolve(index int) (any, error) {
	if index < 0 || index >= len(t.refs) {
		return nil, domain.ErrDecode{Err: domain.ErrInvalidReference{Index: index, Size: len(t.refs)}}
	}
	if value, ok := t.cache[index]; ok {
		return value, nil
	}
	slot := t.refs[index]
	if slot.Kind == domain.KindReference {
		return nil, domain.ErrDecode{Err: domain.ErrInvalidReference{Index: index, Size: len(t.refs)}}
	}
	if !slot.Kind.Composite() {
		return t.decode(slot)
	}
	return t.composite(slot, func(value any) { t.cache[index] = value })
}

// composite builds the container for node and hands it to register before any
// child is decoded. Slices are created at their final length and filled in
// place, so the registered value is the same one that is returned.
func (t *transformation) composite(node domain.Node, register func(any)) (any, error) {
	if register == nil {
		register = func(any) {}
	}
	switch node.Kind {
	case domain.KindBytes:
		buf := bytes.Clone(node.Buf)
		if buf == nil {
			buf = []byte{}
		}
		register(buf)
		return buf, nil
	case domain.KindArray:
		res := make([]any, len(node.Arr))
		register(res)
		return res, t.fill(res, node.Arr, domain.KindArray)
	case domain.KindSet:
		res := make(domain.Set, len(node.Set))
		register(res)
		return res, t.fill(res, node.Set, domain.KindSet)
	case domain.KindMap:
		res := make(domain.Map, len(node.Map))
		register(res)
		return res, t.fillFields(res, node.Map, domain.KindMap)
	default:
		res := make(domain.M, len(node.Obj))
		register(res)
		return res, t.fillFields(res, node.Obj, domain.KindObject)
	}
}

func (t *transformation) fill(dst []any, nodes []domain.Node, kind domain.Kind) error {
	for n, node := range nodes {
		value, err := t.decode(node)
		if err != nil {
			return domain.DecodeAt(err, domain.Segment{Kind: kind, Index: n})
		}
		dst[n] = value
	}
	return nil
}

func (t *transformation) fillFields(dst map[string]any, fields domain.Fields, kind domain.Kind) error {
	for _, field := range fields {
		value, err := t.decode(field.Value)
		if err != nil {
			return domain.DecodeAt(err, domain.Segment{Kind: kind, Key: field.Key})
		}
		dst[field.Key] = value
	}
	return nil
}

// Decode implements [domain.Decoder].
func (d *Decoder) Decode(doc domain.Doc, target any) error {
	if target == nil {
		return domain.ErrTargetNil{}
	}

	value := reflect.ValueNoEscapeOf(target)
	if value.Kind() != reflect.Ptr || value.IsNil() {
		return domain.ErrNonPointer{}
	}

	if cyclic(doc.Value, make(map[uintptr]struct{})) {
		return domain.ErrCyclicValue{}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: decodeHook,
		TagName:    d.tagName,
		Result:     target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(doc.Value); err != nil {
		errDec := domain.ErrTypedDecode{Key: doc.Key, Target: value.Type().String()}
		return fmt.Errorf("%w: %w", errDec, err)
	}
	return nil
}

// cyclic reports whether value contains itself. open holds the containers
// currently being visited.
func cyclic(value any, open map[uintptr]struct{}) bool {
	var children func(yield func(any) bool)
	var ptr uintptr
	switch t := value.(type) {
	case []any:
		ptr, children = listInfo(t)
	case domain.Set:
		ptr, children = listInfo(t)
	case domain.M:
		ptr, children = mapInfo(t)
	case domain.Map:
		ptr, children = mapInfo(t)
	default:
		return false
	}
	if ptr == 0 {
		return false
	}
	if _, ok := open[ptr]; ok {
		return true
	}
	open[ptr] = struct{}{}
	defer delete(open, ptr)
	for child := range children {
		if cyclic(child, open) {
			return true
		}
	}
	return false
}

func listInfo[S ~[]any](s S) (uintptr, func(func(any) bool)) {
	if len(s) == 0 {
		return 0, nil
	}
	return reflect.ValueNoEscapeOf(s).Pointer(), func(yield func(any) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

func mapInfo[M ~map[string]any](m M) (uintptr, func(func(any) bool)) {
	if m == nil {
		return 0, nil
	}
	return reflect.ValueNoEscapeOf(m).Pointer(), func(yield func(any) bool) {
		for _, v := range m {
			if !yield(v) {
				return
			}
		}
	}
}
