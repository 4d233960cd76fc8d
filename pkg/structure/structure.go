// Package structure contains type-related operations, such as iterating over a
// value of type any and converting numbers.
package structure

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"math"
	"math/big"
	"slices"
	"strings"

	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/gemongo/domain"
)

var (
	// ErrNilObj may be returned by [Seq] or [Seq2] when a nil value is
	// passed as argument.
	ErrNilObj = errors.New("nil object")
)

// ErrNonObject is returned by [Seq2] when a value that is neither a struct nor
// a map with string keys is passed as argument.
type ErrNonObject struct {
	Type reflect.Type
}

func (e ErrNonObject) Error() string {
	return fmt.Sprintf("type %s is not a valid object", e.Type)
}

// ErrNonList is returned by [Seq] when a value that is neither a slice nor an
// array is passed as argument.
type ErrNonList struct {
	Type reflect.Type
}

func (e ErrNonList) Error() string {
	return fmt.Sprintf("type %s is not a valid list", e.Type)
}

// Field describes how an exported struct field is named and when it is left
// out.
type Field struct {
	Index     int
	Name      string
	OmitEmpty bool
	OmitZero  bool
}

// Fields lists the fields of a struct type that are visible under tagName.
// Unexported fields and fields tagged "-" are not listed. A tag with an empty
// name keeps the Go field name.
func Fields(typ reflect.Type, tagName string) []Field {
	fields := make([]Field, 0, typ.NumField())
	for n := range typ.NumField() {
		sf := typ.Field(n)
		if sf.PkgPath != "" {
			continue
		}
		field := Field{Index: n, Name: sf.Name}
		if tag, ok := sf.Tag.Lookup(tagName); ok {
			if tag == "-" {
				continue
			}
			name, opts, _ := strings.Cut(tag, ",")
			if name != "" {
				field.Name = name
			}
			for opt := range strings.SplitSeq(opts, ",") {
				switch strings.ToLower(opt) {
				case "omitempty":
					field.OmitEmpty = true
				case "omitzero":
					field.OmitZero = true
				}
			}
		}
		fields = append(fields, field)
	}
	return fields
}

// Omit reports whether value should be left out of its struct according to
// the flags of f.
func (f Field) Omit(value reflect.Value) bool {
	if f.OmitZero && value.IsZero() {
		return true
	}
	return f.OmitEmpty && isEmpty(value)
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return v.IsZero()
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	default:
		return false
	}
}

// Seq2 returns an iterator over the passed object. It works for structs and
// for maps with string keys, including pointers to them. Map entries are
// yielded sorted by key and struct fields in declaration order.
func Seq2(obj any, tagName string) (iter.Seq2[string, any], int, error) {
	if obj == nil {
		return nil, 0, ErrNilObj
	}
	switch t := obj.(type) {
	case domain.M:
		return iterMap(t), len(t), nil
	case domain.Map:
		return iterMap(t), len(t), nil
	case map[string]any:
		return iterMap(t), len(t), nil
	}
	return iterReflect(obj, tagName)
}

func iterMap[T any](m map[string]T) iter.Seq2[string, any] {
	keys := slices.Sorted(maps.Keys(m))
	return func(yield func(string, any) bool) {
		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}

func iterReflect(obj any, tagName string) (iter.Seq2[string, any], int, error) {
	v := reflect.ValueNoEscapeOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, 0, ErrNilObj
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}
		if v.IsNil() {
			return nil, 0, ErrNilObj
		}
		i, l := iterReflectMap(v)
		return i, l, nil
	case reflect.Struct:
		i, l := iterReflectStruct(v, tagName)
		return i, l, nil
	}
	return nil, 0, ErrNonObject{Type: v.Type()}
}

func iterReflectMap(v reflect.Value) (iter.Seq2[string, any], int) {
	keys := v.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return strings.Compare(a.String(), b.String())
	})
	return func(yield func(string, any) bool) {
		for _, k := range keys {
			if !yield(k.String(), v.MapIndex(k).Interface()) {
				return
			}
		}
	}, len(keys)
}

func iterReflectStruct(v reflect.Value, tagName string) (iter.Seq2[string, any], int) {
	type entry struct {
		key   string
		value any
	}
	fields := Fields(v.Type(), tagName)
	entries := make([]entry, 0, len(fields))
	for _, field := range fields {
		fv := v.Field(field.Index)
		if field.Omit(fv) {
			continue
		}
		entries = append(entries, entry{key: field.Name, value: fv.Interface()})
	}
	return func(yield func(string, any) bool) {
		for _, e := range entries {
			if !yield(e.key, e.value) {
				return
			}
		}
	}, len(entries)
}

// Seq returns an iterator over a slice or array of any type, including
// pointers to them.
func Seq(obj any) (iter.Seq[any], int, error) {
	if obj == nil {
		return nil, 0, ErrNilObj
	}
	switch t := obj.(type) {
	case []any:
		return slices.Values(t), len(t), nil
	case domain.Set:
		return slices.Values(t), len(t), nil
	}

	v := reflect.ValueNoEscapeOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, 0, ErrNilObj
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		l := v.Len()
		return func(yield func(any) bool) {
			for n := range l {
				if !yield(v.Index(n).Interface()) {
					return
				}
			}
		}, l, nil
	}
	return nil, 0, ErrNonList{Type: v.Type()}
}

// AsInteger converts any built-in number to int and returns a flag that informs
// if the argument is a valid integer.
func AsInteger(v any) (int, bool) {
	switch t := v.(type) {
	case float32:
		if trunc := math.Trunc(float64(t)); trunc == float64(t) {
			return int(trunc), true
		}
		return 0, false
	case float64:
		if trunc := math.Trunc(t); trunc == t {
			return int(trunc), true
		}
		return 0, false
	}
	i, ok := AsInt64(v)
	return int(i), ok
}

var mask64 = new(big.Int).SetUint64(math.MaxUint64)

// AsInt64 converts any integer type, including [big.Int], to int64. Values
// outside of the signed 64 bit range wrap around the way two's complement
// arithmetic does, keeping only the lowest 64 bits.
func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true
	case uintptr:
		return int64(t), true
	case *big.Int:
		if t == nil {
			return 0, false
		}
		return wrapBig(t), true
	case big.Int:
		return wrapBig(&t), true
	default:
		return 0, false
	}
}

func wrapBig(i *big.Int) int64 {
	if i.IsInt64() {
		return i.Int64()
	}
	// And works on the two's complement form, even for negative numbers
	low := new(big.Int).And(i, mask64)
	return int64(low.Uint64())
}
