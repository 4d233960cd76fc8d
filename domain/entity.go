package domain

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TagName is the struct tag read when encoding structs and when decoding into
// them.
const TagName = "gemongo"

// Kind identifies the payload carried by a [Node]. The numeric value is the
// one written to the store, so the order must never change.
type Kind int32

// Node kinds, in wire order.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindInteger64
	KindString
	KindDate
	KindRegex
	KindBytes
	KindArray
	KindSet
	KindMap
	KindObject
	KindReference
)

var kindNames = [...]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindNumber:    "number",
	KindInteger64: "integer64",
	KindString:    "string",
	KindDate:      "date",
	KindRegex:     "regex",
	KindBytes:     "bytes",
	KindArray:     "array",
	KindSet:       "set",
	KindMap:       "map",
	KindObject:    "object",
	KindReference: "reference",
}

// String implements [fmt.Stringer].
func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int32(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k >= KindNull && k <= KindReference
}

// Composite reports whether values of this kind live in the reference table
// instead of being inlined.
func (k Kind) Composite() bool {
	switch k {
	case KindBytes, KindArray, KindSet, KindMap, KindObject:
		return true
	default:
		return false
	}
}

// Field is one entry of an ordered string-keyed node mapping.
type Field struct {
	Key   string
	Value Node
}

// Fields is an ordered mapping of keys to nodes, used by [KindMap] and
// [KindObject] nodes.
type Fields []Field

// Get returns the node stored under key.
func (f Fields) Get(key string) (Node, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return Node{}, false
}

// Node is a single tagged value of the encoded representation. Kind selects
// which payload field is meaningful; every other field is left zero.
type Node struct {
	Kind  Kind
	Bool  bool
	Num   float64
	Big   int64
	Str   string
	Date  time.Time
	Regex primitive.Regex
	Buf   []byte
	Arr   []Node
	Set   []Node
	Map   Fields
	Obj   Fields
	Ref   int
}

// RefTo returns a [KindReference] node pointing at the given table slot.
func RefTo(index int) Node {
	return Node{Kind: KindReference, Ref: index}
}

// EncodedDocument is the shape persisted in the store. Data is a
// [KindReference] unless the encoded value was a primitive, and Refs holds the
// payload of every composite value reachable from it.
type EncodedDocument struct {
	Key  string
	Data Node
	Refs []Node
}

// Doc is a decoded document.
type Doc struct {
	Key   string
	Value any
}

// M is the decoded form of a [KindObject] node. Any map with string keys or
// struct is encoded as an object.
type M map[string]any

// Map is a string-keyed map that is encoded as a [KindMap] node instead of
// a [KindObject] node.
type Map map[string]any

// Set is a sequence of values encoded as a [KindSet] node. Uniqueness is not
// enforced.
type Set []any

// ValidKey reports whether key can be stored and queried. Keys starting with
// '$', containing '.' or containing a NUL byte would be read by the store as
// operators or paths.
func ValidKey(key string) bool {
	return !strings.HasPrefix(key, "$") &&
		!strings.ContainsAny(key, ".\x00")
}

// Segment is one step of the path from a document root to a nested value.
type Segment struct {
	Kind  Kind
	Key   string
	Index int
}

// String implements [fmt.Stringer].
func (s Segment) String() string {
	switch s.Kind {
	case KindMap:
		return fmt.Sprintf("map '%s'", s.Key)
	case KindObject:
		return fmt.Sprintf("obj '%s'", s.Key)
	case KindArray:
		return fmt.Sprintf("arr %d", s.Index)
	case KindSet:
		return fmt.Sprintf("set %d", s.Index)
	case KindReference:
		return fmt.Sprintf("ref %d", s.Index)
	default:
		return fmt.Sprintf("%s %d", s.Kind, s.Index)
	}
}

// Path lists segments from the outermost to the innermost value.
type Path []Segment

// Prepend returns a new path starting with s followed by p.
func (p Path) Prepend(s Segment) Path {
	res := make(Path, 0, len(p)+1)
	res = append(res, s)
	return append(res, p...)
}

// String implements [fmt.Stringer].
func (p Path) String() string {
	parts := make([]string, len(p))
	for n, s := range p {
		parts[n] = s.String()
	}
	return strings.Join(parts, " -> ")
}
