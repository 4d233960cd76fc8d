package domain

import (
	"bytes"
	"errors"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field names of a stored document and of a stored node.
const (
	FieldKey  = "key"
	FieldData = "data"
	FieldRefs = "refs"
	FieldType = "type"
)

var payloadFields = [...]string{
	KindBool:      "bool",
	KindNumber:    "num",
	KindInteger64: "big",
	KindString:    "str",
	KindDate:      "date",
	KindRegex:     "regex",
	KindBytes:     "buf",
	KindArray:     "arr",
	KindSet:       "set",
	KindMap:       "map",
	KindObject:    "obj",
	KindReference: "ref",
}

// PayloadField returns the name of the field holding the payload of a node of
// kind k. [KindNull] has no payload and returns an empty string.
func PayloadField(k Kind) string {
	if !k.Valid() {
		return ""
	}
	return payloadFields[k]
}

// MarshalBSON implements [bson.Marshaler].
func (d EncodedDocument) MarshalBSON() ([]byte, error) {
	return bson.Marshal(d.D())
}

// D returns the document as written to the store.
func (d EncodedDocument) D() bson.D {
	refs := make(bson.A, len(d.Refs))
	for n, ref := range d.Refs {
		refs[n] = ref
	}
	return bson.D{
		{Key: FieldKey, Value: d.Key},
		{Key: FieldData, Value: d.Data},
		{Key: FieldRefs, Value: refs},
	}
}

// UnmarshalBSON implements [bson.Unmarshaler].
func (d *EncodedDocument) UnmarshalBSON(data []byte) error {
	doc, err := ParseDocument(bson.Raw(data))
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// ParseDocument reads a stored document, failing with [ErrMissingField] if
// any of key, data or refs is absent.
func ParseDocument(raw bson.Raw) (EncodedDocument, error) {
	var doc EncodedDocument

	key, err := raw.LookupErr(FieldKey)
	if err != nil {
		return doc, ErrDecode{Err: ErrMissingField{Field: FieldKey}}
	}
	var ok bool
	if doc.Key, ok = key.StringValueOK(); !ok {
		return doc, ErrDecode{Err: ErrFieldType{Field: FieldKey, Want: "string", Got: key.Type.String()}}
	}

	data, err := raw.LookupErr(FieldData)
	if err != nil {
		return doc, ErrDecode{Key: doc.Key, Err: ErrMissingField{Field: FieldData}}
	}
	refs, err := raw.LookupErr(FieldRefs)
	if err != nil {
		return doc, ErrDecode{Key: doc.Key, Err: ErrMissingField{Field: FieldRefs}}
	}

	if doc.Data, err = parseValue(data); err != nil {
		return doc, WithKey(err, doc.Key)
	}

	refArr, ok := refs.ArrayOK()
	if !ok {
		return doc, ErrDecode{Key: doc.Key, Err: ErrFieldType{Field: FieldRefs, Want: "array", Got: refs.Type.String()}}
	}
	values, err := refArr.Values()
	if err != nil {
		return doc, ErrDecode{Key: doc.Key, Err: err}
	}
	doc.Refs = make([]Node, len(values))
	for n, value := range values {
		if doc.Refs[n], err = parseValue(value); err != nil {
			return doc, WithKey(DecodeAt(err, Segment{Kind: KindReference, Index: n}), doc.Key)
		}
	}
	return doc, nil
}

// WithKey records the key of the document being decoded in err.
func WithKey(err error, key string) error {
	var de ErrDecode
	if errors.As(err, &de) {
		de.Key = key
		return de
	}
	return ErrDecode{Key: key, Err: err}
}

// DecodeAt prepends s to the breadcrumb of a decoding error.
func DecodeAt(err error, s Segment) error {
	var de ErrDecode
	if errors.As(err, &de) {
		de.Path = de.Path.Prepend(s)
		return de
	}
	return ErrDecode{Path: Path{s}, Err: err}
}

// EncodeAt prepends s to the breadcrumb of an encoding error.
func EncodeAt(err error, s Segment) error {
	var ee ErrEncode
	if errors.As(err, &ee) {
		ee.Path = ee.Path.Prepend(s)
		return ee
	}
	return ErrEncode{Path: Path{s}, Err: err}
}

// MarshalBSON implements [bson.Marshaler].
func (n Node) MarshalBSON() ([]byte, error) {
	d, err := n.D()
	if err != nil {
		return nil, err
	}
	return bson.Marshal(d)
}

// D returns the node as written to the store: its type tag followed by its
// payload field.
func (n Node) D() (bson.D, error) {
	d := bson.D{{Key: FieldType, Value: int32(n.Kind)}}
	var payload any
	switch n.Kind {
	case KindNull:
		return d, nil
	case KindBool:
		payload = n.Bool
	case KindNumber:
		payload = n.Num
	case KindInteger64:
		payload = n.Big
	case KindString:
		payload = n.Str
	case KindDate:
		payload = primitive.NewDateTimeFromTime(n.Date)
	case KindRegex:
		payload = n.Regex
	case KindBytes:
		payload = primitive.Binary{Subtype: 0x00, Data: n.Buf}
	case KindArray:
		payload = nodeList(n.Arr)
	case KindSet:
		payload = nodeList(n.Set)
	case KindMap:
		payload = fieldList(n.Map)
	case KindObject:
		payload = fieldList(n.Obj)
	case KindReference:
		payload = int32(n.Ref)
	default:
		return nil, ErrUnknownKind{Kind: n.Kind}
	}
	return append(d, bson.E{Key: payloadFields[n.Kind], Value: payload}), nil
}

func nodeList(nodes []Node) bson.A {
	res := make(bson.A, len(nodes))
	for n, node := range nodes {
		res[n] = node
	}
	return res
}

func fieldList(fields Fields) bson.D {
	res := make(bson.D, len(fields))
	for n, field := range fields {
		res[n] = bson.E{Key: field.Key, Value: field.Value}
	}
	return res
}

// UnmarshalBSON implements [bson.Unmarshaler].
func (n *Node) UnmarshalBSON(data []byte) error {
	node, err := ParseNode(bson.Raw(data))
	if err != nil {
		return err
	}
	*n = node
	return nil
}

func parseValue(value bson.RawValue) (Node, error) {
	raw, ok := value.DocumentOK()
	if !ok {
		return Node{}, ErrDecode{Err: ErrFieldType{Field: "node", Want: "embedded document", Got: value.Type.String()}}
	}
	return ParseNode(raw)
}

// ParseNode reads a stored node, validating that its type tag is known and
// that the matching payload field is present and well typed.
func ParseNode(raw bson.Raw) (Node, error) {
	var node Node

	typ, err := raw.LookupErr(FieldType)
	if err != nil {
		return node, ErrDecode{Err: ErrMissingField{Field: FieldType}}
	}
	kind, ok := asInteger(typ)
	if !ok {
		return node, ErrDecode{Err: ErrFieldType{Field: FieldType, Want: "integer", Got: typ.Type.String()}}
	}
	if kind < int64(KindNull) || kind > int64(KindReference) {
		return node, ErrDecode{Err: ErrUnknownKind{Kind: Kind(kind)}}
	}
	node.Kind = Kind(kind)
	if node.Kind == KindNull {
		return node, nil
	}

	name := payloadFields[node.Kind]
	value, err := raw.LookupErr(name)
	if err != nil {
		return node, ErrDecode{Err: ErrMissingField{Field: name}}
	}
	wrongType := func(want string) error {
		return ErrDecode{Err: ErrFieldType{Field: name, Want: want, Got: value.Type.String()}}
	}

	switch node.Kind {
	case KindBool:
		if node.Bool, ok = value.BooleanOK(); !ok {
			return node, wrongType("boolean")
		}
	case KindNumber:
		if node.Num, ok = asDouble(value); !ok {
			return node, wrongType("double")
		}
	case KindInteger64:
		big, ok := asInteger(value)
		if !ok {
			return node, wrongType("integer")
		}
		node.Big = big
	case KindString:
		if node.Str, ok = value.StringValueOK(); !ok {
			return node, wrongType("string")
		}
	case KindDate:
		ms, ok := value.DateTimeOK()
		if !ok {
			return node, wrongType("date")
		}
		node.Date = time.UnixMilli(ms).UTC()
	case KindRegex:
		pattern, options, ok := value.RegexOK()
		if !ok {
			return node, wrongType("regex")
		}
		node.Regex = primitive.Regex{Pattern: pattern, Options: options}
	case KindBytes:
		_, data, ok := value.BinaryOK()
		if !ok {
			return node, wrongType("binary")
		}
		node.Buf = bytes.Clone(data)
	case KindArray, KindSet:
		arr, ok := value.ArrayOK()
		if !ok {
			return node, wrongType("array")
		}
		nodes, err := parseList(arr, node.Kind)
		if err != nil {
			return node, err
		}
		if node.Kind == KindArray {
			node.Arr = nodes
		} else {
			node.Set = nodes
		}
	case KindMap, KindObject:
		doc, ok := value.DocumentOK()
		if !ok {
			return node, wrongType("embedded document")
		}
		fields, err := parseFields(doc, node.Kind)
		if err != nil {
			return node, err
		}
		if node.Kind == KindMap {
			node.Map = fields
		} else {
			node.Obj = fields
		}
	case KindReference:
		ref, ok := asInteger(value)
		if !ok || ref < 0 || ref > math.MaxInt32 {
			return node, wrongType("non-negative integer")
		}
		node.Ref = int(ref)
	}
	return node, nil
}

func parseList(arr bson.Raw, kind Kind) ([]Node, error) {
	values, err := arr.Values()
	if err != nil {
		return nil, ErrDecode{Err: err}
	}
	nodes := make([]Node, len(values))
	for n, value := range values {
		if nodes[n], err = parseValue(value); err != nil {
			return nil, DecodeAt(err, Segment{Kind: kind, Index: n})
		}
	}
	return nodes, nil
}

func parseFields(doc bson.Raw, kind Kind) (Fields, error) {
	elems, err := doc.Elements()
	if err != nil {
		return nil, ErrDecode{Err: err}
	}
	fields := make(Fields, len(elems))
	for n, elem := range elems {
		key := elem.Key()
		value, err := parseValue(elem.Value())
		if err != nil {
			return nil, DecodeAt(err, Segment{Kind: kind, Key: key})
		}
		fields[n] = Field{Key: key, Value: value}
	}
	return fields, nil
}

// asInteger accepts every BSON number that holds an integral value, since
// other drivers write small integers as int32 or double.
func asInteger(value bson.RawValue) (int64, bool) {
	switch value.Type {
	case bson.TypeInt32:
		return int64(value.Int32()), true
	case bson.TypeInt64:
		return value.Int64(), true
	case bson.TypeDouble:
		f := value.Double()
		if math.Trunc(f) != f || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

func asDouble(value bson.RawValue) (float64, bool) {
	switch value.Type {
	case bson.TypeDouble:
		return value.Double(), true
	case bson.TypeInt32:
		return float64(value.Int32()), true
	case bson.TypeInt64:
		return float64(value.Int64()), true
	default:
		return 0, false
	}
}
