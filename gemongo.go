// Package gemongo stores arbitrary Go values, cycles and shared references
// included, in a document store that only understands tree shaped documents,
// and compiles typed queries over them into filters the store runs as is.
//
// A value is written as a [Document]: a key, a root [Node] and a reference
// table holding every composite. [Codec] converts values to and from that
// shape, [NewFilter] starts a query and [Match.Filter] renders it for the
// store's find, update and delete calls.
package gemongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/gemongo/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/gemongo/adapter/encoder"
	"github.com/vinicius-lino-figueiredo/gemongo/adapter/evaluator"
	"github.com/vinicius-lino-figueiredo/gemongo/adapter/keygen"
	"github.com/vinicius-lino-figueiredo/gemongo/adapter/persistence"
	"github.com/vinicius-lino-figueiredo/gemongo/adapter/query"
	"github.com/vinicius-lino-figueiredo/gemongo/domain"
)

var (
	// ErrTargetNil is returned when a nil target is given to
	// [Codec.Unmarshal] or [Decoder.Decode].
	ErrTargetNil = domain.ErrTargetNil{}
	// ErrNonPointer is returned when the decode target is not a pointer.
	ErrNonPointer = domain.ErrNonPointer{}
	// ErrCyclicValue is returned when a value holding itself is decoded
	// into a typed target, which cannot represent it.
	ErrCyclicValue = domain.ErrCyclicValue{}
)

// Kind tells which payload of a [Node] is set.
type Kind = domain.Kind

// Node kinds, in the order of their stored type tags.
const (
	KindNull      = domain.KindNull
	KindBool      = domain.KindBool
	KindNumber    = domain.KindNumber
	KindInteger64 = domain.KindInteger64
	KindString    = domain.KindString
	KindDate      = domain.KindDate
	KindRegex     = domain.KindRegex
	KindBytes     = domain.KindBytes
	KindArray     = domain.KindArray
	KindSet       = domain.KindSet
	KindMap       = domain.KindMap
	KindObject    = domain.KindObject
	KindReference = domain.KindReference
)

type (
	// Node is one stored value.
	Node = domain.Node
	// Document is the stored form of a value.
	Document = domain.EncodedDocument
	// Doc is a decoded document.
	Doc = domain.Doc
	// M is an object.
	M = domain.M
	// Map is a map, stored apart from objects so queries can tell them
	// apart.
	Map = domain.Map
	// Set is a list stored apart from arrays.
	Set = domain.Set

	// Encoder converts Go values into documents.
	Encoder = domain.Encoder
	// Decoder converts documents back into Go values.
	Decoder = domain.Decoder
	// KeyGenerator creates document keys.
	KeyGenerator = domain.KeyGenerator
	// Evaluator runs filters without a store.
	Evaluator = domain.Evaluator
	// Archive writes and reads documents as a stream.
	Archive = domain.Archive

	// Filter starts queries.
	Filter = query.Filter
	// Match is a compiled query.
	Match = query.Match
	// Value reads a node of any kind inside a query.
	Value = query.Value
)

// ErrEncode is returned when a value cannot be encoded. Its Path tells where
// the offending value was found.
type ErrEncode = domain.ErrEncode

// ErrDecode is returned when a stored document cannot be decoded.
type ErrDecode = domain.ErrDecode

// ErrUnsupportedType is the cause of an [ErrEncode] for values that have no
// stored representation, such as funcs and channels.
type ErrUnsupportedType = domain.ErrUnsupportedType

// ErrInvalidKey is returned when a query reads a key that could never be
// stored.
type ErrInvalidKey = domain.ErrInvalidKey

// ErrCorruptFiles is returned when too much of an archive cannot be read.
type ErrCorruptFiles = domain.ErrCorruptFiles

// ErrCyclicPointer is the cause of an [ErrEncode] for pointers that lead back
// to themselves without passing through a composite value.
type ErrCyclicPointer = domain.ErrCyclicPointer

// ErrInvalidOperator is the panic value of a Compare call given an operator
// that does not compare.
type ErrInvalidOperator = query.ErrInvalidOperator

// NewFilter starts a new query.
func NewFilter() *Filter {
	return query.New()
}

// NewEvaluator returns an [Evaluator] that runs filters built by [NewFilter]
// in process.
func NewEvaluator() Evaluator {
	return evaluator.NewEvaluator()
}

// NewArchive returns the default [Archive].
func NewArchive(options ...persistence.Option) Archive {
	return persistence.NewArchive(options...)
}

// Codec bundles an [Encoder] and a [Decoder] configured alike.
type Codec struct {
	Encoder
	Decoder
}

// CodecOption configures a [Codec].
type CodecOption func(*codecConfig)

type codecConfig struct {
	tagName      string
	keyGenerator KeyGenerator
}

// WithTagName sets the struct tag read when encoding and decoding structs.
// Defaults to "gemongo".
func WithTagName(t string) CodecOption {
	return func(c *codecConfig) {
		c.tagName = t
	}
}

// WithKeyGenerator sets the generator used for documents written without a
// key. Defaults to random UUIDs.
func WithKeyGenerator(k KeyGenerator) CodecOption {
	return func(c *codecConfig) {
		c.keyGenerator = k
	}
}

// NewCodec returns a [Codec] using the default encoder and decoder.
func NewCodec(options ...CodecOption) *Codec {
	cfg := codecConfig{tagName: domain.TagName}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.keyGenerator == nil {
		cfg.keyGenerator = keygen.NewKeyGenerator()
	}
	return &Codec{
		Encoder: encoder.NewEncoder(
			encoder.WithTagName(cfg.tagName),
			encoder.WithKeyGenerator(cfg.keyGenerator),
		),
		Decoder: decoder.NewDecoder(decoder.WithTagName(cfg.tagName)),
	}
}

// Marshal encodes value under key and returns the stored document bytes.
func (c *Codec) Marshal(key string, value any) (bson.Raw, error) {
	doc, err := c.Document(key, value)
	if err != nil {
		return nil, err
	}
	return bson.Marshal(doc)
}

// Unmarshal decodes a document read from the store into target and returns
// its key.
func (c *Codec) Unmarshal(raw bson.Raw, target any) (string, error) {
	doc, err := c.Transform(raw)
	if err != nil {
		return "", err
	}
	return doc.Key, c.Decode(doc, target)
}
