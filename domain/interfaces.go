// Package domain contains the node representation shared by the codec and the
// query compiler, the errors they return and the interfaces implemented by
// adapters.
//
// A value is stored as an [EncodedDocument]: a key, a root [Node] and a
// reference table. Composite values (bytes, arrays, sets, maps and objects)
// only ever live in the reference table and are pointed to by
// [KindReference] nodes, which is how cycles and shared values are kept.
package domain

import (
	"context"
	"io"

	"go.mongodb.org/mongo-driver/bson"
)

// Encoder converts Go values into their stored representation.
type Encoder interface {
	// Generate encodes value, returning the root node and the reference
	// table it points into.
	Generate(value any) (Node, []Node, error)
	// Document encodes value as a document stored under key. If key is
	// empty, a new one is generated.
	Document(key string, value any) (EncodedDocument, error)
}

// Decoder converts stored documents back into Go values.
type Decoder interface {
	// Transform decodes a document as read from the store.
	Transform(raw bson.Raw) (Doc, error)
	// TransformDocument decodes an already parsed document.
	TransformDocument(doc EncodedDocument) (Doc, error)
	// Decode copies a decoded value into target, which must be a non-nil
	// pointer.
	Decode(doc Doc, target any) error
}

// KeyGenerator creates keys for documents that were not given one.
type KeyGenerator interface {
	// GenerateKey returns a new unique key.
	GenerateKey() (string, error)
}

// Evaluator checks compiled filters against documents without a store.
type Evaluator interface {
	// Match reports whether document satisfies filter. The document may be
	// an [EncodedDocument], a [bson.D] or a [bson.Raw].
	Match(filter bson.D, document any) (bool, error)
}

// Archive writes and reads encoded documents as a stream.
type Archive interface {
	// Write appends docs to w, one per line.
	Write(ctx context.Context, w io.Writer, docs ...EncodedDocument) error
	// Read loads every document found in r.
	Read(ctx context.Context, r io.Reader) ([]EncodedDocument, error)
}
