package domain

import (
	"fmt"
	"math"
)

// ErrTargetNil is returned when the passed target, which should be a pointer,
// is passed as a nil value.
type ErrTargetNil struct{}

func (e ErrTargetNil) Error() string { return "target interface is nil" }

// ErrNonPointer is returned when the passed target is not a pointer.
type ErrNonPointer struct{}

func (e ErrNonPointer) Error() string { return "target must be a non-nil pointer" }

// ErrCyclicValue is returned when a decoded value containing cycles is copied
// into a typed target, which would never finish.
type ErrCyclicValue struct{}

func (e ErrCyclicValue) Error() string { return "cyclic values cannot be decoded into a typed target" }

// ErrCyclicPointer is returned when a chain of pointers leads back to itself
// without passing through a map, slice, array or struct, so there is no
// composite value to store a reference to.
type ErrCyclicPointer struct {
	Type string
}

func (e ErrCyclicPointer) Error() string {
	return fmt.Sprintf("pointer of type %s leads back to itself", e.Type)
}

// ErrTypedDecode is returned when a decoded document cannot be copied into the
// target passed to [Decoder.Decode].
type ErrTypedDecode struct {
	Key    string
	Target string
}

// Error implements [error].
func (e ErrTypedDecode) Error() string {
	return fmt.Sprintf("could not decode document '%s' into %s", e.Key, e.Target)
}

// ErrUnsupportedType is returned by the encoder when a value has a Go type
// that has no node representation, such as channels and functions.
type ErrUnsupportedType struct {
	Type string
}

// Error implements [error].
func (e ErrUnsupportedType) Error() string {
	return fmt.Sprintf("type '%s' is not supported", e.Type)
}

// ErrMissingField is returned when a stored document or node lacks a field
// required by its kind.
type ErrMissingField struct {
	Field string
}

// Error implements [error].
func (e ErrMissingField) Error() string {
	return fmt.Sprintf("%s must exist in the data", e.Field)
}

// ErrFieldType is returned when a stored field exists but holds a value of the
// wrong type, like a reference index that is not an integer.
type ErrFieldType struct {
	Field string
	Want  string
	Got   string
}

// Error implements [error].
func (e ErrFieldType) Error() string {
	return fmt.Sprintf("%s must be %s, got %s", e.Field, e.Want, e.Got)
}

// ErrUnknownKind is returned when a stored node carries a type tag outside of
// the known [Kind] values.
type ErrUnknownKind struct {
	Kind Kind
}

// Error implements [error].
func (e ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown data type %d", int32(e.Kind))
}

// ErrInvalidReference is returned when a reference points outside of the
// reference table.
type ErrInvalidReference struct {
	Index int
	Size  int
}

// Error implements [error].
func (e ErrInvalidReference) Error() string {
	return fmt.Sprintf("reference %d is invalid for a table of %d entries", e.Index, e.Size)
}

// ErrInvalidKey is returned when a query navigates into a field name that
// could never have been stored.
type ErrInvalidKey struct {
	Key string
}

// Error implements [error].
func (e ErrInvalidKey) Error() string {
	return fmt.Sprintf("invalid key %q: key can't start with $, include dot (.), or include null character", e.Key)
}

// ErrEncode wraps any failure raised while encoding a value, recording where
// in the value graph it happened.
type ErrEncode struct {
	Path Path
	Err  error
}

// Error implements [error].
func (e ErrEncode) Error() string {
	if len(e.Path) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s at %s", e.Err.Error(), e.Path)
}

// Unwrap returns the cause.
func (e ErrEncode) Unwrap() error { return e.Err }

// ErrDecode wraps any failure raised while decoding a stored document,
// recording the document key and where in the node graph it happened.
type ErrDecode struct {
	Key  string
	Path Path
	Err  error
}

// Error implements [error].
func (e ErrDecode) Error() string {
	msg := e.Err.Error()
	if len(e.Path) > 0 {
		msg = fmt.Sprintf("%s at %s", msg, e.Path)
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s while transforming '%s'", msg, e.Key)
	}
	return msg
}

// Unwrap returns the cause.
func (e ErrDecode) Unwrap() error { return e.Err }

// ErrCorruptFiles is returned when more lines of an archive than the
// configured threshold cannot be read back.
type ErrCorruptFiles struct {
	CorruptionRate        float64
	CorruptItems          int
	DataLength            int
	CorruptAlertThreshold float64
}

func (e ErrCorruptFiles) Error() string {
	return fmt.Sprintf("%f%% of the archive is corrupt, more than given corruptAlertThreshold (%f%%). Cautiously refusing to load it to prevent dataloss.", math.Floor(100*e.CorruptionRate), math.Floor(100*e.CorruptAlertThreshold))
}
