// Package evaluator contains the default implementation of
// [domain.Evaluator]. It runs compiled filters in process, supporting exactly
// the query and expression operators the query compiler emits.
package evaluator

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/gemongo/domain"
)

var (
	// ErrNotDocument is returned when a filter or a document is not a BSON
	// document.
	ErrNotDocument = errors.New("value is not a document")
)

// ErrUnknownOperator is returned when a filter uses an operator this package
// cannot evaluate.
type ErrUnknownOperator struct {
	Operator string
}

// Error implements [error].
func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// ErrArgType is returned when an operator receives an argument of the wrong
// type.
type ErrArgType struct {
	Op     string
	Want   string
	Actual string
}

// Error implements [error].
func (e ErrArgType) Error() string {
	return fmt.Sprintf("%s argument should be of type %s, got %s", e.Op, e.Want, e.Actual)
}

// ErrArgCount is returned when an operator receives the wrong number of
// arguments.
type ErrArgCount struct {
	Op   string
	Want int
	Got  int
}

// Error implements [error].
func (e ErrArgCount) Error() string {
	return fmt.Sprintf("%s expects %d arguments, got %d", e.Op, e.Want, e.Got)
}

// ErrUnknownVariable is returned when an expression reads a variable that was
// never bound.
type ErrUnknownVariable struct {
	Name string
}

// Error implements [error].
func (e ErrUnknownVariable) Error() string {
	return fmt.Sprintf("use of undefined variable %q", e.Name)
}

// Evaluator implements [domain.Evaluator]. It holds no state, so a single
// instance can be shared between goroutines.
type Evaluator struct{}

// NewEvaluator returns a new implementation of [domain.Evaluator].
func NewEvaluator() domain.Evaluator {
	return &Evaluator{}
}

// Match implements [domain.Evaluator].
func (e *Evaluator) Match(filter bson.D, document any) (bool, error) {
	raw, err := documentRaw(document)
	if err != nil {
		return false, err
	}
	root, err := fromRaw(raw)
	if err != nil {
		return false, err
	}

	rawFilter, err := bson.Marshal(filter)
	if err != nil {
		return false, err
	}
	query, err := fromRaw(rawFilter)
	if err != nil {
		return false, err
	}

	ev := evaluation{root: root}
	return ev.query(query)
}

func documentRaw(document any) (bson.Raw, error) {
	switch t := document.(type) {
	case bson.Raw:
		if err := t.Validate(); err != nil {
			return nil, err
		}
		return t, nil
	case []byte:
		raw := bson.Raw(t)
		if err := raw.Validate(); err != nil {
			return nil, err
		}
		return raw, nil
	case domain.EncodedDocument, *domain.EncodedDocument, bson.D:
		return bson.Marshal(t)
	default:
		return nil, domain.ErrUnsupportedType{Type: fmt.Sprintf("%T", document)}
	}
}

// evaluation holds the document a filter runs against.
type evaluation struct {
	root bson.D
}

// query evaluates a query document: every key must hold and only the logical
// operators and $expr are accepted.
func (ev *evaluation) query(q bson.D) (bool, error) {
	for _, e := range q {
		var ok bool
		var err error
		switch e.Key {
		case "$and", "$or":
			ok, err = ev.logical(e.Key, e.Value)
		case "$expr":
			var res any
			res, err = ev.eval(e.Value, nil)
			ok = truthy(res)
		default:
			return false, ErrUnknownOperator{Operator: e.Key}
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (ev *evaluation) logical(op string, value any) (bool, error) {
	items, ok := value.(bson.A)
	if !ok {
		return false, ErrArgType{Op: op, Want: "array", Actual: typeName(value)}
	}
	for _, item := range items {
		q, ok := item.(bson.D)
		if !ok {
			return false, ErrArgType{Op: op, Want: "object", Actual: typeName(item)}
		}
		res, err := ev.query(q)
		if err != nil {
			return false, err
		}
		if op == "$or" && res {
			return true, nil
		}
		if op == "$and" && !res {
			return false, nil
		}
	}
	// an empty $and holds and an empty $or does not
	return op == "$and", nil
}
