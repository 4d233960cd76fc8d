package query

import "fmt"

// Operator is a comparison operator of the aggregation expression language.
type Operator string

// Comparison operators accepted by the Compare methods.
const (
	Equal            Operator = "$eq"
	NotEqual         Operator = "$ne"
	GreaterThan      Operator = "$gt"
	GreaterThanEqual Operator = "$gte"
	LessThan         Operator = "$lt"
	LessThanEqual    Operator = "$lte"
)

// Valid reports whether o is one of the comparison operators.
func (o Operator) Valid() bool {
	switch o {
	case Equal, NotEqual, GreaterThan, GreaterThanEqual, LessThan, LessThanEqual:
		return true
	default:
		return false
	}
}

// ErrInvalidOperator is the panic value of a Compare call given an operator
// that is not one of the comparison operators.
type ErrInvalidOperator struct {
	Operator Operator
}

func (e ErrInvalidOperator) Error() string {
	return fmt.Sprintf("invalid comparison operator %q", string(e.Operator))
}

func (o Operator) check() {
	if !o.Valid() {
		panic(ErrInvalidOperator{Operator: o})
	}
}
