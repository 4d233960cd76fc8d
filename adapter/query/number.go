package query

// Number reads a float node.
type Number struct {
	node
}

// Compare matches the node against v with the given operator. It panics
// with [ErrInvalidOperator] if o is not a comparison operator.
func (n *Number) Compare(o Operator, v float64) *Match { return n.compare(o, v) }

// Equal matches numbers equal to v.
func (n *Number) Equal(v float64) *Match { return n.compare(Equal, v) }

// NotEqual matches numbers different from v.
func (n *Number) NotEqual(v float64) *Match { return n.compare(NotEqual, v) }

// GreaterThan matches numbers greater than v.
func (n *Number) GreaterThan(v float64) *Match { return n.compare(GreaterThan, v) }

// GreaterThanEqual matches numbers greater than or equal to v.
func (n *Number) GreaterThanEqual(v float64) *Match { return n.compare(GreaterThanEqual, v) }

// LessThan matches numbers less than v.
func (n *Number) LessThan(v float64) *Match { return n.compare(LessThan, v) }

// LessThanEqual matches numbers less than or equal to v.
func (n *Number) LessThanEqual(v float64) *Match { return n.compare(LessThanEqual, v) }

// Integer reads a 64-bit integer node.
type Integer struct {
	node
}

// Compare matches the node against v with the given operator. It panics
// with [ErrInvalidOperator] if o is not a comparison operator.
func (i *Integer) Compare(o Operator, v int64) *Match { return i.compare(o, v) }

// Equal matches integers equal to v.
func (i *Integer) Equal(v int64) *Match { return i.compare(Equal, v) }

// NotEqual matches integers different from v.
func (i *Integer) NotEqual(v int64) *Match { return i.compare(NotEqual, v) }

// GreaterThan matches integers greater than v.
func (i *Integer) GreaterThan(v int64) *Match { return i.compare(GreaterThan, v) }

// GreaterThanEqual matches integers greater than or equal to v.
func (i *Integer) GreaterThanEqual(v int64) *Match { return i.compare(GreaterThanEqual, v) }

// LessThan matches integers less than v.
func (i *Integer) LessThan(v int64) *Match { return i.compare(LessThan, v) }

// LessThanEqual matches integers less than or equal to v.
func (i *Integer) LessThanEqual(v int64) *Match { return i.compare(LessThanEqual, v) }
