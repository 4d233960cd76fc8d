package query

// Bool reads a boolean node.
type Bool struct {
	node
}

// Truthy matches true.
func (b *Bool) Truthy() *Match { return b.compare(Equal, true) }

// Falsy matches false.
func (b *Bool) Falsy() *Match { return b.compare(Equal, false) }

// Equal matches v.
func (b *Bool) Equal(v bool) *Match { return b.compare(Equal, v) }

// NotEqual matches anything but v.
func (b *Bool) NotEqual(v bool) *Match { return b.compare(NotEqual, v) }
