// Package scope generates the variable names bound by compiled expressions.
package scope

// Namer hands out the names a, b, ..., z, aa, ab, ... in order. It works as a
// base-26 counter where the last letter is the least significant digit, so a
// name is never repeated for the lifetime of a Namer.
//
// A Namer is not safe for concurrent use.
type Namer struct {
	digits []byte
}

// New returns a Namer whose first name is "a".
func New() *Namer {
	return &Namer{}
}

// Next advances the counter and returns the new name.
func (n *Namer) Next() string {
	n.increment(len(n.digits) - 1)
	return string(n.digits)
}

// Current returns the last name returned by [Namer.Next], or an empty string
// if no name was generated yet.
func (n *Namer) Current() string {
	return string(n.digits)
}

// Reset makes the Namer start again from "a".
func (n *Namer) Reset() {
	n.digits = n.digits[:0]
}

func (n *Namer) increment(pos int) {
	if pos < 0 {
		// every position overflowed, so the name grows by one letter
		n.digits = append([]byte{'a'}, n.digits...)
		return
	}
	if n.digits[pos] < 'z' {
		n.digits[pos]++
		return
	}
	n.digits[pos] = 'a'
	n.increment(pos - 1)
}
