package keygen

import "io"

// WithReader sets the reader that will provide random bytes.
func WithReader(r io.Reader) Option {
	return func(k *KeyGenerator) {
		k.reader = r
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*KeyGenerator)
