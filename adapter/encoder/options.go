package encoder

import "github.com/vinicius-lino-figueiredo/gemongo/domain"

// WithTagName sets the struct tag read to name struct fields. Defaults to
// [domain.TagName].
func WithTagName(t string) Option {
	return func(e *Encoder) {
		e.tagName = t
	}
}

// WithKeyGenerator sets the generator used by [Encoder.Document] when no key
// is given.
func WithKeyGenerator(k domain.KeyGenerator) Option {
	return func(e *Encoder) {
		e.keyGenerator = k
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*Encoder)
