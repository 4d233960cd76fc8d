package decoder

// WithTagName sets the struct tag read by [Decoder.Decode]. Defaults to
// [domain.TagName].
func WithTagName(t string) Option {
	return func(d *Decoder) {
		d.tagName = t
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*Decoder)
