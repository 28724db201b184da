package markup

// DefaultIndent is the per-level XML indentation.
const DefaultIndent = "   "

type options struct {
	indent string
}

// Option configures WriteXML.
type Option func(*options)

// WithIndent sets the per-level indentation. An empty string writes the
// document on one line.
func WithIndent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

func newOptions(opts []Option) options {
	o := options{indent: DefaultIndent}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
