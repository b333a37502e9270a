package libemit

type (
	options struct {
		logger logger
		name   string
	}

	// Option configures an Emitter at construction time.
	Option func(*options)
)

func newOptions(opts ...Option) options {
	opt := options{logger: noopLogger{}}
	for _, o := range opts {
		o(&opt)
	}
	return opt
}

// WithLogger sets the logger an emitter reports bindings, removals and
// swallowed failures to. Defaults to a no-op logger.
func WithLogger(l logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName labels an emitter in its log entries.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}
