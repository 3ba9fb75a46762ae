package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*options)

type options struct {
	maxSize int
}

// WithMaxSize bounds the number of entries. When full the oldest entry is
// evicted. A size of zero or less keeps every entry.
func WithMaxSize(maxSize int) Option {
	return func(o *options) {
		o.maxSize = maxSize
	}
}
