// Package worker runs queued threshold queries on a fixed pool of goroutines.
package worker

import (
	"time"

	"github.com/okian/cutline/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithQueryTimeout bounds the wall-clock time of each query. Zero disables
// the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d >= 0 {
			w.queryTimeout = d
		}
	}
}
