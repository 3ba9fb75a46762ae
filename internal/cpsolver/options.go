package cpsolver

import (
	"time"

	"github.com/okian/cutline/pkg/logger"
)

// Option applies a configuration option to the PseudoBoolean solver.
type Option func(*PseudoBoolean)

// WithTimeLimit bounds the wall-clock time of one Solve call. Zero means no limit.
func WithTimeLimit(d time.Duration) Option {
	return func(s *PseudoBoolean) {
		if d >= 0 {
			s.timeLimit = d
		}
	}
}

// WithLogger sets the logger used for per-solve summaries.
func WithLogger(l logger.Logger) Option {
	return func(s *PseudoBoolean) {
		if l != nil {
			s.logger = l
		}
	}
}
