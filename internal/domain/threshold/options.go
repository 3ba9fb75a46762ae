package threshold

import (
	"github.com/okian/cutline/internal/cpsolver"
	"github.com/okian/cutline/pkg/logger"
)

// Option applies a configuration option to an Optimizer.
type Option func(*Optimizer)

// WithSolver replaces the default pseudo-Boolean solver.
func WithSolver(s cpsolver.Solver) Option {
	return func(o *Optimizer) {
		if s != nil {
			o.solver = s
		}
	}
}

// WithLogger sets the logger used for per-query summaries.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTimeoutAsNoScenario reports a query whose budget ran out before any
// scenario was found as NoEliminationScenario instead of ErrSolverTimeout,
// and a query stopped after finding one as Feasible without error.
func WithTimeoutAsNoScenario(enabled bool) Option {
	return func(o *Optimizer) {
		o.timeoutAsNoScenario = enabled
	}
}

// WithBigM overrides the derived comparison constant of the ranking model.
// Only useful to test the encoding boundary.
func WithBigM(m int64) Option {
	return func(o *Optimizer) {
		o.bigM = m
	}
}
