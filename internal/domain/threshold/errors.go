package threshold

import "errors"

// Sentinel errors for threshold queries.
var (
	ErrSolver                 = errors.New("solver failed")
	ErrSolverTimeout          = errors.New("solver budget exhausted")
	ErrInvalidEliminationRank = errors.New("elimination rank out of range")
	ErrNilCircuit             = errors.New("circuit is nil")
)
