package cpsolver

import "errors"

// Sentinel errors for solver invocations.
var (
	ErrModelInvalid = errors.New("model is invalid")
	ErrNilModel     = errors.New("model is nil")
	ErrUnbounded    = errors.New("integer variable is unbounded")
)
