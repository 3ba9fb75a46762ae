package circuit

import "errors"

// Sentinel errors for circuit construction.
var (
	ErrCycle         = errors.New("circuit steps form a cycle")
	ErrDuplicateStep = errors.New("duplicate circuit step")
	ErrUnknownStep   = errors.New("unknown circuit step")
	ErrInvalidStep   = errors.New("invalid circuit step")
	ErrEmptyRegistry = errors.New("circuit has no competitors")
)
