package registry

import "errors"

// Sentinel errors for competitor lookups.
var (
	ErrUnknownCompetitor   = errors.New("unknown competitor")
	ErrDuplicateCompetitor = errors.New("competitor already registered")
	ErrEmptyIdentity       = errors.New("competitor identity is empty")
)
