package ranking

import "errors"

// Sentinel errors for ranking construction.
var (
	ErrInvalidBounds = errors.New("total bounds are empty")
	ErrUnknownRow    = errors.New("ranked competitor is out of range")
)
