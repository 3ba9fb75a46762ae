package phase

import "errors"

// Sentinel errors for phase definitions.
var (
	ErrPointTableNotMonotonic = errors.New("point table is not non-increasing")
	ErrNegativePoints         = errors.New("point table contains negative points")
	ErrPointTableTooLong      = errors.New("point table has more entries than slots")
	ErrInvalidSlots           = errors.New("phase must have at least one slot")
	ErrInvalidRange           = errors.New("invalid placement range")
	ErrInvalidLinkage         = errors.New("invalid group stage linkage")
	ErrInvalidSeeding         = errors.New("invalid seeded groups")
)
