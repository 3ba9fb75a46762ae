package qualifier

import "errors"

// Sentinel errors for slot accounting.
var (
	ErrInconsistentSlotAccounting = errors.New("invited plus qualified competitors do not match slot count")
	ErrPoolOverSubscribed         = errors.New("pool qualifies more competitors than it has candidates")
	ErrDuplicateEntrant           = errors.New("competitor declared more than once")
	ErrNegativeQualified          = errors.New("pool qualifies a negative number of competitors")
)
