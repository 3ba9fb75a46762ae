package repository

import "errors"

// ErrNotFound is returned for keys the store does not hold.
var ErrNotFound = errors.New("entry not found")
