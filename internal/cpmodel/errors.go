package cpmodel

import "errors"

// Sentinel errors reported by Builder.Model.
var (
	ErrMixedModels      = errors.New("elements are not part of the same model")
	ErrInvalidDomain    = errors.New("variable domain is empty")
	ErrInvalidArgument  = errors.New("invalid constraint argument")
	ErrUnknownVariable  = errors.New("variable index out of range")
	ErrObjectiveMissing = errors.New("model has no objective")
)
