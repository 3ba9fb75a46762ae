package scenario

import "errors"

// ErrInvalidScenario wraps every problem found while loading a season file.
var ErrInvalidScenario = errors.New("invalid scenario")
