package render

import "errors"

// Sentinel errors for rendering.
var (
	ErrNoScenario = errors.New("outcome has no scenario to render")
)
