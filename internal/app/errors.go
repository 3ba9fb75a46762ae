package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrNotStarted  = errors.New("service not started")
	ErrNoSeason    = errors.New("no season loaded")
	ErrBusy        = errors.New("job queue full")
	ErrRunNotFound = errors.New("run not found")
)
