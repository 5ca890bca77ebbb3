package worker

import "errors"

// Sentinel errors for workers and the pool.
var (
	ErrPoolStopped    = errors.New("worker pool stopped")
	ErrPoolNotStarted = errors.New("worker pool not started")
	ErrInvalidJob     = errors.New("invalid score job")
)
