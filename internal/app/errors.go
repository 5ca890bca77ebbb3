package service

import "errors"

// Service errors. Store errors (repository.ErrUserNotFound, repository.ErrConflict)
// are passed through wrapped.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrProfileNotFound = errors.New("profile not found for current user")
	ErrNoCandidates    = errors.New("no candidates available")
	ErrSelfFriend      = errors.New("cannot add yourself as friend")
	ErrInvalidUsername = errors.New("invalid username")

	ErrInvalidCheckIn = errors.New("invalid check-in")
	ErrSelfChat       = errors.New("cannot start chat with yourself")
	ErrNotParticipant = errors.New("not a participant of this thread")
	ErrEmptyMessage   = errors.New("message content required")
)
