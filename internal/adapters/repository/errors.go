package repository

import "errors"

// Sentinel errors for stores.
var (
	ErrNotFound     = errors.New("profile not found")
	ErrUserNotFound = errors.New("user not found")
	ErrConflict     = errors.New("username already taken")

	ErrCheckInNotFound = errors.New("check-in not found")
	ErrThreadNotFound  = errors.New("chat thread not found")
)
