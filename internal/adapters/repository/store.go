// Package repository stores users, profiles, friendships, check-ins and chat,
// and supplies candidate pools to the ranker.
package repository

import (
	"context"
	"time"

	"github.com/okian/courtmatch/internal/domain/model"
	"github.com/okian/courtmatch/pkg/metrics"
)

// Store provides read/write access to every persisted entity.
type Store interface {
	UserStore
	CheckInStore
	ChatStore

	// Close releases the store's resources.
	Close() error
}

// UserStore holds users, profiles and friendships.
type UserStore interface {
	// CreateUser registers a username. Returns ErrConflict if it is taken.
	CreateUser(ctx context.Context, username string) (model.User, error)

	// User returns a user by id. Returns ErrUserNotFound if unknown.
	User(ctx context.Context, id model.UserID) (model.User, error)

	// UpsertProfile creates or replaces the profile of p.UserID.
	// Returns ErrUserNotFound if the user does not exist.
	UpsertProfile(ctx context.Context, p model.Profile) error

	// Profile returns a user's profile. Returns ErrUserNotFound for unknown
	// users and ErrNotFound for users without a profile.
	Profile(ctx context.Context, id model.UserID) (model.Profile, error)

	// AddFriend records that userID befriended friendID. Friendship is one
	// way and adding twice is a no-op.
	AddFriend(ctx context.Context, userID, friendID model.UserID) error

	// RemoveFriend deletes the userID -> friendID edge if present.
	RemoveFriend(ctx context.Context, userID, friendID model.UserID) error

	// FriendIDs returns the ids userID befriended, ascending.
	FriendIDs(ctx context.Context, userID model.UserID) ([]model.UserID, error)

	// Candidates returns every user ordered by id ascending. Profile is nil
	// for users that have none.
	Candidates(ctx context.Context) ([]model.Candidate, error)

	// Count returns the number of registered users.
	Count(ctx context.Context) (int, error)
}

// CheckInStore holds calendar check-ins, at most one per user and date.
// Dates are midnight UTC.
type CheckInStore interface {
	// CheckIn returns userID's check-in on date. Returns ErrCheckInNotFound
	// if there is none.
	CheckIn(ctx context.Context, userID model.UserID, date time.Time) (model.CheckIn, error)

	// PutCheckIn creates or replaces the check-in for c.UserID and c.Date and
	// returns the stored value. CreatedAt is set on creation and kept on
	// replace. Returns ErrUserNotFound for unknown users.
	PutCheckIn(ctx context.Context, c model.CheckIn) (model.CheckIn, error)

	// DeleteCheckIn removes userID's check-in on date if present.
	DeleteCheckIn(ctx context.Context, userID model.UserID, date time.Time) error

	// CheckIns returns userID's check-ins dated within [from, to], newest first.
	CheckIns(ctx context.Context, userID model.UserID, from, to time.Time) ([]model.CheckIn, error)
}

// ChatStore holds two-party chat threads and their messages.
type ChatStore interface {
	// OpenThread returns the thread between a and b, creating it on first
	// use. The order of a and b does not matter. Returns ErrUserNotFound for
	// unknown users.
	OpenThread(ctx context.Context, a, b model.UserID) (model.ChatThread, error)

	// Thread returns a thread by id. Returns ErrThreadNotFound if unknown.
	Thread(ctx context.Context, id model.ThreadID) (model.ChatThread, error)

	// Threads lists the threads userID takes part in, newest first.
	Threads(ctx context.Context, userID model.UserID) ([]model.ChatThread, error)

	// AddMessage appends m to m.ThreadID, assigning ID and CreatedAt.
	// Returns ErrThreadNotFound if the thread is unknown.
	AddMessage(ctx context.Context, m model.ChatMessage) (model.ChatMessage, error)

	// Messages returns a thread's messages created strictly after since,
	// oldest first. A zero since returns every message.
	Messages(ctx context.Context, threadID model.ThreadID, since time.Time) ([]model.ChatMessage, error)
}

// observe records the latency of one store operation.
func observe(backend, op string, start time.Time) {
	metrics.RecordStoreLatency(backend, op, float64(time.Since(start).Microseconds())/1000)
}
