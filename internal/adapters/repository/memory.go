package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/courtmatch/internal/domain/model"
)

const backendMemory = "memory"

// MemoryStore implements Store in process memory. It is safe for concurrent use.
type MemoryStore struct {
	opts storeOptions

	mu       sync.RWMutex
	nextID   model.UserID
	users    map[model.UserID]model.User
	byName   map[string]model.UserID
	ids      []model.UserID // ascending
	profiles map[model.UserID]model.Profile
	friends  map[model.UserID]model.IDSet

	checkins map[model.UserID]map[time.Time]model.CheckIn

	nextThreadID  model.ThreadID
	nextMessageID model.MessageID
	threads       map[model.ThreadID]model.ChatThread
	pairs         map[[2]model.UserID]model.ThreadID
	messages      map[model.ThreadID][]model.ChatMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		opts:     o,
		users:    make(map[model.UserID]model.User),
		byName:   make(map[string]model.UserID),
		profiles: make(map[model.UserID]model.Profile),
		friends:  make(map[model.UserID]model.IDSet),
		checkins: make(map[model.UserID]map[time.Time]model.CheckIn),
		threads:  make(map[model.ThreadID]model.ChatThread),
		pairs:    make(map[[2]model.UserID]model.ThreadID),
		messages: make(map[model.ThreadID][]model.ChatMessage),
	}
}

// CreateUser registers a username.
func (s *MemoryStore) CreateUser(_ context.Context, username string) (model.User, error) {
	defer observe(backendMemory, "create_user", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[username]; taken {
		return model.User{}, fmt.Errorf("%q: %w", username, ErrConflict)
	}
	s.nextID++
	u := model.User{ID: s.nextID, Username: username, CreatedAt: s.opts.now().UTC()}
	s.users[u.ID] = u
	s.byName[username] = u.ID
	s.ids = append(s.ids, u.ID)
	return u, nil
}

// User returns a user by id.
func (s *MemoryStore) User(_ context.Context, id model.UserID) (model.User, error) {
	defer observe(backendMemory, "user", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	return u, nil
}

// UpsertProfile creates or replaces a profile.
func (s *MemoryStore) UpsertProfile(_ context.Context, p model.Profile) error { //nolint:gocritic // hugeParam: profiles are values
	defer observe(backendMemory, "upsert_profile", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.UserID]; !ok {
		return fmt.Errorf("user %d: %w", p.UserID, ErrUserNotFound)
	}
	s.profiles[p.UserID] = p.Clone()
	return nil
}

// Profile returns a user's profile.
func (s *MemoryStore) Profile(_ context.Context, id model.UserID) (model.Profile, error) {
	defer observe(backendMemory, "profile", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.users[id]; !ok {
		return model.Profile{}, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	p, ok := s.profiles[id]
	if !ok {
		return model.Profile{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return p.Clone(), nil
}

// AddFriend records a one-way friendship.
func (s *MemoryStore) AddFriend(_ context.Context, userID, friendID model.UserID) error {
	defer observe(backendMemory, "add_friend", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []model.UserID{userID, friendID} {
		if _, ok := s.users[id]; !ok {
			return fmt.Errorf("user %d: %w", id, ErrUserNotFound)
		}
	}
	set, ok := s.friends[userID]
	if !ok {
		set = model.NewIDSet()
		s.friends[userID] = set
	}
	set.Add(friendID)
	return nil
}

// RemoveFriend deletes a friendship edge.
func (s *MemoryStore) RemoveFriend(_ context.Context, userID, friendID model.UserID) error {
	defer observe(backendMemory, "remove_friend", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.friends[userID]; ok {
		delete(set, friendID)
	}
	return nil
}

// FriendIDs returns userID's friends in ascending order.
func (s *MemoryStore) FriendIDs(_ context.Context, userID model.UserID) ([]model.UserID, error) {
	defer observe(backendMemory, "friend_ids", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.friends[userID]
	out := make([]model.UserID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Candidates returns every user with its profile, ordered by id.
func (s *MemoryStore) Candidates(_ context.Context) ([]model.Candidate, error) {
	defer observe(backendMemory, "candidates", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Candidate, len(s.ids))
	for i, id := range s.ids {
		out[i].UserID = id
		if p, ok := s.profiles[id]; ok {
			c := p.Clone()
			out[i].Profile = &c
		}
	}
	return out, nil
}

// Count returns the number of registered users.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
