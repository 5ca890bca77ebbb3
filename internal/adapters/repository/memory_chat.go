package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/courtmatch/internal/domain/model"
)

// OpenThread returns the thread between a and b, creating it if needed.
func (s *MemoryStore) OpenThread(_ context.Context, a, b model.UserID) (model.ChatThread, error) {
	defer observe(backendMemory, "open_thread", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []model.UserID{a, b} {
		if _, ok := s.users[id]; !ok {
			return model.ChatThread{}, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
		}
	}
	u1, u2 := model.ThreadPair(a, b)
	if id, ok := s.pairs[[2]model.UserID{u1, u2}]; ok {
		return s.threads[id], nil
	}
	s.nextThreadID++
	t := model.ChatThread{ID: s.nextThreadID, User1: u1, User2: u2, CreatedAt: s.opts.now().UTC()}
	s.threads[t.ID] = t
	s.pairs[[2]model.UserID{u1, u2}] = t.ID
	return t, nil
}

// Thread returns a thread by id.
func (s *MemoryStore) Thread(_ context.Context, id model.ThreadID) (model.ChatThread, error) {
	defer observe(backendMemory, "thread", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[id]
	if !ok {
		return model.ChatThread{}, fmt.Errorf("thread %d: %w", id, ErrThreadNotFound)
	}
	return t, nil
}

// Threads lists userID's threads, newest first.
func (s *MemoryStore) Threads(_ context.Context, userID model.UserID) ([]model.ChatThread, error) {
	defer observe(backendMemory, "threads", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.ChatThread{}
	for _, t := range s.threads {
		if t.Has(userID) {
			out = append(out, t)
		}
	}
	sortThreads(out)
	return out, nil
}

// AddMessage appends a message to its thread.
func (s *MemoryStore) AddMessage(_ context.Context, m model.ChatMessage) (model.ChatMessage, error) {
	defer observe(backendMemory, "add_message", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.threads[m.ThreadID]; !ok {
		return model.ChatMessage{}, fmt.Errorf("thread %d: %w", m.ThreadID, ErrThreadNotFound)
	}
	if _, ok := s.users[m.SenderID]; !ok {
		return model.ChatMessage{}, fmt.Errorf("user %d: %w", m.SenderID, ErrUserNotFound)
	}
	s.nextMessageID++
	m.ID = s.nextMessageID
	m.CreatedAt = s.opts.now().UTC()
	s.messages[m.ThreadID] = append(s.messages[m.ThreadID], m)
	return m, nil
}

// Messages returns a thread's messages after since, oldest first.
func (s *MemoryStore) Messages(_ context.Context, threadID model.ThreadID, since time.Time) ([]model.ChatMessage, error) {
	defer observe(backendMemory, "messages", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.threads[threadID]; !ok {
		return nil, fmt.Errorf("thread %d: %w", threadID, ErrThreadNotFound)
	}
	return messagesSince(s.messages[threadID], since), nil
}

// sortThreads orders threads newest first, breaking ties by id descending.
func sortThreads(ts []model.ChatThread) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.After(ts[j].CreatedAt)
		}
		return ts[i].ID > ts[j].ID
	})
}

// messagesSince filters msgs to those created after since and orders them
// oldest first, breaking ties by id. The input is not modified.
func messagesSince(msgs []model.ChatMessage, since time.Time) []model.ChatMessage {
	out := make([]model.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if since.IsZero() || m.CreatedAt.After(since) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
