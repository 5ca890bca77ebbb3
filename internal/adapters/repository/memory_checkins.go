package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/okian/courtmatch/internal/domain/model"
)

// CheckIn returns userID's check-in on date.
func (s *MemoryStore) CheckIn(_ context.Context, userID model.UserID, date time.Time) (model.CheckIn, error) {
	defer observe(backendMemory, "checkin", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	date = model.DateOf(date)
	c, ok := s.checkins[userID][date]
	if !ok {
		return model.CheckIn{}, fmt.Errorf("user %d on %s: %w", userID, date.Format(model.DateLayout), ErrCheckInNotFound)
	}
	return c.Clone(), nil
}

// PutCheckIn creates or replaces a check-in.
func (s *MemoryStore) PutCheckIn(_ context.Context, c model.CheckIn) (model.CheckIn, error) { //nolint:gocritic // hugeParam: check-ins are values
	defer observe(backendMemory, "put_checkin", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[c.UserID]; !ok {
		return model.CheckIn{}, fmt.Errorf("user %d: %w", c.UserID, ErrUserNotFound)
	}
	c.Date = model.DateOf(c.Date)
	byDate, ok := s.checkins[c.UserID]
	if !ok {
		byDate = make(map[time.Time]model.CheckIn)
		s.checkins[c.UserID] = byDate
	}
	if prev, ok := byDate[c.Date]; ok {
		c.CreatedAt = prev.CreatedAt
	} else {
		c.CreatedAt = s.opts.now().UTC()
	}
	byDate[c.Date] = c.Clone()
	return c.Clone(), nil
}

// DeleteCheckIn removes a check-in if present.
func (s *MemoryStore) DeleteCheckIn(_ context.Context, userID model.UserID, date time.Time) error {
	defer observe(backendMemory, "delete_checkin", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.checkins[userID], model.DateOf(date))
	return nil
}

// CheckIns returns userID's check-ins within [from, to], newest first.
func (s *MemoryStore) CheckIns(_ context.Context, userID model.UserID, from, to time.Time) ([]model.CheckIn, error) {
	defer observe(backendMemory, "checkins", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	from, to = model.DateOf(from), model.DateOf(to)
	out := []model.CheckIn{}
	for date, c := range s.checkins[userID] {
		if date.Before(from) || date.After(to) {
			continue
		}
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
