package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/courtmatch/internal/adapters/repository"
	"github.com/okian/courtmatch/internal/domain/model"
	"github.com/okian/courtmatch/pkg/logger"
	"github.com/okian/courtmatch/pkg/metrics"
)

// Check-in actions used as metric labels.
const (
	checkInSet   = "set"
	checkInClear = "clear"
)

// CheckIns returns userID's check-ins dated within [from, to], newest first.
func (s *Service) CheckIns(ctx context.Context, userID model.UserID, from, to time.Time) ([]model.CheckIn, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	if _, err := store.User(ctx, userID); err != nil {
		return nil, err
	}
	return store.CheckIns(ctx, userID, from, to)
}

// SetCheckIn applies patch to userID's check-in on date, creating it first
// if the day has none.
func (s *Service) SetCheckIn(ctx context.Context, userID model.UserID, date time.Time, patch *model.CheckInPatch) (model.CheckIn, error) {
	if patch == nil {
		patch = &model.CheckInPatch{}
	}
	if patch.Duration != nil && *patch.Duration < 0 {
		return model.CheckIn{}, fmt.Errorf("%w: duration must not be negative", ErrInvalidCheckIn)
	}
	store, _, err := s.components()
	if err != nil {
		return model.CheckIn{}, err
	}

	c, err := store.CheckIn(ctx, userID, date)
	switch {
	case errors.Is(err, repository.ErrCheckInNotFound):
		c = model.CheckIn{UserID: userID, Date: model.DateOf(date)}
	case err != nil:
		return model.CheckIn{}, err
	}
	c.Apply(patch)

	c, err = store.PutCheckIn(ctx, c)
	if err != nil {
		return model.CheckIn{}, err
	}
	metrics.RecordCheckIn(checkInSet)
	s.logger.Debug(ctx, "check-in set",
		logger.Int64("userID", int64(userID)),
		logger.String("date", c.Date.Format(model.DateLayout)),
		logger.Int("duration", c.DurationMinutes),
	)
	return c, nil
}

// ClearCheckIn removes userID's check-in on date. Clearing a day without a
// check-in succeeds.
func (s *Service) ClearCheckIn(ctx context.Context, userID model.UserID, date time.Time) error {
	store, _, err := s.components()
	if err != nil {
		return err
	}
	if _, err := store.User(ctx, userID); err != nil {
		return err
	}
	if err := store.DeleteCheckIn(ctx, userID, date); err != nil {
		return err
	}
	metrics.RecordCheckIn(checkInClear)
	return nil
}
