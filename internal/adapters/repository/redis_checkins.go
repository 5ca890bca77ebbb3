package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/courtmatch/internal/domain/model"
)

func (s *RedisStore) checkInsKey(id model.UserID) string { return s.key("checkins", id.String()) }

// CheckIn returns userID's check-in on date.
func (s *RedisStore) CheckIn(ctx context.Context, userID model.UserID, date time.Time) (model.CheckIn, error) {
	defer observe(backendRedis, "checkin", time.Now())

	day := model.DateOf(date).Format(model.DateLayout)
	raw, err := s.client.HGet(ctx, s.checkInsKey(userID), day).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.CheckIn{}, fmt.Errorf("user %d on %s: %w", userID, day, ErrCheckInNotFound)
	}
	if err != nil {
		return model.CheckIn{}, fmt.Errorf("checkin %d on %s: %w", userID, day, err)
	}
	return decodeCheckIn(userID, day, raw)
}

// PutCheckIn creates or replaces a check-in.
func (s *RedisStore) PutCheckIn(ctx context.Context, c model.CheckIn) (model.CheckIn, error) { //nolint:gocritic // hugeParam: check-ins are values
	defer observe(backendRedis, "put_checkin", time.Now())

	if err := s.requireUsers(ctx, c.UserID); err != nil {
		return model.CheckIn{}, err
	}
	c.Date = model.DateOf(c.Date)
	day := c.Date.Format(model.DateLayout)

	prev, err := s.CheckIn(ctx, c.UserID, c.Date)
	switch {
	case err == nil:
		c.CreatedAt = prev.CreatedAt
	case errors.Is(err, ErrCheckInNotFound):
		c.CreatedAt = s.opts.now().UTC()
	default:
		return model.CheckIn{}, err
	}

	raw, err := json.Marshal(newCheckInRecord(&c))
	if err != nil {
		return model.CheckIn{}, fmt.Errorf("encode checkin %d on %s: %w", c.UserID, day, err)
	}
	if err := s.client.HSet(ctx, s.checkInsKey(c.UserID), day, raw).Err(); err != nil {
		return model.CheckIn{}, fmt.Errorf("put checkin %d on %s: %w", c.UserID, day, err)
	}
	return c, nil
}

// DeleteCheckIn removes a check-in if present.
func (s *RedisStore) DeleteCheckIn(ctx context.Context, userID model.UserID, date time.Time) error {
	defer observe(backendRedis, "delete_checkin", time.Now())

	day := model.DateOf(date).Format(model.DateLayout)
	if err := s.client.HDel(ctx, s.checkInsKey(userID), day).Err(); err != nil {
		return fmt.Errorf("delete checkin %d on %s: %w", userID, day, err)
	}
	return nil
}

// CheckIns returns userID's check-ins within [from, to], newest first.
func (s *RedisStore) CheckIns(ctx context.Context, userID model.UserID, from, to time.Time) ([]model.CheckIn, error) {
	defer observe(backendRedis, "checkins", time.Now())

	all, err := s.client.HGetAll(ctx, s.checkInsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("checkins of %d: %w", userID, err)
	}
	// YYYY-MM-DD compares correctly as text.
	lo, hi := model.DateOf(from).Format(model.DateLayout), model.DateOf(to).Format(model.DateLayout)
	out := []model.CheckIn{}
	for day, raw := range all {
		if day < lo || day > hi {
			continue
		}
		c, err := decodeCheckIn(userID, day, []byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// checkInRecord is the stored JSON form of a check-in. The date is the hash field.
type checkInRecord struct {
	Start     *int      `json:"start,omitempty"`
	End       *int      `json:"end,omitempty"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}

func newCheckInRecord(c *model.CheckIn) checkInRecord {
	r := checkInRecord{Duration: c.DurationMinutes, CreatedAt: c.CreatedAt}
	if c.Start != nil {
		r.Start = model.Int(int(*c.Start))
	}
	if c.End != nil {
		r.End = model.Int(int(*c.End))
	}
	return r
}

func decodeCheckIn(userID model.UserID, day string, raw []byte) (model.CheckIn, error) {
	var r checkInRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.CheckIn{}, fmt.Errorf("decode checkin %d on %s: %w", userID, day, err)
	}
	date, err := model.ParseDate(day)
	if err != nil {
		return model.CheckIn{}, fmt.Errorf("checkin date %q: %w", day, err)
	}
	c := model.CheckIn{UserID: userID, Date: date, DurationMinutes: r.Duration, CreatedAt: r.CreatedAt.UTC()}
	if r.Start != nil {
		v := model.TimeOfDay(*r.Start)
		c.Start = &v
	}
	if r.End != nil {
		v := model.TimeOfDay(*r.End)
		c.End = &v
	}
	return c, nil
}
