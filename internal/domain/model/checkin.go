package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Wire layouts for check-in dates and calendar months.
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// ErrInvalidTimeOfDay is returned by ParseTimeOfDay.
var ErrInvalidTimeOfDay = errors.New("invalid time of day, expected HH:MM")

// TimeOfDay is a wall-clock time in minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS". Seconds are dropped.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, raw)
	}
	limits := []int{23, 59, 59}
	vals := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || len(p) == 0 || len(p) > 2 || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, raw)
		}
		vals[i] = n
	}
	return TimeOfDay(vals[0]*60 + vals[1]), nil
}

// String renders t as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseMonth parses YYYY-MM and returns the first and last day of that month.
// Single-digit months such as 2024-3 are accepted.
func ParseMonth(raw string) (first, last time.Time, err error) {
	ys, ms, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", raw)
	}
	year, yerr := strconv.Atoi(ys)
	month, merr := strconv.Atoi(ms)
	if yerr != nil || merr != nil || year < 1 || year > 9999 || month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", raw)
	}
	first, last = MonthBounds(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC))
	return first, last, nil
}

// MonthBounds returns the first and last day of t's month, at midnight UTC.
func MonthBounds(t time.Time) (first, last time.Time) {
	first = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// CheckIn records that a user played on a calendar day. A user has at most
// one check-in per date.
type CheckIn struct {
	UserID          UserID
	Date            time.Time // midnight UTC
	Start           *TimeOfDay
	End             *TimeOfDay
	DurationMinutes int
	CreatedAt       time.Time
}

// Clone returns a deep copy of c.
func (c *CheckIn) Clone() CheckIn {
	out := *c
	if c.Start != nil {
		v := *c.Start
		out.Start = &v
	}
	if c.End != nil {
		v := *c.End
		out.End = &v
	}
	return out
}

// CheckInPatch changes an existing or new check-in. Start and End are only
// applied when their Set flag is true, so a nil value clears the field.
type CheckInPatch struct {
	SetStart bool
	Start    *TimeOfDay
	SetEnd   bool
	End      *TimeOfDay
	Duration *int
}

// Apply merges p into c. When both times are set and End is after Start the
// duration is derived from them and p.Duration is ignored; when both are set
// but End is not after Start the stored duration is kept.
func (c *CheckIn) Apply(p *CheckInPatch) {
	if p.SetStart {
		c.Start = p.Start
	}
	if p.SetEnd {
		c.End = p.End
	}
	switch {
	case c.Start != nil && c.End != nil:
		if *c.End > *c.Start {
			c.DurationMinutes = int(*c.End - *c.Start)
		}
	case p.Duration != nil:
		c.DurationMinutes = *p.Duration
	}
}
