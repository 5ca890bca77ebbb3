package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/courtmatch/internal/domain/model"
)

// Dates travel as YYYY-MM-DD text so the session time zone cannot shift them.
const checkInColumns = `to_char(date, 'YYYY-MM-DD'), start_minute, end_minute, duration_minutes, created_at`

// CheckIn returns userID's check-in on date.
func (s *PostgresStore) CheckIn(ctx context.Context, userID model.UserID, date time.Time) (model.CheckIn, error) {
	defer observe(backendPostgres, "checkin", time.Now())

	day := model.DateOf(date).Format(model.DateLayout)
	var row checkInRow
	err := s.db.QueryRowContext(ctx,
		`SELECT `+checkInColumns+` FROM checkins WHERE user_id = $1 AND date = $2::date`,
		userID, day,
	).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CheckIn{}, fmt.Errorf("user %d on %s: %w", userID, day, ErrCheckInNotFound)
	}
	if err != nil {
		return model.CheckIn{}, fmt.Errorf("checkin %d on %s: %w", userID, day, err)
	}
	return row.checkIn(userID)
}

// PutCheckIn creates or replaces a check-in.
func (s *PostgresStore) PutCheckIn(ctx context.Context, c model.CheckIn) (model.CheckIn, error) { //nolint:gocritic // hugeParam: check-ins are values
	defer observe(backendPostgres, "put_checkin", time.Now())

	c.Date = model.DateOf(c.Date)
	day := c.Date.Format(model.DateLayout)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO checkins (user_id, date, start_minute, end_minute, duration_minutes, created_at)
		VALUES ($1, $2::date, $3, $4, $5, $6)
		ON CONFLICT (user_id, date) DO UPDATE SET
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			duration_minutes = EXCLUDED.duration_minutes
		RETURNING created_at`,
		c.UserID, day, nullMinute(c.Start), nullMinute(c.End), c.DurationMinutes, s.opts.now().UTC(),
	).Scan(&c.CreatedAt)
	if err != nil {
		return model.CheckIn{}, fmt.Errorf("put checkin %d on %s: %w", c.UserID, day, mapPQError(err))
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

// DeleteCheckIn removes a check-in if present.
func (s *PostgresStore) DeleteCheckIn(ctx context.Context, userID model.UserID, date time.Time) error {
	defer observe(backendPostgres, "delete_checkin", time.Now())

	day := model.DateOf(date).Format(model.DateLayout)
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM checkins WHERE user_id = $1 AND date = $2::date`, userID, day,
	); err != nil {
		return fmt.Errorf("delete checkin %d on %s: %w", userID, day, err)
	}
	return nil
}

// CheckIns returns userID's check-ins within [from, to], newest first.
func (s *PostgresStore) CheckIns(ctx context.Context, userID model.UserID, from, to time.Time) ([]model.CheckIn, error) {
	defer observe(backendPostgres, "checkins", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+checkInColumns+` FROM checkins
		WHERE user_id = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date DESC`,
		userID, model.DateOf(from).Format(model.DateLayout), model.DateOf(to).Format(model.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("checkins of %d: %w", userID, err)
	}
	defer rows.Close()

	out := []model.CheckIn{}
	for rows.Next() {
		var row checkInRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		c, err := row.checkIn(userID)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// checkInRow is the nullable scan target for a checkins row.
type checkInRow struct {
	date     string
	start    sql.NullInt64
	end      sql.NullInt64
	duration int
	created  time.Time
}

func (r *checkInRow) dest() []any {
	return []any{&r.date, &r.start, &r.end, &r.duration, &r.created}
}

func (r *checkInRow) checkIn(userID model.UserID) (model.CheckIn, error) {
	date, err := model.ParseDate(r.date)
	if err != nil {
		return model.CheckIn{}, fmt.Errorf("checkin date %q: %w", r.date, err)
	}
	c := model.CheckIn{
		UserID:          userID,
		Date:            date,
		DurationMinutes: r.duration,
		CreatedAt:       r.created.UTC(),
	}
	if r.start.Valid {
		v := model.TimeOfDay(r.start.Int64)
		c.Start = &v
	}
	if r.end.Valid {
		v := model.TimeOfDay(r.end.Int64)
		c.End = &v
	}
	return c, nil
}

func nullMinute(t *model.TimeOfDay) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*t), Valid: true}
}
