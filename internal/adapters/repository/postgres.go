package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/courtmatch/internal/domain/model"
)

const backendPostgres = "postgres"

// Postgres error codes mapped onto store errors.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         BIGSERIAL PRIMARY KEY,
	username   TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	user_id               BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
	skill_level           DOUBLE PRECISION,
	age                   INTEGER,
	location              TEXT NOT NULL DEFAULT '',
	preferred_court_types TEXT[] NOT NULL DEFAULT '{}',
	preferred_match_types TEXT[] NOT NULL DEFAULT '{}',
	play_intentions       TEXT[] NOT NULL DEFAULT '{}',
	preferred_languages   TEXT[] NOT NULL DEFAULT '{}',
	display_name          TEXT NOT NULL DEFAULT '',
	bio                   TEXT NOT NULL DEFAULT '',
	gender                TEXT NOT NULL DEFAULT '',
	years_playing         INTEGER,
	dominant_hand         TEXT NOT NULL DEFAULT '',
	backhand_type         TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS friends (
	user_id   BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	friend_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (user_id, friend_id)
);

CREATE TABLE IF NOT EXISTS checkins (
	user_id          BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	date             DATE NOT NULL,
	start_minute     INTEGER,
	end_minute       INTEGER,
	duration_minutes INTEGER NOT NULL DEFAULT 0 CHECK (duration_minutes >= 0),
	created_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, date)
);

CREATE TABLE IF NOT EXISTS chat_threads (
	id         BIGSERIAL PRIMARY KEY,
	user1_id   BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	user2_id   BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (user1_id, user2_id),
	CHECK (user1_id < user2_id)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         BIGSERIAL PRIMARY KEY,
	thread_id  BIGINT NOT NULL REFERENCES chat_threads(id) ON DELETE CASCADE,
	sender_id  BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS chat_messages_thread_created_idx ON chat_messages (thread_id, created_at, id);
`

// PostgresStore implements Store on PostgreSQL through database/sql and lib/pq.
type PostgresStore struct {
	db   *sql.DB
	opts storeOptions
}

// NewPostgresStore opens a connection pool for dsn, verifies it and ensures
// the schema exists.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresStoreFromDB(db, opts...)
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing pool. The schema is not touched.
func NewPostgresStoreFromDB(db *sql.DB, opts ...Option) *PostgresStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PostgresStore{db: db, opts: o}
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// CreateUser registers a username.
func (s *PostgresStore) CreateUser(ctx context.Context, username string) (model.User, error) {
	defer observe(backendPostgres, "create_user", time.Now())

	u := model.User{Username: username, CreatedAt: s.opts.now().UTC()}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, created_at) VALUES ($1, $2) RETURNING id`,
		username, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return model.User{}, fmt.Errorf("create user %q: %w", username, mapPQError(err))
	}
	return u, nil
}

// User returns a user by id.
func (s *PostgresStore) User(ctx context.Context, id model.UserID) (model.User, error) {
	defer observe(backendPostgres, "user", time.Now())

	u := model.User{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT username, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.Username, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("user %d: %w", id, err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// UpsertProfile creates or replaces a profile.
func (s *PostgresStore) UpsertProfile(ctx context.Context, p model.Profile) error { //nolint:gocritic // hugeParam: profiles are values
	defer observe(backendPostgres, "upsert_profile", time.Now())

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, `+prefixed("")+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id) DO UPDATE SET
			skill_level = EXCLUDED.skill_level,
			age = EXCLUDED.age,
			location = EXCLUDED.location,
			preferred_court_types = EXCLUDED.preferred_court_types,
			preferred_match_types = EXCLUDED.preferred_match_types,
			play_intentions = EXCLUDED.play_intentions,
			preferred_languages = EXCLUDED.preferred_languages,
			display_name = EXCLUDED.display_name,
			bio = EXCLUDED.bio,
			gender = EXCLUDED.gender,
			years_playing = EXCLUDED.years_playing,
			dominant_hand = EXCLUDED.dominant_hand,
			backhand_type = EXCLUDED.backhand_type`,
		p.UserID, nullFloat(p.SkillLevel), nullInt(p.Age), p.Location,
		pq.Array(codes(p.PreferredCourtTypes)), pq.Array(codes(p.PreferredMatchTypes)),
		pq.Array(codes(p.PlayIntentions)), pq.Array(codes(p.PreferredLanguages)),
		p.DisplayName, p.Bio, p.Gender, nullInt(p.YearsPlaying), p.DominantHand, p.BackhandType,
	)
	if err != nil {
		return fmt.Errorf("upsert profile %d: %w", p.UserID, mapPQError(err))
	}
	return nil
}

// Profile returns a user's profile.
func (s *PostgresStore) Profile(ctx context.Context, id model.UserID) (model.Profile, error) {
	defer observe(backendPostgres, "profile", time.Now())

	var (
		hasProfile bool
		row        profileRow
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT p.user_id IS NOT NULL, `+prefixed("p.")+`
		FROM users u LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1`, id,
	).Scan(append([]any{&hasProfile}, row.dest()...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("profile %d: %w", id, err)
	}
	if !hasProfile {
		return model.Profile{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return row.profile(id), nil
}

// AddFriend records a one-way friendship.
func (s *PostgresStore) AddFriend(ctx context.Context, userID, friendID model.UserID) error {
	defer observe(backendPostgres, "add_friend", time.Now())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO friends (user_id, friend_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, friendID,
	)
	if err != nil {
		return fmt.Errorf("add friend %d -> %d: %w", userID, friendID, mapPQError(err))
	}
	return nil
}

// RemoveFriend deletes a friendship edge.
func (s *PostgresStore) RemoveFriend(ctx context.Context, userID, friendID model.UserID) error {
	defer observe(backendPostgres, "remove_friend", time.Now())

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM friends WHERE user_id = $1 AND friend_id = $2`, userID, friendID,
	); err != nil {
		return fmt.Errorf("remove friend %d -> %d: %w", userID, friendID, err)
	}
	return nil
}

// FriendIDs returns userID's friends in ascending order.
func (s *PostgresStore) FriendIDs(ctx context.Context, userID model.UserID) ([]model.UserID, error) {
	defer observe(backendPostgres, "friend_ids", time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT friend_id FROM friends WHERE user_id = $1 ORDER BY friend_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("friends of %d: %w", userID, err)
	}
	defer rows.Close()

	out := []model.UserID{}
	for rows.Next() {
		var id model.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Candidates returns every user with its profile, ordered by id.
func (s *PostgresStore) Candidates(ctx context.Context) ([]model.Candidate, error) {
	defer observe(backendPostgres, "candidates", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, p.user_id IS NOT NULL, `+prefixed("p.")+`
		FROM users u LEFT JOIN profiles p ON p.user_id = u.id
		ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}
	defer rows.Close()

	out := []model.Candidate{}
	for rows.Next() {
		var (
			c       model.Candidate
			present bool
			row     profileRow
		)
		if err := rows.Scan(append([]any{&c.UserID, &present}, row.dest()...)...); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if present {
			p := row.profile(c.UserID)
			c.Profile = &p
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of registered users.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// profileRow is the nullable scan target for a profiles row.
type profileRow struct {
	skill        sql.NullFloat64
	age          sql.NullInt64
	location     sql.NullString
	courts       pq.StringArray
	matches      pq.StringArray
	intentions   pq.StringArray
	languages    pq.StringArray
	displayName  sql.NullString
	bio          sql.NullString
	gender       sql.NullString
	yearsPlaying sql.NullInt64
	hand         sql.NullString
	backhand     sql.NullString
}

func (r *profileRow) dest() []any {
	return []any{
		&r.skill, &r.age, &r.location, &r.courts, &r.matches, &r.intentions, &r.languages,
		&r.displayName, &r.bio, &r.gender, &r.yearsPlaying, &r.hand, &r.backhand,
	}
}

func (r *profileRow) profile(id model.UserID) model.Profile {
	p := model.Profile{
		UserID:              id,
		Location:            r.location.String,
		PreferredCourtTypes: []string(r.courts),
		PreferredMatchTypes: []string(r.matches),
		PlayIntentions:      []string(r.intentions),
		PreferredLanguages:  []string(r.languages),
		DisplayName:         r.displayName.String,
		Bio:                 r.bio.String,
		Gender:              r.gender.String,
		DominantHand:        r.hand.String,
		BackhandType:        r.backhand.String,
	}
	if r.skill.Valid {
		p.SkillLevel = model.Float(r.skill.Float64)
	}
	if r.age.Valid {
		p.Age = model.Int(int(r.age.Int64))
	}
	if r.yearsPlaying.Valid {
		p.YearsPlaying = model.Int(int(r.yearsPlaying.Int64))
	}
	return p
}

func prefixed(alias string) string {
	return alias + `skill_level, ` + alias + `age, ` + alias + `location, ` +
		alias + `preferred_court_types, ` + alias + `preferred_match_types, ` +
		alias + `play_intentions, ` + alias + `preferred_languages, ` +
		alias + `display_name, ` + alias + `bio, ` + alias + `gender, ` +
		alias + `years_playing, ` + alias + `dominant_hand, ` + alias + `backhand_type`
}

func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Message)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrUserNotFound, pqErr.Message)
		}
	}
	return err
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// codes keeps NOT NULL array columns non-null.
func codes(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
