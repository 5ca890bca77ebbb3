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

// Default constraint name of chat_messages.thread_id.
const messagesThreadFK = "chat_messages_thread_id_fkey"

// OpenThread returns the thread between a and b, creating it if needed.
func (s *PostgresStore) OpenThread(ctx context.Context, a, b model.UserID) (model.ChatThread, error) {
	defer observe(backendPostgres, "open_thread", time.Now())

	u1, u2 := model.ThreadPair(a, b)
	t := model.ChatThread{User1: u1, User2: u2}
	// The no-op update makes RETURNING yield the existing row on conflict.
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO chat_threads (user1_id, user2_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (user1_id, user2_id) DO UPDATE SET user1_id = EXCLUDED.user1_id
		RETURNING id, created_at`,
		u1, u2, s.opts.now().UTC(),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return model.ChatThread{}, fmt.Errorf("open thread %d/%d: %w", u1, u2, mapPQError(err))
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

// Thread returns a thread by id.
func (s *PostgresStore) Thread(ctx context.Context, id model.ThreadID) (model.ChatThread, error) {
	defer observe(backendPostgres, "thread", time.Now())

	t := model.ChatThread{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT user1_id, user2_id, created_at FROM chat_threads WHERE id = $1`, id,
	).Scan(&t.User1, &t.User2, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ChatThread{}, fmt.Errorf("thread %d: %w", id, ErrThreadNotFound)
	}
	if err != nil {
		return model.ChatThread{}, fmt.Errorf("thread %d: %w", id, err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

// Threads lists userID's threads, newest first.
func (s *PostgresStore) Threads(ctx context.Context, userID model.UserID) ([]model.ChatThread, error) {
	defer observe(backendPostgres, "threads", time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user1_id, user2_id, created_at FROM chat_threads
		WHERE user1_id = $1 OR user2_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("threads of %d: %w", userID, err)
	}
	defer rows.Close()

	out := []model.ChatThread{}
	for rows.Next() {
		var t model.ChatThread
		if err := rows.Scan(&t.ID, &t.User1, &t.User2, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddMessage appends a message to its thread.
func (s *PostgresStore) AddMessage(ctx context.Context, m model.ChatMessage) (model.ChatMessage, error) {
	defer observe(backendPostgres, "add_message", time.Now())

	m.CreatedAt = s.opts.now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (thread_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		m.ThreadID, m.SenderID, m.Content, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation && pqErr.Constraint == messagesThreadFK {
			return model.ChatMessage{}, fmt.Errorf("thread %d: %w", m.ThreadID, ErrThreadNotFound)
		}
		return model.ChatMessage{}, fmt.Errorf("add message to %d: %w", m.ThreadID, mapPQError(err))
	}
	return m, nil
}

// Messages returns a thread's messages after since, oldest first.
func (s *PostgresStore) Messages(ctx context.Context, threadID model.ThreadID, since time.Time) ([]model.ChatMessage, error) {
	defer observe(backendPostgres, "messages", time.Now())

	if _, err := s.Thread(ctx, threadID); err != nil {
		return nil, err
	}

	var after sql.NullTime
	if !since.IsZero() {
		after = sql.NullTime{Time: since, Valid: true}
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, content, created_at FROM chat_messages
		WHERE thread_id = $1 AND ($2::timestamptz IS NULL OR created_at > $2)
		ORDER BY created_at, id`, threadID, after)
	if err != nil {
		return nil, fmt.Errorf("messages of %d: %w", threadID, err)
	}
	defer rows.Close()

	out := []model.ChatMessage{}
	for rows.Next() {
		m := model.ChatMessage{ThreadID: threadID}
		if err := rows.Scan(&m.ID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}
