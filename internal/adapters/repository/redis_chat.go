package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/courtmatch/internal/domain/model"
)

// openThreadAttempts bounds WATCH retries when two callers open the same pair.
const openThreadAttempts = 5

func (s *RedisStore) threadKey(id model.ThreadID) string { return s.key("chat_thread", id.String()) }

func (s *RedisStore) userThreadsKey(id model.UserID) string {
	return s.key("chat_threads", id.String())
}

func (s *RedisStore) messagesKey(id model.ThreadID) string {
	return s.key("chat_messages", id.String())
}

// OpenThread returns the thread between a and b, creating it if needed.
func (s *RedisStore) OpenThread(ctx context.Context, a, b model.UserID) (model.ChatThread, error) {
	defer observe(backendRedis, "open_thread", time.Now())

	if err := s.requireUsers(ctx, a, b); err != nil {
		return model.ChatThread{}, err
	}
	u1, u2 := model.ThreadPair(a, b)
	pairKey := s.key("chat_pair", u1.String(), u2.String())

	var t model.ChatThread
	open := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, pairKey).Result()
		if err == nil {
			id, ok := model.ParseThreadID(raw)
			if !ok {
				return fmt.Errorf("corrupt thread id %q", raw)
			}
			t, err = s.Thread(ctx, id)
			return err
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}

		n, err := s.client.Incr(ctx, s.key("chat_thread_seq")).Result()
		if err != nil {
			return fmt.Errorf("next thread id: %w", err)
		}
		t = model.ChatThread{ID: model.ThreadID(n), User1: u1, User2: u2, CreatedAt: s.opts.now().UTC()}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, pairKey, t.ID.String(), 0)
			pipe.HSet(ctx, s.threadKey(t.ID),
				"user1", u1.String(),
				"user2", u2.String(),
				"created_at", t.CreatedAt.Format(time.RFC3339Nano),
			)
			pipe.SAdd(ctx, s.userThreadsKey(u1), t.ID.String())
			pipe.SAdd(ctx, s.userThreadsKey(u2), t.ID.String())
			return nil
		})
		return err
	}

	for range openThreadAttempts {
		err := s.client.Watch(ctx, open, pairKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return model.ChatThread{}, fmt.Errorf("open thread %d/%d: %w", u1, u2, err)
		}
		return t, nil
	}
	return model.ChatThread{}, fmt.Errorf("open thread %d/%d: %w", u1, u2, redis.TxFailedErr)
}

// Thread returns a thread by id.
func (s *RedisStore) Thread(ctx context.Context, id model.ThreadID) (model.ChatThread, error) {
	defer observe(backendRedis, "thread", time.Now())

	fields, err := s.client.HGetAll(ctx, s.threadKey(id)).Result()
	if err != nil {
		return model.ChatThread{}, fmt.Errorf("thread %d: %w", id, err)
	}
	return decodeThread(id, fields)
}

// Threads lists userID's threads, newest first.
func (s *RedisStore) Threads(ctx context.Context, userID model.UserID) ([]model.ChatThread, error) {
	defer observe(backendRedis, "threads", time.Now())

	members, err := s.client.SMembers(ctx, s.userThreadsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("threads of %d: %w", userID, err)
	}

	ids := make([]model.ThreadID, 0, len(members))
	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, m := range members {
			id, ok := model.ParseThreadID(m)
			if !ok {
				continue
			}
			ids = append(ids, id)
			cmds = append(cmds, pipe.HGetAll(ctx, s.threadKey(id)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("threads of %d: %w", userID, err)
	}

	out := make([]model.ChatThread, 0, len(ids))
	for i, cmd := range cmds {
		t, err := decodeThread(ids[i], cmd.Val())
		if errors.Is(err, ErrThreadNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sortThreads(out)
	return out, nil
}

// AddMessage appends a message to its thread.
func (s *RedisStore) AddMessage(ctx context.Context, m model.ChatMessage) (model.ChatMessage, error) {
	defer observe(backendRedis, "add_message", time.Now())

	if err := s.requireThread(ctx, m.ThreadID); err != nil {
		return model.ChatMessage{}, err
	}
	if err := s.requireUsers(ctx, m.SenderID); err != nil {
		return model.ChatMessage{}, err
	}

	n, err := s.client.Incr(ctx, s.key("chat_message_seq")).Result()
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("next message id: %w", err)
	}
	m.ID = model.MessageID(n)
	m.CreatedAt = s.opts.now().UTC()

	raw, err := json.Marshal(messageRecord{ID: m.ID, Sender: m.SenderID, Content: m.Content, CreatedAt: m.CreatedAt})
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("encode message: %w", err)
	}
	if err := s.client.RPush(ctx, s.messagesKey(m.ThreadID), raw).Err(); err != nil {
		return model.ChatMessage{}, fmt.Errorf("add message to %d: %w", m.ThreadID, err)
	}
	return m, nil
}

// Messages returns a thread's messages after since, oldest first.
func (s *RedisStore) Messages(ctx context.Context, threadID model.ThreadID, since time.Time) ([]model.ChatMessage, error) {
	defer observe(backendRedis, "messages", time.Now())

	if err := s.requireThread(ctx, threadID); err != nil {
		return nil, err
	}
	items, err := s.client.LRange(ctx, s.messagesKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("messages of %d: %w", threadID, err)
	}

	msgs := make([]model.ChatMessage, 0, len(items))
	for _, item := range items {
		var r messageRecord
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode message in %d: %w", threadID, err)
		}
		msgs = append(msgs, model.ChatMessage{
			ID:        r.ID,
			ThreadID:  threadID,
			SenderID:  r.Sender,
			Content:   r.Content,
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return messagesSince(msgs, since), nil
}

func (s *RedisStore) requireThread(ctx context.Context, id model.ThreadID) error {
	n, err := s.client.Exists(ctx, s.threadKey(id)).Result()
	if err != nil {
		return fmt.Errorf("thread %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("thread %d: %w", id, ErrThreadNotFound)
	}
	return nil
}

// messageRecord is the stored JSON form of a chat message.
type messageRecord struct {
	ID        model.MessageID `json:"id"`
	Sender    model.UserID    `json:"sender"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

func decodeThread(id model.ThreadID, fields map[string]string) (model.ChatThread, error) {
	if len(fields) == 0 {
		return model.ChatThread{}, fmt.Errorf("thread %d: %w", id, ErrThreadNotFound)
	}
	u1, ok1 := model.ParseUserID(fields["user1"])
	u2, ok2 := model.ParseUserID(fields["user2"])
	if !ok1 || !ok2 {
		return model.ChatThread{}, fmt.Errorf("thread %d: corrupt participants", id)
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return model.ChatThread{}, fmt.Errorf("thread %d created_at: %w", id, err)
	}
	return model.ChatThread{ID: id, User1: u1, User2: u2, CreatedAt: created.UTC()}, nil
}
