package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/courtmatch/internal/adapters/repository"
	"github.com/okian/courtmatch/internal/domain/model"
	"github.com/okian/courtmatch/pkg/logger"
	"github.com/okian/courtmatch/pkg/metrics"
)

// ThreadDetail is a chat thread as seen by one participant.
type ThreadDetail struct {
	Thread model.ChatThread
	Other  UserDetail
}

// MessageDetail is a chat message with its sender.
type MessageDetail struct {
	Message model.ChatMessage
	Sender  UserDetail
}

// ChatThreads lists the threads userID takes part in, newest first. Threads
// whose other participant no longer exists are skipped.
func (s *Service) ChatThreads(ctx context.Context, userID model.UserID) ([]ThreadDetail, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	if _, err := store.User(ctx, userID); err != nil {
		return nil, err
	}
	threads, err := store.Threads(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]ThreadDetail, 0, len(threads))
	for _, t := range threads {
		other, err := s.userDetail(ctx, store, t.Other(userID))
		if errors.Is(err, repository.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ThreadDetail{Thread: t, Other: other})
	}
	return out, nil
}

// OpenChat returns the thread between userID and otherID, creating it on
// first use.
func (s *Service) OpenChat(ctx context.Context, userID, otherID model.UserID) (ThreadDetail, error) {
	if userID == otherID {
		return ThreadDetail{}, ErrSelfChat
	}
	store, _, err := s.components()
	if err != nil {
		return ThreadDetail{}, err
	}
	t, err := store.OpenThread(ctx, userID, otherID)
	if err != nil {
		return ThreadDetail{}, err
	}
	other, err := s.userDetail(ctx, store, otherID)
	if err != nil {
		return ThreadDetail{}, err
	}
	metrics.RecordThreadOpened()
	return ThreadDetail{Thread: t, Other: other}, nil
}

// ChatMessages returns the messages of threadID created after since, oldest
// first. A zero since returns them all. Only participants may read a thread.
func (s *Service) ChatMessages(ctx context.Context, userID model.UserID, threadID model.ThreadID, since time.Time) ([]MessageDetail, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	t, err := participantThread(ctx, store, userID, threadID)
	if err != nil {
		return nil, err
	}
	msgs, err := store.Messages(ctx, threadID, since)
	if err != nil {
		return nil, err
	}

	senders := make(map[model.UserID]UserDetail, 2)
	for _, id := range []model.UserID{t.User1, t.User2} {
		d, err := s.userDetail(ctx, store, id)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		if err == nil {
			senders[id] = d
		}
	}

	out := make([]MessageDetail, len(msgs))
	for i, m := range msgs {
		sender, ok := senders[m.SenderID]
		if !ok {
			sender = UserDetail{User: model.User{ID: m.SenderID}}
		}
		out[i] = MessageDetail{Message: m, Sender: sender}
	}
	return out, nil
}

// PostMessage appends content to threadID on behalf of userID. Content is
// trimmed and must not be empty.
func (s *Service) PostMessage(ctx context.Context, userID model.UserID, threadID model.ThreadID, content string) (MessageDetail, error) {
	store, _, err := s.components()
	if err != nil {
		return MessageDetail{}, err
	}
	if _, err := participantThread(ctx, store, userID, threadID); err != nil {
		return MessageDetail{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return MessageDetail{}, ErrEmptyMessage
	}

	m, err := store.AddMessage(ctx, model.ChatMessage{ThreadID: threadID, SenderID: userID, Content: content})
	if err != nil {
		return MessageDetail{}, err
	}
	sender, err := s.userDetail(ctx, store, userID)
	if err != nil {
		return MessageDetail{}, err
	}
	metrics.RecordMessagePosted()
	s.logger.Debug(ctx, "chat message posted",
		logger.Int64("userID", int64(userID)),
		logger.Int64("threadID", int64(threadID)),
		logger.Int64("messageID", int64(m.ID)),
	)
	return MessageDetail{Message: m, Sender: sender}, nil
}

// participantThread loads threadID and checks that userID takes part in it.
func participantThread(ctx context.Context, store repository.Store, userID model.UserID, threadID model.ThreadID) (model.ChatThread, error) {
	t, err := store.Thread(ctx, threadID)
	if err != nil {
		return model.ChatThread{}, err
	}
	if !t.Has(userID) {
		return model.ChatThread{}, fmt.Errorf("thread %d: %w", threadID, ErrNotParticipant)
	}
	return t, nil
}

func (s *Service) userDetail(ctx context.Context, store repository.Store, id model.UserID) (UserDetail, error) {
	u, err := store.User(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	return UserDetail{User: u, Profile: s.optionalProfile(ctx, store, id)}, nil
}
