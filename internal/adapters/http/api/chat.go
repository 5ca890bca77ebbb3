package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/courtmatch/internal/adapters/repository"
	service "github.com/okian/courtmatch/internal/app"
	"github.com/okian/courtmatch/internal/domain/model"
)

// ChatDependencies defines the interface for direct messaging.
type ChatDependencies interface {
	ChatThreads(ctx context.Context, userID model.UserID) ([]service.ThreadDetail, error)
	OpenChat(ctx context.Context, userID, otherID model.UserID) (service.ThreadDetail, error)
	ChatMessages(ctx context.Context, userID model.UserID, threadID model.ThreadID, since time.Time) ([]service.MessageDetail, error)
	PostMessage(ctx context.Context, userID model.UserID, threadID model.ThreadID, content string) (service.MessageDetail, error)
}

// ChatHandler serves chat threads between two users and their messages.
type ChatHandler struct {
	deps ChatDependencies
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(deps ChatDependencies) *ChatHandler {
	return &ChatHandler{deps: deps}
}

// briefUserResponse mirrors the OpenAPI BriefUser schema.
type briefUserResponse struct {
	ID       model.UserID     `json:"id"`
	Username string           `json:"username"`
	Profile  *profileResponse `json:"profile"`
}

type threadResponse struct {
	ID        model.ThreadID    `json:"id"`
	OtherUser briefUserResponse `json:"other_user"`
	CreatedAt time.Time         `json:"created_at"`
}

type messageResponse struct {
	ID        model.MessageID   `json:"id"`
	Sender    briefUserResponse `json:"sender"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
}

func newBriefUser(d service.UserDetail) briefUserResponse {
	return briefUserResponse{ID: d.User.ID, Username: d.User.Username, Profile: newProfileResponse(d.Profile)}
}

func newThreadResponse(d *service.ThreadDetail) threadResponse {
	return threadResponse{ID: d.Thread.ID, OtherUser: newBriefUser(d.Other), CreatedAt: d.Thread.CreatedAt}
}

func newMessageResponse(d *service.MessageDetail) messageResponse {
	return messageResponse{
		ID:        d.Message.ID,
		Sender:    newBriefUser(d.Sender),
		Content:   d.Message.Content,
		CreatedAt: d.Message.CreatedAt,
	}
}

type openThreadRequest struct {
	OtherUserID optionalNumber `json:"other_user_id"`
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// HandleThreads handles GET /chat/threads (list) and POST /chat/threads
// (open or reuse the thread with other_user_id).
func (h *ChatHandler) HandleThreads(w http.ResponseWriter, r *http.Request) {
	me, err := callerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		threads, err := h.deps.ChatThreads(r.Context(), me)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]threadResponse, len(threads))
		for i := range threads {
			out[i] = newThreadResponse(&threads[i])
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req openThreadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeServiceError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		other, ok := model.ParseUserID(req.OtherUserID.raw)
		if !ok {
			writeServiceError(w, fmt.Errorf("%w: other_user_id must be a positive integer", ErrBadRequest))
			return
		}
		t, err := h.deps.OpenChat(r.Context(), me, other)
		if errors.Is(err, repository.ErrUserNotFound) {
			writeServiceError(w, fmt.Errorf("%w: invalid other_user_id", ErrBadRequest))
			return
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newThreadResponse(&t))

	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleMessages handles GET and POST /chat/threads/{id}/messages. GET
// accepts an RFC 3339 since parameter; a malformed value is ignored.
func (h *ChatHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
		return
	}
	me, err := callerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	threadID, ok := model.ParseThreadID(r.PathValue("id"))
	if !ok {
		writeServiceError(w, fmt.Errorf("%w: invalid thread id", ErrBadRequest))
		return
	}

	if r.Method == http.MethodGet {
		var since time.Time
		if raw := r.URL.Query().Get("since"); raw != "" {
			if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				since = t
			}
		}
		msgs, err := h.deps.ChatMessages(r.Context(), me, threadID, since)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]messageResponse, len(msgs))
		for i := range msgs {
			out[i] = newMessageResponse(&msgs[i])
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	m, err := h.deps.PostMessage(r.Context(), me, threadID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMessageResponse(&m))
}
