package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/courtmatch/internal/app"
	"github.com/okian/courtmatch/internal/domain/model"
)

// FriendDependencies defines the interface for friendship operations.
type FriendDependencies interface {
	AddFriend(ctx context.Context, userID, friendID model.UserID) (service.UserDetail, error)
	RemoveFriend(ctx context.Context, userID, friendID model.UserID) error
	Friends(ctx context.Context, userID model.UserID) ([]service.UserDetail, error)
}

// FriendsHandler handles the caller's friend list.
type FriendsHandler struct {
	deps FriendDependencies
}

// NewFriendsHandler creates a new friends handler.
func NewFriendsHandler(deps FriendDependencies) *FriendsHandler {
	return &FriendsHandler{deps: deps}
}

type addFriendRequest struct {
	FriendID model.UserID `json:"friend_id"`
}

// HandleFriends handles GET /friends (list) and POST /friends (add).
func (h *FriendsHandler) HandleFriends(w http.ResponseWriter, r *http.Request) {
	me, err := callerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		friends, err := h.deps.Friends(r.Context(), me)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]userResponse, len(friends))
		for i, f := range friends {
			out[i] = newUserResponse(f)
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req addFriendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeServiceError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		if req.FriendID < 1 {
			writeServiceError(w, fmt.Errorf("%w: friend_id must be a positive integer", ErrBadRequest))
			return
		}
		f, err := h.deps.AddFriend(r.Context(), me, req.FriendID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newUserResponse(f))

	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// HandleDeleteFriend handles DELETE /friends/{id}. Removing a friendship
// that does not exist still succeeds.
func (h *FriendsHandler) HandleDeleteFriend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w, http.MethodDelete)
		return
	}
	me, err := callerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, fmt.Errorf("%w: invalid friend id", ErrBadRequest))
		return
	}
	if err := h.deps.RemoveFriend(r.Context(), me, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
