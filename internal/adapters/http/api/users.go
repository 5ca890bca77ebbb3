package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/courtmatch/internal/app"
	"github.com/okian/courtmatch/internal/domain/model"
)

// UserDependencies defines the interface for account operations.
type UserDependencies interface {
	RegisterUser(ctx context.Context, username string) (model.User, error)
	UserDetail(ctx context.Context, id model.UserID) (service.UserDetail, error)
}

// UsersHandler handles registration and user lookups.
type UsersHandler struct {
	deps UserDependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

type registerRequest struct {
	Username string `json:"username"`
}

// HandleRegister handles POST /users requests.
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeServiceError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	u, err := h.deps.RegisterUser(r.Context(), req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	d, err := h.deps.UserDetail(r.Context(), u.ID)
	if err != nil {
		d = service.UserDetail{User: u}
	}
	writeJSON(w, http.StatusCreated, newUserResponse(d))
}

// HandleGetUser handles GET /users/{id} requests.
func (h *UsersHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	if _, err := callerID(r); err != nil {
		writeServiceError(w, err)
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeServiceError(w, fmt.Errorf("%w: invalid user id", ErrBadRequest))
		return
	}
	d, err := h.deps.UserDetail(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(d))
}
