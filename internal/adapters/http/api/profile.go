package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/courtmatch/internal/app"
	"github.com/okian/courtmatch/internal/domain/model"
)

// ProfileDependencies defines the interface for profile operations.
type ProfileDependencies interface {
	UserDetail(ctx context.Context, id model.UserID) (service.UserDetail, error)
	UpdateProfile(ctx context.Context, userID model.UserID, update func(*model.Profile)) (model.Profile, error)
}

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	deps ProfileDependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps ProfileDependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

// HandleProfile handles GET, PUT and PATCH /profile requests. GET returns
// the caller with its profile; PUT replaces the profile; PATCH merges.
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	me, err := callerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPut, http.MethodPatch:
		var req profileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeServiceError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		replace := r.Method == http.MethodPut
		_, err := h.deps.UpdateProfile(r.Context(), me, func(p *model.Profile) {
			if replace {
				*p = model.Profile{}
			}
			req.apply(p)
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch)
		return
	}

	d, err := h.deps.UserDetail(r.Context(), me)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(d))
}
