// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/courtmatch/internal/adapters/repository"
	service "github.com/okian/courtmatch/internal/app"
	"github.com/okian/courtmatch/internal/domain/model"
)

// UserIDHeader carries the authenticated caller id. Authentication happens
// upstream of this service.
const UserIDHeader = "X-User-ID"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	UserDependencies
	ProfileDependencies
	FriendDependencies
	MatchDependencies
	CheckInDependencies
	ChatDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	usersHandler   *UsersHandler
	profileHandler *ProfileHandler
	friendsHandler *FriendsHandler
	matchHandler   *MatchHandler
	checkInHandler *CheckInsHandler
	chatHandler    *ChatHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		usersHandler:   NewUsersHandler(deps),
		profileHandler: NewProfileHandler(deps),
		friendsHandler: NewFriendsHandler(deps),
		matchHandler:   NewMatchHandler(deps),
		checkInHandler: NewCheckInsHandler(deps),
		chatHandler:    NewChatHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/metrics", "metrics", s.healthHandler.HandleMetrics)
	route("/stats", "stats", s.statsHandler.HandleStats)
	route("/users", "users", s.usersHandler.HandleRegister)
	route("/users/{id}", "user_detail", s.usersHandler.HandleGetUser)
	route("/profile", "profile", s.profileHandler.HandleProfile)
	route("/friends", "friends", s.friendsHandler.HandleFriends)
	route("/friends/{id}", "friend_delete", s.friendsHandler.HandleDeleteFriend)
	route("/match/recommend", "match_recommend", s.matchHandler.HandleRecommend)
	route("/match/candidates", "match_candidates", s.matchHandler.HandleCandidates)
	route("/checkins", "checkins", s.checkInHandler.HandleCheckIns)
	route("/checkins/set", "checkins_set", s.checkInHandler.HandleSetCheckIn)
	route("/chat/threads", "chat_threads", s.chatHandler.HandleThreads)
	route("/chat/threads/{id}/messages", "chat_messages", s.chatHandler.HandleMessages)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

// writeServiceError translates upstream sentinel errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		// Upstream details stay in the logs.
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, service.ErrInvalidUsername):
		return http.StatusBadRequest, "invalid_username"
	case errors.Is(err, service.ErrSelfFriend):
		return http.StatusBadRequest, "self_friend"
	case errors.Is(err, service.ErrProfileNotFound):
		return http.StatusBadRequest, "profile_not_found"
	case errors.Is(err, service.ErrInvalidCheckIn):
		return http.StatusBadRequest, "invalid_checkin"
	case errors.Is(err, service.ErrSelfChat):
		return http.StatusBadRequest, "self_chat"
	case errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest, "empty_message"
	case errors.Is(err, service.ErrNotParticipant):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, repository.ErrThreadNotFound):
		return http.StatusNotFound, "thread_not_found"
	case errors.Is(err, service.ErrNoCandidates):
		return http.StatusNotFound, "no_candidates"
	case errors.Is(err, repository.ErrUserNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// callerID reads the authenticated caller from UserIDHeader.
func callerID(r *http.Request) (model.UserID, error) {
	id, ok := model.ParseUserID(r.Header.Get(UserIDHeader))
	if !ok {
		return 0, ErrUnauthenticated
	}
	return id, nil
}

// pathID reads a positive id path value.
func pathID(r *http.Request, name string) (model.UserID, bool) {
	return model.ParseUserID(r.PathValue(name))
}

// parseExclude parses a comma-separated id list. Each blank or malformed
// entry is skipped on its own; the valid ids around it are kept.
func parseExclude(raw string) []model.UserID {
	if raw == "" {
		return nil
	}
	var out []model.UserID
	for _, part := range strings.Split(raw, ",") {
		if id, ok := model.ParseUserID(part); ok {
			out = append(out, id)
		}
	}
	return out
}
