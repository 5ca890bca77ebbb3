package api

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	service "github.com/okian/courtmatch/internal/app"
	"github.com/okian/courtmatch/internal/domain/model"
	"github.com/okian/courtmatch/internal/domain/ranking"
	"github.com/okian/courtmatch/pkg/tracing"
)

// MatchDependencies defines the interface for matching operations.
type MatchDependencies interface {
	UserDetail(ctx context.Context, id model.UserID) (service.UserDetail, error)
	Recommend(ctx context.Context, userID model.UserID, extraExcluded []model.UserID) (model.ScoredCandidate, error)
	Candidates(ctx context.Context, userID model.UserID, extraExcluded []model.UserID, limit int) ([]model.ScoredCandidate, error)
}

// MatchHandler serves recommendations.
type MatchHandler struct {
	deps MatchDependencies
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies) *MatchHandler {
	return &MatchHandler{deps: deps}
}

// HandleRecommend handles GET /match/recommend?exclude=1,2 requests.
func (h *MatchHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	me, err := callerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	exclude := parseExclude(r.URL.Query().Get("exclude"))
	tracing.SetAttributes(r.Context(),
		attribute.Int64("match.user_id", int64(me)),
		attribute.Int("match.exclude", len(exclude)),
	)

	best, err := h.deps.Recommend(r.Context(), me, exclude)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecommendation(best, h.user(r.Context(), best.UserID)))
}

// HandleCandidates handles GET /match/candidates?exclude=&limit= requests.
func (h *MatchHandler) HandleCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	me, err := callerID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	q := r.URL.Query()
	exclude := parseExclude(q.Get("exclude"))
	limit := ranking.ParseLimit(q.Get("limit"))
	tracing.SetAttributes(r.Context(),
		attribute.Int64("match.user_id", int64(me)),
		attribute.Int("match.exclude", len(exclude)),
		attribute.Int("match.limit", limit),
	)

	ranked, err := h.deps.Candidates(r.Context(), me, exclude, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := candidatesResponse{Candidates: make([]recommendationResponse, len(ranked))}
	for i, c := range ranked {
		out.Candidates[i] = newRecommendation(c, h.user(r.Context(), c.UserID))
	}
	writeJSON(w, http.StatusOK, out)
}

// user looks up the account fields of a candidate. A candidate deleted in
// the meantime renders with its id only.
func (h *MatchHandler) user(ctx context.Context, id model.UserID) model.User {
	d, err := h.deps.UserDetail(ctx, id)
	if err != nil {
		return model.User{ID: id}
	}
	return d.User
}
