// Package ranking selects and orders match candidates for a requesting player.
package ranking

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	model "github.com/okian/courtmatch/internal/domain/model"
	scoring "github.com/okian/courtmatch/internal/domain/scoring"
	"github.com/okian/courtmatch/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Limits for RankedCandidates.
const (
	DefaultLimit = 8
	MinLimit     = 1
	MaxLimit     = 25

	defaultFanoutThreshold = 64
)

// Fanout scores candidates concurrently. Scores must be returned in
// candidate order.
type Fanout interface {
	ScoreAll(ctx context.Context, requester *model.Profile, candidates []*model.Profile) ([]float64, error)
}

// Ranker applies the match scorer across a candidate pool. It never mutates
// the profiles, pool or exclusion set it is given.
type Ranker struct {
	scorer    *scoring.MatchScorer
	fanout    Fanout
	threshold int
}

// New creates a Ranker. Without WithFanout all scoring happens inline.
func New(opts ...Option) *Ranker {
	r := &Ranker{
		scorer:    scoring.NewMatchScorer(),
		threshold: defaultFanoutThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BestMatch returns the highest scoring eligible candidate. Ties go to the
// candidate seen first in pool order. The boolean is false when no candidate
// is eligible.
func (r *Ranker) BestMatch(ctx context.Context, requester *model.Profile, pool []model.Candidate, excluded model.IDSet) (model.ScoredCandidate, bool) {
	ctx, end := tracing.StartSpan(ctx, "ranking.best_match", attribute.Int("pool.size", len(pool)))
	defer end(nil)

	eligible := Eligible(pool, excluded)
	tracing.SetAttributes(ctx, attribute.Int("pool.eligible", len(eligible)))
	if len(eligible) == 0 {
		return model.ScoredCandidate{}, false
	}

	scores := r.scoreAll(ctx, requester, eligible)
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return model.ScoredCandidate{
		UserID:  eligible[best].UserID,
		Profile: *eligible[best].Profile,
		Score:   scores[best],
	}, true
}

// RankedCandidates scores every eligible candidate and returns at most limit
// of them, highest score first. Equal scores keep their pool order. limit is
// clamped with ClampLimit.
func (r *Ranker) RankedCandidates(ctx context.Context, requester *model.Profile, pool []model.Candidate, excluded model.IDSet, limit int) []model.ScoredCandidate {
	limit = ClampLimit(limit)
	ctx, end := tracing.StartSpan(ctx, "ranking.ranked_candidates",
		attribute.Int("pool.size", len(pool)),
		attribute.Int("limit", limit),
	)
	defer end(nil)

	eligible := Eligible(pool, excluded)
	tracing.SetAttributes(ctx, attribute.Int("pool.eligible", len(eligible)))
	if len(eligible) == 0 {
		return []model.ScoredCandidate{}
	}

	scores := r.scoreAll(ctx, requester, eligible)
	out := make([]model.ScoredCandidate, len(eligible))
	for i, c := range eligible {
		out[i] = model.ScoredCandidate{UserID: c.UserID, Profile: *c.Profile, Score: scores[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Eligible keeps candidates that have a profile and are not excluded,
// preserving pool order.
func Eligible(pool []model.Candidate, excluded model.IDSet) []model.Candidate {
	out := make([]model.Candidate, 0, len(pool))
	for _, c := range pool {
		if c.Profile == nil || excluded.Has(c.UserID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// scoreAll returns one score per eligible candidate, index aligned.
func (r *Ranker) scoreAll(ctx context.Context, requester *model.Profile, eligible []model.Candidate) []float64 {
	if r.fanout != nil && len(eligible) >= r.threshold {
		profiles := make([]*model.Profile, len(eligible))
		for i, c := range eligible {
			profiles[i] = c.Profile
		}
		scores, err := r.fanout.ScoreAll(ctx, requester, profiles)
		if err == nil && len(scores) == len(eligible) {
			tracing.AddEvent(ctx, "fanout")
			return scores
		}
		// fall through and score inline
	}

	subject := r.scorer.Subject(requester)
	scores := make([]float64, len(eligible))
	for i, c := range eligible {
		scores[i] = r.scorer.Compare(subject, r.scorer.Subject(c.Profile)).Total()
	}
	return scores
}

// ParseLimit turns a raw limit parameter into a usable limit. Empty or
// non-numeric input yields DefaultLimit; the result is clamped, including
// integers too large for int.
func ParseLimit(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			if strings.HasPrefix(raw, "-") {
				return MinLimit
			}
			return MaxLimit
		}
		return DefaultLimit
	}
	return ClampLimit(n)
}

// ClampLimit bounds n to [MinLimit, MaxLimit].
func ClampLimit(n int) int {
	if n < MinLimit {
		return MinLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
