package ranking

import (
	scoring "github.com/okian/courtmatch/internal/domain/scoring"
)

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithScorer sets the match scorer.
func WithScorer(s *scoring.MatchScorer) Option {
	return func(r *Ranker) {
		if s != nil {
			r.scorer = s
		}
	}
}

// WithFanout scores eligible pools of at least threshold candidates through f.
func WithFanout(f Fanout, threshold int) Option {
	return func(r *Ranker) {
		r.fanout = f
		if threshold > 0 {
			r.threshold = threshold
		}
	}
}
