package seeder

import (
	"context"
	"fmt"

	"github.com/okian/courtmatch/pkg/logger"
)

// verifySamples checks every candidate list and counts the broken ones.
func verifySamples(ctx context.Context, config *Config, results []sampleResult, stats *Stats) {
	for _, r := range results {
		if err := verifyCandidates(r.caller, r.candidates, config.Limit); err != nil {
			stats.SampleViolations++
			logger.Get().Warn(ctx, "candidate list inconsistent", logger.Int64("caller", r.caller), logger.Error(err))
		}
	}
	if stats.SampleViolations == 0 {
		logger.Get().Info(ctx, "candidate lists verified", logger.Int("lists", len(results)))
	}
}

// verifyCandidates checks one ranked list: bounded by limit, never the caller,
// no repeats, scores non-increasing and ties broken by ascending id.
func verifyCandidates(caller int64, cands []Candidate, limit int) error {
	if len(cands) > limit {
		return fmt.Errorf("%d candidates exceed limit %d", len(cands), limit)
	}
	seen := make(map[int64]struct{}, len(cands))
	for i, c := range cands {
		if c.User.ID == caller {
			return fmt.Errorf("caller %d recommended to itself", caller)
		}
		if _, dup := seen[c.User.ID]; dup {
			return fmt.Errorf("candidate %d listed twice", c.User.ID)
		}
		seen[c.User.ID] = struct{}{}
		if i == 0 {
			continue
		}
		prev := cands[i-1]
		if c.Score > prev.Score {
			return fmt.Errorf("entry %d scores higher than entry %d", i, i-1)
		}
		if c.Score == prev.Score && c.User.ID < prev.User.ID {
			return fmt.Errorf("tie at entry %d not ordered by id", i)
		}
	}
	return nil
}
