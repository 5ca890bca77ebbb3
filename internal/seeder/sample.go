package seeder

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/okian/courtmatch/pkg/logger"
)

// sampleResult is the outcome of one candidate request.
type sampleResult struct {
	caller     int64
	candidates []Candidate
	err        error
}

// sampleMatches asks for candidates on behalf of up to config.Samples created
// players, concurrently.
func sampleMatches(ctx context.Context, config *Config, players []Player, stats *Stats) []sampleResult {
	callers := make([]int64, 0, config.Samples)
	for _, p := range players {
		if len(callers) == config.Samples {
			break
		}
		if p.ID > 0 {
			callers = append(callers, p.ID)
		}
	}
	logger.Get().Info(ctx, "probing matches", logger.Int("callers", len(callers)), logger.Int("limit", config.Limit))

	client := newHTTPClient(config.Timeout)
	results := make([]sampleResult, len(callers))

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range indexChan {
				caller := callers[index]
				cands, err := fetchCandidates(ctx, client, config.BaseURL, caller, config.Limit)
				results[index] = sampleResult{caller: caller, candidates: cands, err: err}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range callers {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()
	wg.Wait()

	out := results[:0]
	for _, r := range results {
		if r.caller == 0 {
			continue // never dispatched
		}
		stats.SamplesRun++
		if r.err != nil {
			stats.SamplesFailed++
			if config.Verbose {
				logger.Get().Warn(ctx, "sample failed", logger.Int64("caller", r.caller), logger.Error(r.err))
			}
			continue
		}
		if len(r.candidates) > 0 && r.candidates[0].Score > stats.TopScore {
			stats.TopScore = r.candidates[0].Score
		}
		out = append(out, r)
	}
	return out
}

func fetchCandidates(ctx context.Context, client *HTTPClient, baseURL string, caller int64, limit int) ([]Candidate, error) {
	url := fmt.Sprintf("%s/match/candidates?limit=%d", baseURL, limit)
	resp, err := client.Get(ctx, url, caller)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp)
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var body struct {
		Candidates []Candidate `json:"candidates"`
	}
	if err := decodeBody(resp, &body); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return body.Candidates, nil
}
