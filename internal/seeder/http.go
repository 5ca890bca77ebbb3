package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/courtmatch/pkg/logger"
)

// Header names understood by the service.
const (
	userIDHeader    = "X-User-ID"
	requestIDHeader = "X-Request-ID"
)

// registration outcomes.
const (
	outcomeCreated = "created"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"
)

// HTTPClient wraps http.Client with per-request context and identity headers.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Do sends body as JSON (when non-nil) acting as caller (when non-zero).
func (c *HTTPClient) Do(ctx context.Context, method, url string, caller int64, body any) (*http.Response, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller > 0 {
		req.Header.Set(userIDHeader, strconv.FormatInt(caller, 10))
	}
	req.Header.Set(requestIDHeader, uuid.NewString())
	return c.client.Do(req)
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string, caller int64) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, caller, nil)
}

// decodeBody reads resp as JSON into v and closes it.
func decodeBody(resp *http.Response, v any) error {
	defer func() { _ = resp.Body.Close() }()
	return json.NewDecoder(resp.Body).Decode(v)
}

// drain discards and closes the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// registerPlayers registers players concurrently and stores each profile.
// Created players get their ID filled in.
func registerPlayers(ctx context.Context, config *Config, players []Player, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "registering players", logger.Int("players", len(players)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)

	var (
		created        int64
		skipped        int64
		failed         int64
		profilesFailed int64
		done           int64
		lastReport     atomic.Int64
	)

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				if ctx.Err() != nil {
					continue
				}
				p := &players[index]
				switch registerSingle(ctx, client, config.BaseURL, p) {
				case outcomeCreated:
					atomic.AddInt64(&created, 1)
					if err := storeProfile(ctx, client, config.BaseURL, p); err != nil {
						atomic.AddInt64(&profilesFailed, 1)
						if config.Verbose {
							log.Warn(ctx, "profile update failed", logger.String("username", p.Username), logger.Error(err))
						}
					}
				case outcomeSkipped:
					atomic.AddInt64(&skipped, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}

				n := atomic.AddInt64(&done, 1)
				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(ProgressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "registration progress",
						logger.Int64("done", n),
						logger.Int("total", len(players)),
						logger.Int64("created", atomic.LoadInt64(&created)),
						logger.Int64("skipped", atomic.LoadInt64(&skipped)),
						logger.Int64("failed", atomic.LoadInt64(&failed)))
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range players {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.PlayersCreated = int(created)
	stats.PlayersSkipped = int(skipped)
	stats.PlayersFailed = int(failed)
	stats.ProfilesFailed = int(profilesFailed)

	log.Info(ctx, "registration completed",
		logger.Int("created", stats.PlayersCreated),
		logger.Int("skipped", stats.PlayersSkipped),
		logger.Int("failed", stats.PlayersFailed),
		logger.Int("profilesFailed", stats.ProfilesFailed))
}

// registerSingle posts one registration. A taken username counts as skipped.
func registerSingle(ctx context.Context, client *HTTPClient, baseURL string, p *Player) string {
	resp, err := client.Do(ctx, http.MethodPost, baseURL+"/users", 0, map[string]string{"username": p.Username})
	if err != nil {
		return outcomeFailed
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		var body struct {
			ID int64 `json:"id"`
		}
		if err := decodeBody(resp, &body); err != nil || body.ID < 1 {
			return outcomeFailed
		}
		p.ID = body.ID
		return outcomeCreated
	case http.StatusConflict:
		drain(resp)
		return outcomeSkipped
	default:
		drain(resp)
		return outcomeFailed
	}
}

func storeProfile(ctx context.Context, client *HTTPClient, baseURL string, p *Player) error {
	resp, err := client.Do(ctx, http.MethodPut, baseURL+"/profile", p.ID, p.Profile)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
