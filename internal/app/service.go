// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/okian/courtmatch/internal/adapters/mq/queue"
	"github.com/okian/courtmatch/internal/adapters/mq/worker"
	"github.com/okian/courtmatch/internal/adapters/repository"
	"github.com/okian/courtmatch/internal/domain/model"
	"github.com/okian/courtmatch/internal/domain/ranking"
	"github.com/okian/courtmatch/internal/domain/scoring"
	"github.com/okian/courtmatch/pkg/logger"
	"github.com/okian/courtmatch/pkg/metrics"
)

const (
	defaultQueueSize       = 4096
	defaultFanoutThreshold = 64
	maxUsernameLength      = 150
	stopTimeout            = 10 * time.Second
)

// Match kinds used as metric labels.
const (
	kindRecommend  = "recommend"
	kindCandidates = "candidates"
)

// UserDetail is a user together with its profile, if any.
type UserDetail struct {
	User    model.User
	Profile *model.Profile
}

// Service implements the API dependencies for player matching.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  repository.Store
	scorer *scoring.MatchScorer
	ranker *ranking.Ranker
	queue  *queue.InMemoryQueue
	pool   *worker.Pool

	// Configuration
	workerCount     int
	queueSize       int
	fanoutThreshold int

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		queueSize:       defaultQueueSize,
		fanoutThreshold: defaultFanoutThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components. Workers outlive ctx
// and run until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting matching service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.scorer == nil {
		s.scorer = scoring.NewMatchScorer()
	}

	s.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithBufferSize(s.queueSize),
	)
	s.pool = worker.NewPool(s.workerCount, s.queue, s.scorer)
	s.ranker = ranking.New(
		ranking.WithScorer(s.scorer),
		ranking.WithFanout(s.pool, s.fanoutThreshold),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	if n, err := s.store.Count(ctx); err == nil {
		metrics.UpdateRegisteredUsers(n)
	}

	s.started = true
	s.logger.Info(ctx, "matching service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("fanoutThreshold", s.fanoutThreshold),
	)
	return nil
}

// Stop gracefully shuts down the service and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping matching service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()

	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "matching service stopped")
}

func (s *Service) components() (repository.Store, *ranking.Ranker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.ranker, nil
}

// RegisterUser creates a user with an empty profile.
func (s *Service) RegisterUser(ctx context.Context, username string) (model.User, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return model.User{}, err
	}
	store, _, err := s.components()
	if err != nil {
		return model.User{}, err
	}

	u, err := store.CreateUser(ctx, username)
	if err != nil {
		return model.User{}, fmt.Errorf("register %q: %w", username, err)
	}
	if err := store.UpsertProfile(ctx, model.Profile{UserID: u.ID}); err != nil {
		return model.User{}, fmt.Errorf("register %q: %w", username, err)
	}

	metrics.RecordUserRegistered()
	s.logger.Debug(ctx, "user registered", logger.Int64("userID", int64(u.ID)), logger.String("username", username))
	return u, nil
}

// validateUsername accepts 1-150 letters, digits and @.+-_ characters.
func validateUsername(name string) error {
	if name == "" || len(name) > maxUsernameLength {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidUsername, maxUsernameLength)
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return fmt.Errorf("%w: unexpected character %q", ErrInvalidUsername, r)
	}
	return nil
}

// UserDetail returns a user and its profile.
func (s *Service) UserDetail(ctx context.Context, id model.UserID) (UserDetail, error) {
	store, _, err := s.components()
	if err != nil {
		return UserDetail{}, err
	}
	u, err := store.User(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	return UserDetail{User: u, Profile: s.optionalProfile(ctx, store, id)}, nil
}

func (s *Service) optionalProfile(ctx context.Context, store repository.Store, id model.UserID) *model.Profile {
	p, err := store.Profile(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn(ctx, "loading profile", logger.Int64("userID", int64(id)), logger.Error(err))
		}
		return nil
	}
	return &p
}

// Profile returns the profile of userID.
func (s *Service) Profile(ctx context.Context, userID model.UserID) (model.Profile, error) {
	store, _, err := s.components()
	if err != nil {
		return model.Profile{}, err
	}
	return loadProfile(ctx, store, userID)
}

func loadProfile(ctx context.Context, store repository.Store, userID model.UserID) (model.Profile, error) {
	p, err := store.Profile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Profile{}, fmt.Errorf("user %d: %w", userID, ErrProfileNotFound)
	}
	return p, err
}

// UpdateProfile applies update to userID's current profile, or to an empty
// one if none exists, and stores the result.
func (s *Service) UpdateProfile(ctx context.Context, userID model.UserID, update func(*model.Profile)) (model.Profile, error) {
	store, _, err := s.components()
	if err != nil {
		return model.Profile{}, err
	}
	p, err := store.Profile(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.Profile{}, err
	}
	if update != nil {
		update(&p)
	}
	p.UserID = userID
	if err := store.UpsertProfile(ctx, p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// AddFriend records that userID befriended friendID.
func (s *Service) AddFriend(ctx context.Context, userID, friendID model.UserID) (UserDetail, error) {
	if userID == friendID {
		return UserDetail{}, ErrSelfFriend
	}
	store, _, err := s.components()
	if err != nil {
		return UserDetail{}, err
	}
	if err := store.AddFriend(ctx, userID, friendID); err != nil {
		return UserDetail{}, err
	}
	u, err := store.User(ctx, friendID)
	if err != nil {
		return UserDetail{}, err
	}
	return UserDetail{User: u, Profile: s.optionalProfile(ctx, store, friendID)}, nil
}

// RemoveFriend deletes the userID -> friendID friendship if present.
func (s *Service) RemoveFriend(ctx context.Context, userID, friendID model.UserID) error {
	store, _, err := s.components()
	if err != nil {
		return err
	}
	return store.RemoveFriend(ctx, userID, friendID)
}

// Friends lists the users userID befriended, by id.
func (s *Service) Friends(ctx context.Context, userID model.UserID) ([]UserDetail, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	ids, err := store.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]UserDetail, 0, len(ids))
	for _, id := range ids {
		u, err := store.User(ctx, id)
		if errors.Is(err, repository.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, UserDetail{User: u, Profile: s.optionalProfile(ctx, store, id)})
	}
	return out, nil
}

// Recommend returns the single best match for userID. Candidates are every
// user except the caller, the caller's friends and extraExcluded.
func (s *Service) Recommend(ctx context.Context, userID model.UserID, extraExcluded []model.UserID) (model.ScoredCandidate, error) {
	start := time.Now()
	store, ranker, err := s.components()
	if err != nil {
		return model.ScoredCandidate{}, err
	}

	requester, pool, excluded, err := s.matchInput(ctx, store, userID, extraExcluded)
	if err != nil {
		metrics.RecordMatchRequest(kindRecommend, outcome(err))
		return model.ScoredCandidate{}, err
	}

	best, ok := ranker.BestMatch(ctx, &requester, pool, excluded)
	metrics.RecordRankingLatency(kindRecommend, float64(time.Since(start).Microseconds())/1000)
	if !ok {
		metrics.RecordMatchRequest(kindRecommend, "empty")
		return model.ScoredCandidate{}, ErrNoCandidates
	}

	metrics.RecordMatchRequest(kindRecommend, "ok")
	metrics.RecordTopScore(kindRecommend, best.Score)
	return best, nil
}

// Candidates returns up to limit matches for userID ordered by descending
// score. limit is clamped to [ranking.MinLimit, ranking.MaxLimit].
func (s *Service) Candidates(ctx context.Context, userID model.UserID, extraExcluded []model.UserID, limit int) ([]model.ScoredCandidate, error) {
	start := time.Now()
	store, ranker, err := s.components()
	if err != nil {
		return nil, err
	}

	requester, pool, excluded, err := s.matchInput(ctx, store, userID, extraExcluded)
	if err != nil {
		metrics.RecordMatchRequest(kindCandidates, outcome(err))
		return nil, err
	}

	ranked := ranker.RankedCandidates(ctx, &requester, pool, excluded, limit)
	metrics.RecordRankingLatency(kindCandidates, float64(time.Since(start).Microseconds())/1000)
	if len(ranked) == 0 {
		metrics.RecordMatchRequest(kindCandidates, "empty")
		return ranked, nil
	}

	metrics.RecordMatchRequest(kindCandidates, "ok")
	metrics.RecordTopScore(kindCandidates, ranked[0].Score)
	return ranked, nil
}

// matchInput loads the requester profile, the candidate pool and the
// exclusion set {caller} + friends + extra.
func (s *Service) matchInput(ctx context.Context, store repository.Store, userID model.UserID, extra []model.UserID) (model.Profile, []model.Candidate, model.IDSet, error) {
	requester, err := loadProfile(ctx, store, userID)
	if err != nil {
		return model.Profile{}, nil, nil, err
	}

	friends, err := store.FriendIDs(ctx, userID)
	if err != nil {
		return model.Profile{}, nil, nil, err
	}
	excluded := model.NewIDSet(userID)
	for _, id := range friends {
		excluded.Add(id)
	}
	for _, id := range extra {
		excluded.Add(id)
	}

	pool, err := store.Candidates(ctx)
	if err != nil {
		return model.Profile{}, nil, nil, err
	}
	metrics.RecordCandidatePoolSize(len(pool))

	s.logger.Debug(ctx, "match input loaded",
		logger.Int64("userID", int64(userID)),
		logger.Int("pool", len(pool)),
		logger.Int("excluded", len(excluded)),
	)
	return requester, pool, excluded, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrProfileNotFound):
		return "no_profile"
	case errors.Is(err, repository.ErrUserNotFound):
		return "unknown_user"
	default:
		return "error"
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"fanoutThreshold": s.fanoutThreshold,
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(goroutines)
	stats["memoryAllocBytes"] = mem.Alloc
	stats["goroutines"] = goroutines

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["workers"] = s.pool.Size()

		if n, err := s.store.Count(ctx); err == nil {
			stats["registeredUsers"] = n
			metrics.UpdateRegisteredUsers(n)
		} else {
			s.logger.Warn(ctx, "counting users", logger.Error(err))
		}
	}
	return stats
}
