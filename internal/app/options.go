package service

import (
	"github.com/okian/courtmatch/internal/adapters/repository"
	"github.com/okian/courtmatch/internal/domain/scoring"
	"github.com/okian/courtmatch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of scoring workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the score job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithFanoutThreshold sets the eligible pool size from which scoring is
// spread over the worker pool.
func WithFanoutThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanoutThreshold = n
		}
	}
}

// WithScorer sets the match scorer.
func WithScorer(scorer *scoring.MatchScorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
