// Package worker scores candidate profiles concurrently.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/courtmatch/internal/adapters/mq/queue"
	"github.com/okian/courtmatch/internal/domain/model"
	"github.com/okian/courtmatch/pkg/logger"
	"github.com/okian/courtmatch/pkg/metrics"
)

// Default worker configuration constants.
const (
	metricsUpdateInterval = 5 * time.Second
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = queue.Job

// Scorer computes the compatibility of two profiles.
type Scorer interface {
	Score(a, b *model.Profile) float64
}

// Queue defines how workers receive jobs and how the pool submits them.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
	Submit(ctx context.Context, j Job) error
}

// Worker processes score jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	scorer Scorer
	name   string

	onProcessed func()

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer Scorer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		scorer:   scorer,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing score job", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process scores one job and delivers the result.
func (w *InMemoryWorker) process(ctx context.Context, j Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	if j.Results == nil {
		metrics.RecordErrorByComponent("worker", "invalid_job")
		return fmt.Errorf("job %d: %w", j.Index, ErrInvalidJob)
	}

	start := time.Now()
	score := w.scorer.Score(j.Requester, j.Candidate)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)

	select {
	case j.Results <- model.ScoreResult{Index: j.Index, Score: score}:
	case <-ctx.Done():
		return fmt.Errorf("deliver job %d: %w", j.Index, ctx.Err())
	}

	metrics.RecordWorkerJob()
	if w.onProcessed != nil {
		w.onProcessed()
	}
	return nil
}

// Pool manages multiple workers and implements concurrent candidate scoring.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	scorer  Scorer

	started  atomic.Bool
	shutdown chan struct{}
	stopOnce sync.Once

	processed         atomic.Int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses runtime.NumCPU().
func NewPool(workerCount int, q Queue, scorer Scorer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             q,
		scorer:            scorer,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(q, scorer,
			WithName("worker-"+strconv.Itoa(i)),
			WithOnProcessed(p.RecordProcessedMessage),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerJobsPerSecond(0.0)

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	if elapsed := now.Sub(p.lastProcessedTime).Seconds(); elapsed > 0 {
		metrics.UpdateWorkerJobsPerSecond(float64(p.processed.Swap(0)) / elapsed)
	}
	p.lastProcessedTime = now
}

// RecordProcessedMessage increments the processed job count.
func (p *Pool) RecordProcessedMessage() {
	p.processed.Add(1)
}

// ScoreAll scores every candidate against requester using the workers and
// returns the scores in candidate order. Jobs the queue refuses are scored
// inline by the caller, so backpressure never drops a candidate.
func (p *Pool) ScoreAll(ctx context.Context, requester *model.Profile, candidates []*model.Profile) ([]float64, error) {
	if !p.started.Load() {
		return nil, ErrPoolNotStarted
	}
	select {
	case <-p.shutdown:
		return nil, ErrPoolStopped
	default:
	}

	n := len(candidates)
	scores := make([]float64, n)
	if n == 0 {
		return scores, nil
	}

	// Buffered to n so neither workers nor inline scoring ever block on delivery.
	results := make(chan model.ScoreResult, n)
	inline := 0
	for i, c := range candidates {
		j := Job{Index: i, Requester: requester, Candidate: c, Results: results}
		if err := p.queue.Submit(ctx, j); err != nil {
			inline++
			metrics.RecordInlineFallback()
			results <- model.ScoreResult{Index: i, Score: p.scorer.Score(requester, c)}
		}
	}
	if inline > 0 {
		p.logger.Debug(ctx, "scored jobs inline", logger.Int("inline", inline), logger.Int("total", n))
	}

	for received := 0; received < n; received++ {
		select {
		case r := <-results:
			scores[r.Index] = r.Score
		case <-ctx.Done():
			return nil, fmt.Errorf("score all: %w", ctx.Err())
		case <-p.shutdown:
			return nil, ErrPoolStopped
		}
	}
	return scores, nil
}

// Stop signals all workers to stop and waits briefly for each.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.shutdown) })

	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
		if !p.started.Load() {
			continue
		}
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and stops all workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.stopOnce.Do(func() { close(p.shutdown) })
	if !p.started.Load() {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
