// Package metrics provides Prometheus metrics for the courtmatch service.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the courtmatch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Matching
	matchRequests    *prometheus.CounterVec
	candidatesScored prometheus.Counter
	rankingLatency   *prometheus.HistogramVec
	candidatePool    prometheus.Histogram
	topScore         *prometheus.HistogramVec

	// Users
	registeredUsers prometheus.Gauge
	usersRegistered prometheus.Counter

	// Activity
	checkIns       *prometheus.CounterVec
	threadsOpened  prometheus.Counter
	messagesPosted prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store
	storeLatency *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerCount             prometheus.Gauge
	workerJobs              prometheus.Counter
	workerJobsPerSecond     prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	inlineFallbacks         prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager and the registry it is registered on.
var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // intentional global for singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // intentional global for metrics registry
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure replaces the global metrics with a set built from opts on a
// fresh registry. Call it before the metrics endpoint is mounted; handlers
// built earlier keep serving the previous registry. A registry passed via
// WithPrometheusRegistry is ignored.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(registry))
	m := NewManager(opts...)
	customRegistry.Store(registry)
	globalManager.Store(m)
}

func current() *Manager { return globalManager.Load() }

// NewManager creates a new metrics manager registered on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "courtmatch",
		subsystem:        "matching",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.matchRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_requests_total",
		Help:      "Match requests by kind (recommend, candidates) and outcome",
	}, []string{"kind", "outcome"})

	m.candidatesScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidates_scored_total",
		Help:      "Total number of candidate profiles scored",
	})

	m.rankingLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_latency_milliseconds",
		Help:      "Time spent ranking a candidate pool in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"kind"})

	m.candidatePool = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidate_pool_size",
		Help:      "Number of candidates considered per match request",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	m.topScore = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "top_score",
		Help:      "Score of the best candidate returned",
		Buckets:   prometheus.LinearBuckets(0, 1.5, 15),
	}, []string{"kind"})

	m.registeredUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "registered_users",
		Help:      "Number of registered users in the store",
	})

	m.usersRegistered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "users_registered_total",
		Help:      "Users registered since start",
	})

	m.checkIns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "checkins_total",
		Help:      "Calendar check-in changes by action (set, clear)",
	}, []string{"action"})

	m.threadsOpened = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chat_threads_opened_total",
		Help:      "Chat thread open requests",
	})

	m.messagesPosted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "chat_messages_total",
		Help:      "Chat messages posted",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_operation_latency_milliseconds",
		Help:      "Store operation latency by backend and operation",
		Buckets:   m.histogramBuckets,
	}, []string{"backend", "operation"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of score jobs waiting in the queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum number of score jobs the queue accepts",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Queue size divided by capacity",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueued_total",
		Help:      "Score jobs accepted by the queue",
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeued_total",
		Help:      "Score jobs handed to workers",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Score jobs rejected by the queue",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of scoring workers",
	})

	m.workerJobs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_jobs_total",
		Help:      "Score jobs completed by workers",
	})

	m.workerJobsPerSecond = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_jobs_per_second",
		Help:      "Average score jobs completed per second over the last interval",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Time a worker spends on one score job",
		Buckets:   m.histogramBuckets,
	})

	m.inlineFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "inline_fallbacks_total",
		Help:      "Score jobs computed by the caller because the queue refused them",
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// Matching.

// RecordMatchRequest counts a match request by kind and outcome.
func RecordMatchRequest(kind, outcome string) {
	current().matchRequests.WithLabelValues(kind, outcome).Inc()
}

// RecordCandidatesScored adds n to the scored candidates counter.
func RecordCandidatesScored(n int) {
	current().candidatesScored.Add(float64(n))
}

// RecordRankingLatency records ranking latency in milliseconds.
func RecordRankingLatency(kind string, latencyMs float64) {
	current().rankingLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordCandidatePoolSize records the size of one candidate pool.
func RecordCandidatePoolSize(n int) {
	current().candidatePool.Observe(float64(n))
}

// RecordTopScore records the best score returned by a match request.
func RecordTopScore(kind string, score float64) {
	current().topScore.WithLabelValues(kind).Observe(score)
}

// Users.

// UpdateRegisteredUsers sets the registered users gauge.
func UpdateRegisteredUsers(count int) {
	current().registeredUsers.Set(float64(count))
}

// RecordUserRegistered increments the registrations counter.
func RecordUserRegistered() {
	current().usersRegistered.Inc()
}

// Activity.

// RecordCheckIn counts a check-in change by action.
func RecordCheckIn(action string) {
	current().checkIns.WithLabelValues(action).Inc()
}

// RecordThreadOpened counts a chat thread open request.
func RecordThreadOpened() {
	current().threadsOpened.Inc()
}

// RecordMessagePosted counts a posted chat message.
func RecordMessagePosted() {
	current().messagesPosted.Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	current().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	current().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Store.

// RecordStoreLatency records the latency of one store operation.
func RecordStoreLatency(backend, operation string, latencyMs float64) {
	current().storeLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	current().queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	current().queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	current().queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	current().queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	current().queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	current().queueEnqueueErrors.Inc()
}

// Worker.

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	current().workerCount.Set(float64(count))
}

// RecordWorkerJob increments the completed jobs counter.
func RecordWorkerJob() {
	current().workerJobs.Inc()
}

// UpdateWorkerJobsPerSecond sets the recent job throughput.
func UpdateWorkerJobsPerSecond(rate float64) {
	current().workerJobsPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	current().workerProcessingLatency.Observe(latencyMs)
}

// RecordInlineFallback increments the inline scoring counter.
func RecordInlineFallback() {
	current().inlineFallbacks.Inc()
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	current().errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	current().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	current().systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
