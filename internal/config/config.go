// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
)

// Store backends accepted by Config.Store.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory scoring queue.
	QueueSize int `koanf:"queue_size"`

	// FanoutThreshold is the pool size above which scoring moves to the workers.
	FanoutThreshold int `koanf:"fanout_threshold"`

	// Store selects the repository backend: memory, postgres or redis.
	Store string `koanf:"store"`

	DatabaseURL string `koanf:"database_url"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	ServiceName         string  `koanf:"service_name"`
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingEndpoint     string  `koanf:"tracing_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`

	// MetricsNamespace and MetricsSubsystem prefix every Prometheus metric
	// name. Empty values keep the built-in prefix.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBuckets overrides the latency histogram buckets, in milliseconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "json",
		Addr:                ":9080",
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           4096,
		FanoutThreshold:     64,
		Store:               StoreMemory,
		RedisAddr:           "localhost:6379",
		ServiceName:         "courtmatch",
		TracingEndpoint:     "localhost:4318",
		TracingSamplingRate: 1.0,
		TracingInsecure:     true,
		MetricsNamespace:    "courtmatch",
		MetricsSubsystem:    "matching",
	}
}
