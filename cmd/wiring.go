package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/okian/courtmatch/internal/adapters/http/api"
	"github.com/okian/courtmatch/internal/adapters/http/swagger"
	"github.com/okian/courtmatch/internal/adapters/repository"
	service "github.com/okian/courtmatch/internal/app"
	"github.com/okian/courtmatch/internal/config"
	"github.com/okian/courtmatch/pkg/metrics"
)

// configureMetrics rebuilds the Prometheus metrics with the configured names
// and buckets. It must run before the metrics endpoint is mounted.
func configureMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsBuckets),
	)
}

// openStore builds the repository backend selected by cfg.Store.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreMemory, "":
		return repository.NewMemoryStore(), nil
	case config.StorePostgres:
		return repository.NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store, err := repository.NewRedisStore(ctx, client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}
}

// newHandler registers the API and docs routes and wraps them in a server span.
func newHandler(ctx context.Context, svc *service.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)
	return otelhttp.NewHandler(mux, "courtmatch",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
