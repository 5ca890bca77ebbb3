package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/courtmatch/internal/seeder"
	"github.com/okian/courtmatch/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers  = 1000
	defaultSamples  = 20
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout  = 30 * time.Second
	defaultDeadline = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		count      = flag.Int("count", defaultPlayers, "Number of players to register")
		prefix     = flag.String("prefix", seeder.DefaultPrefix, "Username prefix")
		samples    = flag.Int("samples", defaultSamples, "Number of registered players to request matches for")
		limit      = flag.Int("limit", seeder.DefaultLimit, "Candidate list size per sample")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", 0, "Random seed, 0 picks one from the clock")
		outputFile = flag.String("output", "", `Output file for generated players, "-" to skip`)
		logFormat  = flag.String("log-format", logger.FormatText, "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seeder.ShowHelp()
		return
	}

	if err := seeder.SetupLogging(*logFormat); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultDeadline)
	defer cancel()

	config := &seeder.Config{
		BaseURL:    *baseURL,
		Players:    *count,
		Prefix:     *prefix,
		Samples:    *samples,
		Limit:      *limit,
		Workers:    *workers,
		Timeout:    *timeout,
		Seed:       *seed,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := seeder.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		cancel()
		stop()
		os.Exit(1)
	}
}
