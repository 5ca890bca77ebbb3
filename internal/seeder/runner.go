package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/courtmatch/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrNoPlayersCreated is returned when every registration failed.
var ErrNoPlayersCreated = errors.New("no players created")

// Run executes a complete seeding run and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	applyDefaults(config)
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting courtmatch seeding run",
		logger.String("runID", config.RunID),
		logger.String("baseURL", config.BaseURL),
		logger.Int("players", config.Players),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Int("samples", config.Samples),
		logger.Bool("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	players := generatePlayers(ctx, config, stats)

	registerPlayers(ctx, config, players, stats)
	if stats.PlayersCreated == 0 && stats.PlayersSkipped == 0 {
		return stats, ErrNoPlayersCreated
	}

	if config.Samples > 0 {
		results := sampleMatches(ctx, config, players, stats)
		verifySamples(ctx, config, results, stats)
	}

	if config.OutputFile != "-" {
		if err := savePlayersToFile(ctx, config, players); err != nil {
			logger.Get().Warn(ctx, "failed to save players to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	logger.Get().Info(ctx, "seeding completed successfully")
	return stats, nil
}

func applyDefaults(config *Config) {
	if config.RunID == "" {
		config.RunID = uuid.NewString()
	}
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Limit < 1 {
		config.Limit = DefaultLimit
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz", 0)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// savePlayersToFile writes the generated players as a JSON array.
func savePlayersToFile(ctx context.Context, config *Config, players []Player) error {
	if len(players) == 0 {
		return fmt.Errorf("no players to save")
	}

	filename := config.OutputFile
	if filename == "" {
		filename = "seeded_players_" + config.RunID + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(players, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "players saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, playersPerSecond float64

	if stats.PlayersGenerated > 0 {
		successRate = float64(stats.PlayersCreated) / float64(stats.PlayersGenerated) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		playersPerSecond = float64(stats.PlayersGenerated) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("playersGenerated", stats.PlayersGenerated),
		logger.Int("playersCreated", stats.PlayersCreated),
		logger.Int("playersSkipped", stats.PlayersSkipped),
		logger.Int("playersFailed", stats.PlayersFailed),
		logger.Int("profilesFailed", stats.ProfilesFailed),
		logger.Int("samplesRun", stats.SamplesRun),
		logger.Int("samplesFailed", stats.SamplesFailed),
		logger.Int("sampleViolations", stats.SampleViolations),
		logger.Float64("topScore", stats.TopScore),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("playersPerSecond", playersPerSecond))
}
