// Package seeder registers fake players against a running courtmatch service
// and spot-checks the match lists it returns.
package seeder

import (
	"fmt"
	"os"

	"github.com/okian/courtmatch/pkg/logger"
)

// SetupLogging initializes the global logger in the given format.
func SetupLogging(format string) error {
	if err := logger.InitWithFormat(format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the seeding tool.
func ShowHelp() {
	os.Stdout.WriteString(`courtmatch player seeder
========================

Registers fake players with random profiles against a running service, then
requests candidate lists for a sample of them and checks their ordering.

Usage:
  go run ./cmd/seed-players [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -count int
        Number of players to register (default 1000)
  -prefix string
        Username prefix (default "seed_user_")
  -samples int
        Number of registered players to request matches for (default 20)
  -limit int
        Candidate list size per sample (default 8)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed uint
        Random seed, 0 picks one from the clock
  -output string
        Output file for generated players, "-" to skip
        (default: seeded_players_RUNID.json)
  -log-format string
        Log format: text or json (default "text")
  -verbose
        Enable verbose logging
  -help
        Show this help message

Usernames already taken are skipped, so repeated runs with the same prefix
only add the missing players.

Examples:
  go run ./cmd/seed-players -count 5000 -workers 16
  go run ./cmd/seed-players -prefix demo_ -seed 42 -output -
`)
}
