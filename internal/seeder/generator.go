package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/courtmatch/internal/domain/model"
	"github.com/okian/courtmatch/pkg/logger"
)

// Seed data for generated profiles.
var (
	Cities = []string{
		"San Francisco", "New York", "Los Angeles", "Seattle", "Austin",
		"Chicago", "Boston", "Miami", "Atlanta", "Denver",
	}
	DisplayNames = []string{
		"Alex", "Sam", "Taylor", "Jordan", "Casey", "Riley", "Jamie", "Drew", "Reese", "Cameron",
	}
	Genders       = []string{"M", "F", "O"}
	DominantHands = []string{"R", "L"}
	BackhandTypes = []string{"1H", "2H"}
)

// Ranges for generated numeric fields.
const (
	minSkillTenths  = 10 // 1.0
	maxSkillTenths  = 55 // 5.5
	skillStepTenths = 5
	minAge          = 16
	maxAge          = 65
	minStartAge     = 12
	maxStartAge     = 30
	maxCodes        = 2
)

// newRand returns the generator for a run. A zero seed picks one from the clock.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

// GeneratePlayers creates n players named prefix0001, prefix0002, ...
func GeneratePlayers(n int, prefix string, rnd *rand.Rand) []Player {
	players := make([]Player, n)
	for i := range players {
		players[i] = generatePlayer(i+1, prefix, rnd)
	}
	return players
}

func generatePlayer(index int, prefix string, rnd *rand.Rand) Player {
	steps := (maxSkillTenths-minSkillTenths)/skillStepTenths + 1
	skill := float64(minSkillTenths+rnd.IntN(steps)*skillStepTenths) / 10
	age := minAge + rnd.IntN(maxAge-minAge+1)
	years := max(0, age-(minStartAge+rnd.IntN(maxStartAge-minStartAge+1)))

	return Player{
		Username: fmt.Sprintf("%s%04d", prefix, index),
		Profile: ProfilePayload{
			DisplayName:         fmt.Sprintf("%s %d", pick(rnd, DisplayNames), index),
			SkillLevel:          skill,
			Age:                 age,
			YearsPlaying:        years,
			Location:            pick(rnd, Cities),
			Gender:              pick(rnd, Genders),
			DominantHand:        pick(rnd, DominantHands),
			BackhandType:        pick(rnd, BackhandTypes),
			PreferredCourtTypes: subset(rnd, model.CourtTypes),
			PreferredMatchTypes: subset(rnd, model.MatchTypes),
			PlayIntentions:      subset(rnd, model.PlayIntentions),
			PreferredLanguages:  subset(rnd, model.Languages),
		},
	}
}

func pick(rnd *rand.Rand, options []string) string {
	return options[rnd.IntN(len(options))]
}

// subset draws 1 or 2 distinct codes from options.
func subset(rnd *rand.Rand, options []string) []string {
	n := 1 + rnd.IntN(min(maxCodes, len(options)))
	out := make([]string, 0, n)
	for _, i := range rnd.Perm(len(options))[:n] {
		out = append(out, options[i])
	}
	return out
}

// generatePlayers builds the players for a run and records the count.
func generatePlayers(ctx context.Context, config *Config, stats *Stats) []Player {
	players := GeneratePlayers(config.Players, config.Prefix, newRand(config.Seed))
	stats.PlayersGenerated = len(players)
	logger.Get().Info(ctx, "generated players", logger.Int("count", len(players)), logger.String("prefix", config.Prefix))
	return players
}
