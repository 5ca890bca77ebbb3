package seeder

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	ProgressInterval     = time.Second
	PercentageMultiplier = 100
	DefaultPrefix        = "seed_user_"
	DefaultLimit         = 8
)
