package seeder

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Players    int           // Number of players to register
	Prefix     string        // Username prefix
	Samples    int           // Number of registered players to request matches for
	Limit      int           // Candidate list size per sample
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Random seed; zero picks one from the clock
	OutputFile string        // Output file for generated players
	RunID      string        // Identifies the run in logs and the default output name
	Verbose    bool          // Enable verbose logging
}

// Player is one generated account with the profile to store for it.
type Player struct {
	Username string         `json:"username"`
	Profile  ProfilePayload `json:"profile"`

	// ID is set once the service has registered the player.
	ID int64 `json:"id,omitempty"`
}

// ProfilePayload is the body of PUT /profile.
type ProfilePayload struct {
	DisplayName         string   `json:"display_name"`
	SkillLevel          float64  `json:"skill_level"`
	Age                 int      `json:"age"`
	YearsPlaying        int      `json:"years_playing"`
	Location            string   `json:"location"`
	Gender              string   `json:"gender"`
	DominantHand        string   `json:"dominant_hand"`
	BackhandType        string   `json:"backhand_type"`
	PreferredCourtTypes []string `json:"preferred_court_types"`
	PreferredMatchTypes []string `json:"preferred_match_types"`
	PlayIntentions      []string `json:"play_intentions"`
	PreferredLanguages  []string `json:"preferred_languages"`
}

// Candidate is one entry of GET /match/candidates.
type Candidate struct {
	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Score float64 `json:"score"`
}

// Stats holds run statistics.
type Stats struct {
	PlayersGenerated int
	PlayersCreated   int
	PlayersSkipped   int
	PlayersFailed    int
	ProfilesFailed   int
	SamplesRun       int
	SamplesFailed    int
	SampleViolations int
	TopScore         float64
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
