// Package model contains domain models passed between layers.
package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// UserID identifies a registered player.
type UserID int64

// String renders the id in base 10.
func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseUserID parses a base-10 user id. Zero and negative values are rejected.
func ParseUserID(raw string) (UserID, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return 0, false
	}
	return UserID(n), true
}

// Preference codes known to the product. The matching core does not validate
// against these; they exist for seeding and documentation.
var (
	CourtTypes     = []string{"hard", "clay", "grass"}
	MatchTypes     = []string{"singles", "doubles"}
	PlayIntentions = []string{"casual", "competitive"}
	Languages      = []string{"en", "zh"}
)

// User is a registered account.
type User struct {
	ID        UserID
	Username  string
	CreatedAt time.Time
}

// Profile holds a player's matching attributes. Optional numeric fields are
// nil when unknown.
type Profile struct {
	UserID UserID

	SkillLevel *float64 // NTRP-like rating, e.g. 1.0-5.5
	Age        *int
	Location   string // free text

	PreferredCourtTypes []string
	PreferredMatchTypes []string
	PlayIntentions      []string
	PreferredLanguages  []string

	// Descriptive fields, not used for matching.
	DisplayName  string
	Bio          string
	Gender       string // M, F or O
	YearsPlaying *int
	DominantHand string // R or L
	BackhandType string // 1H or 2H
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	out := p
	if p.SkillLevel != nil {
		out.SkillLevel = Float(*p.SkillLevel)
	}
	if p.Age != nil {
		out.Age = Int(*p.Age)
	}
	if p.YearsPlaying != nil {
		out.YearsPlaying = Int(*p.YearsPlaying)
	}
	out.PreferredCourtTypes = cloneCodes(p.PreferredCourtTypes)
	out.PreferredMatchTypes = cloneCodes(p.PreferredMatchTypes)
	out.PlayIntentions = cloneCodes(p.PlayIntentions)
	out.PreferredLanguages = cloneCodes(p.PreferredLanguages)
	return out
}

func cloneCodes(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

// Candidate is one entry of a candidate pool. Profile is nil when the user
// has not created one; such candidates are skipped by the ranker.
type Candidate struct {
	UserID  UserID
	Profile *Profile
}

// ScoredCandidate pairs a candidate with its compatibility score.
type ScoredCandidate struct {
	UserID  UserID
	Profile Profile
	Score   float64
}

// ScoreJob asks a worker to score one candidate against a requester. The
// result is delivered on Results tagged with Index.
type ScoreJob struct {
	Index     int
	Requester *Profile
	Candidate *Profile
	Results   chan<- ScoreResult
}

// ScoreResult is the answer to a ScoreJob.
type ScoreResult struct {
	Index int
	Score float64
}

// IDSet is a set of user ids.
type IDSet map[UserID]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...UserID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts ids into the set.
func (s IDSet) Add(ids ...UserID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Has reports whether id is in the set. A nil set contains nothing.
func (s IDSet) Has(id UserID) bool {
	_, ok := s[id]
	return ok
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// ParseSkillLevel parses a stored skill rating. Empty, malformed, NaN and
// infinite input yields nil.
func ParseSkillLevel(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// MaxAge bounds ages and years played.
const MaxAge = 150

// ParseAge parses a stored age. Empty, malformed, negative and values above
// MaxAge yield nil.
func ParseAge(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > MaxAge {
		return nil
	}
	return &v
}
