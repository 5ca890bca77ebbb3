// Package scoring computes the compatibility score between two player profiles.
package scoring

import (
	"math"

	location "github.com/okian/courtmatch/internal/domain/location"
	model "github.com/okian/courtmatch/internal/domain/model"
)

// Signal weights.
const (
	CourtTypeWeight = 2.0
	MatchTypeWeight = 2.0
	IntentionWeight = 1.5
	LanguageWeight  = 1.0

	SkillWeight = 3.0
	SkillDecay  = 0.8
	AgeWeight   = 1.5
	AgeDecay    = 0.05

	StrongLocationThreshold  = 0.8
	StrongLocationBonus      = 2.0
	PartialLocationThreshold = 0.5
	PartialLocationBonus     = 1.0
)

// UnitMaxScore is the score of two identical profiles holding one code per
// preference set, equal skill and age, and matching locations. Each extra
// shared code adds its set's weight on top.
const UnitMaxScore = CourtTypeWeight + MatchTypeWeight + IntentionWeight + LanguageWeight +
	SkillWeight + AgeWeight + StrongLocationBonus

// Breakdown holds the per-signal contributions of one comparison.
type Breakdown struct {
	CourtTypes  float64
	MatchTypes  float64
	Intentions  float64
	Languages   float64
	Skill       float64
	Age         float64
	Location    float64
	LocationSim float64 // raw Jaccard similarity, not part of the total
}

// Total sums the contributions in a fixed order so Total(a,b) == Total(b,a) bit for bit.
func (b Breakdown) Total() float64 {
	return b.CourtTypes + b.MatchTypes + b.Intentions + b.Languages + b.Skill + b.Age + b.Location
}

// Subject is a profile prepared for repeated comparisons. The location is
// normalized once.
type Subject struct {
	Profile *model.Profile
	tokens  location.TokenSet
}

// Option applies a configuration option to the MatchScorer.
type Option func(*MatchScorer)

// WithNormalizer sets the location normalizer.
func WithNormalizer(n *location.Normalizer) Option {
	return func(s *MatchScorer) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// MatchScorer scores pairs of profiles. It holds no mutable state and is safe
// for concurrent use.
type MatchScorer struct {
	normalizer *location.Normalizer
}

// NewMatchScorer creates a scorer with the default location tables.
func NewMatchScorer(opts ...Option) *MatchScorer {
	s := &MatchScorer{normalizer: location.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subject prepares p for comparisons. A nil profile behaves as an empty one.
func (s *MatchScorer) Subject(p *model.Profile) Subject {
	if p == nil {
		p = &model.Profile{}
	}
	return Subject{Profile: p, tokens: s.normalizer.Normalize(p.Location)}
}

// Score returns the compatibility score of a and b. It never fails and is
// never negative.
func (s *MatchScorer) Score(a, b *model.Profile) float64 {
	return s.Compare(s.Subject(a), s.Subject(b)).Total()
}

// Breakdown returns the per-signal contributions for a and b.
func (s *MatchScorer) Breakdown(a, b *model.Profile) Breakdown {
	return s.Compare(s.Subject(a), s.Subject(b))
}

// Compare scores two prepared subjects.
func (s *MatchScorer) Compare(a, b Subject) Breakdown {
	if a.Profile == nil {
		a = s.Subject(nil)
	}
	if b.Profile == nil {
		b = s.Subject(nil)
	}
	p1, p2 := a.Profile, b.Profile
	out := Breakdown{
		CourtTypes: CourtTypeWeight * float64(Overlap(p1.PreferredCourtTypes, p2.PreferredCourtTypes)),
		MatchTypes: MatchTypeWeight * float64(Overlap(p1.PreferredMatchTypes, p2.PreferredMatchTypes)),
		Intentions: IntentionWeight * float64(Overlap(p1.PlayIntentions, p2.PlayIntentions)),
		Languages:  LanguageWeight * float64(Overlap(p1.PreferredLanguages, p2.PreferredLanguages)),
	}

	if p1.SkillLevel != nil && p2.SkillLevel != nil {
		out.Skill = proximity(*p1.SkillLevel-*p2.SkillLevel, SkillWeight, SkillDecay)
	}
	if p1.Age != nil && p2.Age != nil {
		out.Age = proximity(float64(*p1.Age)-float64(*p2.Age), AgeWeight, AgeDecay)
	}

	out.LocationSim = location.Jaccard(a.tokens, b.tokens)
	switch {
	case out.LocationSim >= StrongLocationThreshold:
		out.Location = StrongLocationBonus
	case out.LocationSim >= PartialLocationThreshold:
		out.Location = PartialLocationBonus
	}
	return out
}

// proximity returns weight*exp(-decay*|diff|), or 0 when diff is not a finite number.
func proximity(diff, weight, decay float64) float64 {
	if math.IsNaN(diff) || math.IsInf(diff, 0) {
		return 0
	}
	return weight * math.Exp(-decay*math.Abs(diff))
}

// Overlap counts the distinct codes present in both a and b.
func Overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	in := make(map[string]struct{}, len(b))
	for _, v := range b {
		in[v] = struct{}{}
	}
	n := 0
	for _, v := range a {
		if _, ok := in[v]; ok {
			n++
			delete(in, v)
		}
	}
	return n
}
