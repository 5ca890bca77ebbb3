package api

import (
	"bytes"
	"encoding/json"
	"time"

	service "github.com/okian/courtmatch/internal/app"
	"github.com/okian/courtmatch/internal/domain/model"
)

// userResponse mirrors the OpenAPI User schema.
type userResponse struct {
	ID        model.UserID     `json:"id"`
	Username  string           `json:"username"`
	CreatedAt time.Time        `json:"created_at"`
	Profile   *profileResponse `json:"profile"`
}

// profileResponse mirrors the OpenAPI Profile schema.
type profileResponse struct {
	SkillLevel          *float64 `json:"skill_level"`
	Age                 *int     `json:"age"`
	Location            string   `json:"location"`
	PreferredCourtTypes []string `json:"preferred_court_types"`
	PreferredMatchTypes []string `json:"preferred_match_types"`
	PlayIntentions      []string `json:"play_intentions"`
	PreferredLanguages  []string `json:"preferred_languages"`
	DisplayName         string   `json:"display_name"`
	Bio                 string   `json:"bio"`
	Gender              string   `json:"gender"`
	YearsPlaying        *int     `json:"years_playing"`
	DominantHand        string   `json:"dominant_hand"`
	BackhandType        string   `json:"backhand_type"`
}

type recommendationResponse struct {
	User  userResponse `json:"user"`
	Score float64      `json:"score"`
}

type candidatesResponse struct {
	Candidates []recommendationResponse `json:"candidates"`
}

func newProfileResponse(p *model.Profile) *profileResponse {
	if p == nil {
		return nil
	}
	return &profileResponse{
		SkillLevel:          p.SkillLevel,
		Age:                 p.Age,
		Location:            p.Location,
		PreferredCourtTypes: nonNil(p.PreferredCourtTypes),
		PreferredMatchTypes: nonNil(p.PreferredMatchTypes),
		PlayIntentions:      nonNil(p.PlayIntentions),
		PreferredLanguages:  nonNil(p.PreferredLanguages),
		DisplayName:         p.DisplayName,
		Bio:                 p.Bio,
		Gender:              p.Gender,
		YearsPlaying:        p.YearsPlaying,
		DominantHand:        p.DominantHand,
		BackhandType:        p.BackhandType,
	}
}

func newUserResponse(d service.UserDetail) userResponse {
	return userResponse{
		ID:        d.User.ID,
		Username:  d.User.Username,
		CreatedAt: d.User.CreatedAt,
		Profile:   newProfileResponse(d.Profile),
	}
}

// newRecommendation renders a scored candidate with the profile snapshot
// that was scored.
func newRecommendation(c model.ScoredCandidate, u model.User) recommendationResponse { //nolint:gocritic // hugeParam: rendered once
	p := c.Profile
	u.ID = c.UserID
	return recommendationResponse{
		User:  newUserResponse(service.UserDetail{User: u, Profile: &p}),
		Score: c.Score,
	}
}

func nonNil(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}

// optionalNumber is a JSON number, numeric string or null that remembers
// whether the field was present in the body.
type optionalNumber struct {
	set bool
	raw string
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *optionalNumber) UnmarshalJSON(data []byte) error {
	n.set = true
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		n.raw = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n.raw = s
	default:
		// Anything else that is not a number parses as absent downstream.
		n.raw = string(data)
	}
	return nil
}

// profileRequest is the body of PUT and PATCH /profile. Absent fields are
// left untouched by PATCH and reset by PUT. Malformed numbers become absent.
type profileRequest struct {
	SkillLevel          optionalNumber `json:"skill_level"`
	Age                 optionalNumber `json:"age"`
	YearsPlaying        optionalNumber `json:"years_playing"`
	Location            *string        `json:"location"`
	PreferredCourtTypes *[]string      `json:"preferred_court_types"`
	PreferredMatchTypes *[]string      `json:"preferred_match_types"`
	PlayIntentions      *[]string      `json:"play_intentions"`
	PreferredLanguages  *[]string      `json:"preferred_languages"`
	DisplayName         *string        `json:"display_name"`
	Bio                 *string        `json:"bio"`
	Gender              *string        `json:"gender"`
	DominantHand        *string        `json:"dominant_hand"`
	BackhandType        *string        `json:"backhand_type"`
}

func (req *profileRequest) apply(p *model.Profile) {
	if req.SkillLevel.set {
		p.SkillLevel = model.ParseSkillLevel(req.SkillLevel.raw)
	}
	if req.Age.set {
		p.Age = model.ParseAge(req.Age.raw)
	}
	if req.YearsPlaying.set {
		p.YearsPlaying = model.ParseAge(req.YearsPlaying.raw)
	}
	setString(&p.Location, req.Location)
	setCodes(&p.PreferredCourtTypes, req.PreferredCourtTypes)
	setCodes(&p.PreferredMatchTypes, req.PreferredMatchTypes)
	setCodes(&p.PlayIntentions, req.PlayIntentions)
	setCodes(&p.PreferredLanguages, req.PreferredLanguages)
	setString(&p.DisplayName, req.DisplayName)
	setString(&p.Bio, req.Bio)
	setString(&p.Gender, req.Gender)
	setString(&p.DominantHand, req.DominantHand)
	setString(&p.BackhandType, req.BackhandType)
}

func setString(dst, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setCodes(dst, src *[]string) {
	if src != nil {
		*dst = append([]string(nil), (*src)...)
	}
}
