// Package models defines the database model types for the hackathon directory.
// Each type corresponds to a table row; JSON tags describe the API shape.
// Query logic belongs in the repositories package.
package models

import (
	"encoding/json"
	"time"
)

// ExperienceLevel is a participant's self-reported seniority
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
	ExperienceExpert       ExperienceLevel = "expert"
)

// ExperienceLevels is the ordered scale used for distance calculations
var ExperienceLevels = []ExperienceLevel{
	ExperienceBeginner,
	ExperienceIntermediate,
	ExperienceAdvanced,
	ExperienceExpert,
}

// Index returns the position of the level on the ordered scale, or -1 if unknown
func (e ExperienceLevel) Index() int {
	for i, l := range ExperienceLevels {
		if l == e {
			return i
		}
	}
	return -1
}

// IsValid reports whether e is one of the known levels
func (e ExperienceLevel) IsValid() bool {
	return e.Index() >= 0
}

// TeamSizePreference is a participant's preferred team size bucket
type TeamSizePreference string

const (
	TeamSizeSmall  TeamSizePreference = "2-3"
	TeamSizeMedium TeamSizePreference = "4-5"
	TeamSizeLarge  TeamSizePreference = "6+"
)

// IsValid reports whether t is one of the known buckets
func (t TeamSizePreference) IsValid() bool {
	switch t {
	case TeamSizeSmall, TeamSizeMedium, TeamSizeLarge:
		return true
	}
	return false
}

// Profile represents a participant record. Exactly one exists per Discord identity.
type Profile struct {
	ID                       string              `json:"id"`
	DiscordID                string              `json:"discord_id"`
	Username                 string              `json:"username"`
	Email                    *string             `json:"email,omitempty"`
	FullName                 *string             `json:"full_name,omitempty"`
	AvatarURL                *string             `json:"avatar_url,omitempty"`
	Bio                      *string             `json:"bio,omitempty"`
	Skills                   []string            `json:"skills"`
	Interests                []string            `json:"interests"`
	ExperienceLevel          *ExperienceLevel    `json:"experience_level,omitempty"`
	GithubURL                *string             `json:"github_url,omitempty"`
	LinkedinURL              *string             `json:"linkedin_url,omitempty"`
	PortfolioURL             *string             `json:"portfolio_url,omitempty"`
	Timezone                 *string             `json:"timezone,omitempty"`
	Availability             json.RawMessage     `json:"availability,omitempty"`
	ProjectPreferences       json.RawMessage     `json:"project_preferences,omitempty"`
	TeamSizePreference       *TeamSizePreference `json:"team_size_preference,omitempty"`
	CommunicationPreferences json.RawMessage     `json:"communication_preferences,omitempty"`

	// Imported from the participant's professional-network profile
	LinkedinHeadline   *string         `json:"linkedin_headline,omitempty"`
	LinkedinIndustry   *string         `json:"linkedin_industry,omitempty"`
	LinkedinCompany    *string         `json:"linkedin_company,omitempty"`
	LinkedinPosition   *string         `json:"linkedin_position,omitempty"`
	LinkedinExperience json.RawMessage `json:"linkedin_experience,omitempty"`
	LinkedinEducation  json.RawMessage `json:"linkedin_education,omitempty"`

	HackathonExperience   int      `json:"hackathon_experience"`
	HackathonWins         int      `json:"hackathon_wins"`
	PreferredTechnologies []string `json:"preferred_technologies"`

	// AES-GCM ciphertexts; never serialized
	DiscordAccessTokenEncrypted  *string `json:"-"`
	DiscordRefreshTokenEncrypted *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Level returns the experience level or the empty string when unset
func (p *Profile) Level() ExperienceLevel {
	if p.ExperienceLevel == nil {
		return ""
	}
	return *p.ExperienceLevel
}

// TeamSize returns the team size preference or the empty string when unset
func (p *Profile) TeamSize() TeamSizePreference {
	if p.TeamSizePreference == nil {
		return ""
	}
	return *p.TeamSizePreference
}

// DisplayName prefers the full name and falls back to the username
func (p *Profile) DisplayName() string {
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return p.Username
}

// Summary returns the subset of fields shown in match and search results
func (p *Profile) Summary() ProfileSummary {
	return ProfileSummary{
		ID:              p.ID,
		Username:        p.Username,
		FullName:        p.FullName,
		AvatarURL:       p.AvatarURL,
		Bio:             p.Bio,
		Skills:          p.Skills,
		ExperienceLevel: p.ExperienceLevel,
	}
}

// ProfileSummary is the compact profile shape embedded in listings
type ProfileSummary struct {
	ID                 string              `json:"id"`
	Username           string              `json:"username"`
	FullName           *string             `json:"full_name,omitempty"`
	AvatarURL          *string             `json:"avatar_url,omitempty"`
	Bio                *string             `json:"bio,omitempty"`
	Skills             []string            `json:"skills"`
	ExperienceLevel    *ExperienceLevel    `json:"experience_level,omitempty"`
	TeamSizePreference *TeamSizePreference `json:"team_size_preference,omitempty"`
	CreatedAt          *time.Time          `json:"created_at,omitempty"`
}

// PublicParticipant is the unauthenticated directory shape; it omits ids and contact data
type PublicParticipant struct {
	Username           string              `json:"username"`
	FullName           *string             `json:"full_name,omitempty"`
	AvatarURL          *string             `json:"avatar_url,omitempty"`
	Bio                *string             `json:"bio,omitempty"`
	Skills             []string            `json:"skills"`
	ExperienceLevel    *ExperienceLevel    `json:"experience_level,omitempty"`
	TeamSizePreference *TeamSizePreference `json:"team_size_preference,omitempty"`
	LinkedinHeadline   *string             `json:"linkedin_headline,omitempty"`
	LinkedinIndustry   *string             `json:"linkedin_industry,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// Public converts a profile into its public directory shape
func (p *Profile) Public() PublicParticipant {
	return PublicParticipant{
		Username:           p.Username,
		FullName:           p.FullName,
		AvatarURL:          p.AvatarURL,
		Bio:                p.Bio,
		Skills:             p.Skills,
		ExperienceLevel:    p.ExperienceLevel,
		TeamSizePreference: p.TeamSizePreference,
		LinkedinHeadline:   p.LinkedinHeadline,
		LinkedinIndustry:   p.LinkedinIndustry,
		CreatedAt:          p.CreatedAt,
	}
}
