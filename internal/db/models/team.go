// Package models - team.go defines teams, their members, and provisioned Discord channels.
package models

import "time"

// TeamStatus tracks whether a team accepts new members
type TeamStatus string

const (
	TeamStatusOpen   TeamStatus = "open"
	TeamStatusFull   TeamStatus = "full"
	TeamStatusClosed TeamStatus = "closed"
)

// Team is a named collaboration unit
type Team struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description,omitempty"`
	ProjectIdea    *string    `json:"project_idea,omitempty"`
	RequiredSkills []string   `json:"required_skills"`
	MaxMembers     int        `json:"max_members"`
	CurrentMembers int        `json:"current_members"`
	Status         TeamStatus `json:"status"`
	CreatedBy      *string    `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TeamMember is one profile's membership in a team
type TeamMember struct {
	ID        string         `json:"id"`
	TeamID    string         `json:"team_id"`
	ProfileID string         `json:"profile_id"`
	Role      *string        `json:"role,omitempty"`
	JoinedAt  time.Time      `json:"joined_at"`
	Profile   ProfileSummary `json:"profile"`
}

// TeamWithMembers is a team with its roster
type TeamWithMembers struct {
	Team
	Members []TeamMember `json:"members"`
}

// ChannelType distinguishes provisioned Discord channels
type ChannelType string

const (
	ChannelTypeTeam  ChannelType = "team"
	ChannelTypeVoice ChannelType = "voice"
	ChannelTypeMatch ChannelType = "match"
)

// DiscordChannel records a channel created by the provisioner
type DiscordChannel struct {
	ID          string      `json:"id"`
	ChannelID   string      `json:"channel_id"`
	ChannelName string      `json:"channel_name"`
	ChannelType ChannelType `json:"channel_type"`
	TeamID      *string     `json:"team_id,omitempty"`
	MatchID     *string     `json:"match_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	// URL is the web link, filled in by handlers; not stored
	URL string `json:"url,omitempty"`
}
