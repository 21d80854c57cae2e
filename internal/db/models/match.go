// Package models - match.go defines directed match recommendations between profiles.
package models

import "time"

// MatchStatus is the requester's decision on a recommendation
type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusRejected MatchStatus = "rejected"
)

// Match is a scored, directed recommendation from ProfileID to MatchedProfileID.
// At most one row exists per ordered pair.
type Match struct {
	ID               string      `json:"id"`
	ProfileID        string      `json:"profile_id"`
	MatchedProfileID string      `json:"matched_profile_id"`
	Score            float64     `json:"match_score"`
	Reason           string      `json:"match_reason"`
	Status           MatchStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// MatchWithProfile is a match joined with the candidate's summary, used for history
type MatchWithProfile struct {
	Match
	MatchedProfile ProfileSummary `json:"matched_profile"`
}

// MatchParticipants is an accepted match with both sides' Discord identities
type MatchParticipants struct {
	MatchID          string
	Reason           string
	RequesterDiscord string
	RequesterName    string
	MatchedDiscord   string
	MatchedName      string
}
