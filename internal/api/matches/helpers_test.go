package matches

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/middleware"
)

var errDB = errors.New("database error")

const testMatchID = "0b7e4a8e-6f0e-4f4c-9d0c-2b1d3e4f5a61"

// ---------------------------------------------------------------------------
// Column / row definitions
// ---------------------------------------------------------------------------

var profileCols = []string{
	"id", "discord_id", "username", "email", "full_name", "avatar_url", "bio", "skills", "interests",
	"experience_level", "github_url", "linkedin_url", "portfolio_url", "timezone", "availability",
	"project_preferences", "team_size_preference", "communication_preferences",
	"linkedin_headline", "linkedin_industry", "linkedin_company", "linkedin_position",
	"linkedin_experience", "linkedin_education", "hackathon_experience", "hackathon_wins",
	"preferred_technologies", "discord_access_token_encrypted", "discord_refresh_token_encrypted",
	"created_at", "updated_at",
}

var matchCols = []string{
	"id", "profile_id", "matched_profile_id", "match_score", "match_reason", "status", "created_at", "updated_at",
}

var historyCols = append(append([]string{}, matchCols...),
	"id", "username", "full_name", "avatar_url", "bio", "skills", "experience_level")

// candidate describes one row of the candidate pool
type candidate struct {
	id, username, level string
	skills              string
}

func poolRows(cands ...candidate) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows(profileCols)
	for _, c := range cands {
		var level interface{}
		if c.level != "" {
			level = c.level
		}
		skills := c.skills
		if skills == "" {
			skills = "{}"
		}
		rows.AddRow(
			c.id, "discord-"+c.id, c.username, nil, nil, nil, nil, skills, "{}",
			level, nil, nil, nil, nil, nil,
			nil, nil, nil,
			nil, nil, nil, nil,
			nil, nil, 0, 0,
			"{}", nil, nil,
			now, now,
		)
	}
	return rows
}

func upsertRow(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "status", "created_at", "updated_at"}).
		AddRow(id, "pending", now, now)
}

func testProfile() *models.Profile {
	return &models.Profile{
		ID:        "p-1",
		DiscordID: "d-1",
		Username:  "ada",
		Skills:    []string{"go"},
		Interests: []string{},
	}
}

// ---------------------------------------------------------------------------
// Scripted matching collaborators
// ---------------------------------------------------------------------------

// fixedScorer returns a score per candidate id and records the focus skills it saw
type fixedScorer struct {
	mu     sync.Mutex
	scores map[string]float64
	focus  []string
}

func (s *fixedScorer) Estimate(_ context.Context, _, candidate *models.Profile, focus []string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focus = focus
	return s.scores[candidate.ID]
}

type fixedExplainer struct{}

func (fixedExplainer) Explain(_ context.Context, _, candidate *models.Profile) string {
	return "works well with " + candidate.Username
}

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// withProfile stands in for SessionAuth
func withProfile(p *models.Profile) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			c.Set(middleware.ProfileKey, p)
			c.Set(middleware.ProfileIDKey, p.ID)
		}
		c.Next()
	}
}

func jsonBody(v interface{}) *bytes.Buffer {
	b, _ := json.Marshal(v)
	return bytes.NewBuffer(b)
}

func getJSON(resp *httptest.ResponseRecorder) map[string]interface{} {
	var m map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &m)
	return m
}

func errorMessage(resp *httptest.ResponseRecorder) string {
	msg, _ := getJSON(resp)["error"].(string)
	return msg
}
