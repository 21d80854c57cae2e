package account

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/middleware"
)

var errDB = errors.New("database error")

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

var apiKeyCols = []string{
	"id", "key_hash", "key_prefix", "name", "description", "permissions", "created_by", "is_active",
	"expires_at", "revoked_at", "last_used_at", "usage_count", "expiry_notified_at", "created_at", "updated_at",
}

const testKeyID = "6f1c1d52-3a5e-4c1b-9a53-2f7d5f0f8a11"

func profileRow(id, discordID, bio string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(profileCols).AddRow(
		id, discordID, "ada", nil, "Ada Lovelace", nil, bio, "{go,python}", "{ai}",
		"advanced", nil, nil, nil, nil, nil,
		nil, "4-5", nil,
		nil, nil, nil, nil,
		nil, nil, 2, 1,
		"{}", nil, nil,
		now, now,
	)
}

func emptyProfileRows() *sqlmock.Rows {
	return sqlmock.NewRows(profileCols)
}

func apiKeyRow(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(apiKeyCols).AddRow(
		id, "hash", "sundai_abcd", "CI Key", nil, "{read}", "p-1", true,
		nil, nil, nil, int64(3), nil, now, now,
	)
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
