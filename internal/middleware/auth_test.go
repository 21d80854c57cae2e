package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/sundai/hackathon-api/internal/auth"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/telemetry"
)

// ---------------------------------------------------------------------------
// Column definitions and helpers
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

func profileRow(id, discordID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(profileCols).AddRow(
		id, discordID, "ada", nil, "Ada Lovelace", nil, "", "{go}", "{}",
		"advanced", nil, nil, nil, nil, nil,
		nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil, 0, 0,
		"{}", nil, nil,
		now, now,
	)
}

func apiKeyRow(id, perms string, active bool, expiresAt, revokedAt *time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(apiKeyCols).AddRow(
		id, "hash", "sundai_abcd", "CI", nil, perms, "p-1", active,
		expiresAt, revokedAt, nil, int64(0), nil, now, now,
	)
}

func newProfileRepo(t *testing.T) (*repositories.ProfileRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New (profile): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repositories.NewProfileRepository(db), mock
}

func newAPIKeyRepo(t *testing.T) (*repositories.APIKeyRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New (api key): %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repositories.NewAPIKeyRepository(db), mock
}

func generateTestJWT(t *testing.T, discordID string, ttl time.Duration) string {
	t.Helper()
	token, err := auth.GenerateJWT(discordID, ttl)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return token
}

// newSessionRouter echoes the profile id set by SessionAuth
func newSessionRouter(repo *repositories.ProfileRepository) *gin.Engine {
	r := gin.New()
	r.Use(SessionAuth(repo))
	r.GET("/", func(c *gin.Context) {
		p, ok := CurrentProfile(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile_id": p.ID, "method": c.GetString(AuthMethodKey)})
	})
	return r
}

// newAPIKeyRouter echoes the key id set by APIKeyAuth
func newAPIKeyRouter(repo *repositories.APIKeyRepository) *gin.Engine {
	r := gin.New()
	r.Use(APIKeyAuth(repo))
	r.GET("/", func(c *gin.Context) {
		k, ok := CurrentAPIKey(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"api_key_id": k.ID, "scopes": c.GetStringSlice(ScopesKey)})
	})
	return r
}

func serve(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	msg, _ := body["error"].(string)
	return msg
}

func authCounter(t *testing.T, result string) float64 {
	t.Helper()
	var m dto.Metric
	if err := telemetry.APIKeyAuthTotal.WithLabelValues(result).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

// ---------------------------------------------------------------------------
// SessionAuth
// ---------------------------------------------------------------------------

func TestSessionAuth_RejectsWithoutQueryingDB(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"missing header", "", "Access token required"},
		{"non-bearer scheme", "Basic dXNlcjpwYXNz", "Access token required"},
		{"empty bearer", "Bearer ", "Access token required"},
		{"garbage token", "Bearer not.a.token", "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newProfileRepo(t)
			w := serve(newSessionRouter(repo), map[string]string{"Authorization": tt.header})

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if got := errorMessage(t, w); got != tt.wantMsg {
				t.Errorf("error = %q, want %q", got, tt.wantMsg)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unexpected DB use: %v", err)
			}
		})
	}
}

func TestSessionAuth_ExpiredToken(t *testing.T) {
	repo, _ := newProfileRepo(t)
	token := generateTestJWT(t, "d-1", -time.Minute)

	w := serve(newSessionRouter(repo), map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if got := errorMessage(t, w); got != "Token expired" {
		t.Errorf("error = %q, want Token expired", got)
	}
}

func TestSessionAuth_ValidProfile(t *testing.T) {
	repo, mock := newProfileRepo(t)
	token := generateTestJWT(t, "d-1", time.Hour)

	mock.ExpectQuery("SELECT .* FROM profiles WHERE discord_id = \\$1").
		WithArgs("d-1").
		WillReturnRows(profileRow("p-1", "d-1"))

	w := serve(newSessionRouter(repo), map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["profile_id"] != "p-1" || body["method"] != "session" {
		t.Errorf("body = %v, want profile_id p-1 via session", body)
	}
}

func TestSessionAuth_ProfileNotFound(t *testing.T) {
	repo, mock := newProfileRepo(t)
	token := generateTestJWT(t, "d-gone", time.Hour)

	mock.ExpectQuery("SELECT .* FROM profiles WHERE discord_id").
		WillReturnRows(sqlmock.NewRows(profileCols))

	w := serve(newSessionRouter(repo), map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if got := errorMessage(t, w); got != "Invalid token - user not found" {
		t.Errorf("error = %q", got)
	}
}

func TestSessionAuth_DBError(t *testing.T) {
	repo, mock := newProfileRepo(t)
	token := generateTestJWT(t, "d-1", time.Hour)

	mock.ExpectQuery("SELECT .* FROM profiles WHERE discord_id").
		WillReturnError(errors.New("connection refused"))

	w := serve(newSessionRouter(repo), map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if got := errorMessage(t, w); got != "Authentication error" {
		t.Errorf("error = %q", got)
	}
}

// ---------------------------------------------------------------------------
// APIKeyAuth
// ---------------------------------------------------------------------------

func TestAPIKeyAuth_MissingKey(t *testing.T) {
	repo, mock := newAPIKeyRepo(t)
	before := authCounter(t, "missing")

	w := serve(newAPIKeyRouter(repo), nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if got := errorMessage(t, w); got != "API key required" {
		t.Errorf("error = %q", got)
	}
	if got := authCounter(t, "missing") - before; got != 1 {
		t.Errorf("missing counter delta = %v, want 1", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected DB use: %v", err)
	}
}

func TestAPIKeyAuth_LooksUpBySHA256(t *testing.T) {
	repo, mock := newAPIKeyRepo(t)
	presented := "sundai_0123456789abcdef"

	mock.ExpectQuery("SELECT .* FROM api_keys WHERE key_hash = \\$1").
		WithArgs(auth.HashAPIKey(presented)).
		WillReturnRows(apiKeyRow("key-1", "{read}", true, nil, nil))
	mock.ExpectExec("UPDATE api_keys SET usage_count = usage_count \\+ 1").
		WithArgs("key-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := serve(newAPIKeyRouter(repo), map[string]string{auth.APIKeyHeader: presented})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAPIKeyAuth_BearerFallbackSetsScopes(t *testing.T) {
	repo, mock := newAPIKeyRepo(t)

	mock.ExpectQuery("SELECT .* FROM api_keys WHERE key_hash").
		WillReturnRows(apiKeyRow("key-2", "{read,write}", true, nil, nil))
	mock.ExpectExec("UPDATE api_keys SET usage_count").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := serve(newAPIKeyRouter(repo), map[string]string{"Authorization": "Bearer sundai_abc"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		APIKeyID string   `json:"api_key_id"`
		Scopes   []string `json:"scopes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.APIKeyID != "key-2" {
		t.Errorf("api_key_id = %q, want key-2", body.APIKeyID)
	}
	if len(body.Scopes) != 2 || body.Scopes[0] != "read" || body.Scopes[1] != "write" {
		t.Errorf("scopes = %v, want [read write]", body.Scopes)
	}
}

func TestAPIKeyAuth_Rejections(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantMsg string
		result  string
	}{
		{"unknown key", sqlmock.NewRows(apiKeyCols), "Invalid API key", "invalid"},
		{"inactive key", apiKeyRow("k", "{read}", false, nil, nil), "Invalid API key", "invalid"},
		{"revoked key", apiKeyRow("k", "{read}", true, nil, &past), "Invalid API key", "invalid"},
		{"expired key", apiKeyRow("k", "{read}", true, &past, nil), "API key expired", "expired"},
		{"inactive beats expired", apiKeyRow("k", "{read}", false, &past, nil), "Invalid API key", "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newAPIKeyRepo(t)
			mock.ExpectQuery("SELECT .* FROM api_keys WHERE key_hash").WillReturnRows(tt.rows)
			before := authCounter(t, tt.result)

			w := serve(newAPIKeyRouter(repo), map[string]string{auth.APIKeyHeader: "sundai_x"})
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
			if got := errorMessage(t, w); got != tt.wantMsg {
				t.Errorf("error = %q, want %q", got, tt.wantMsg)
			}
			if got := authCounter(t, tt.result) - before; got != 1 {
				t.Errorf("%s counter delta = %v, want 1", tt.result, got)
			}
			// No usage update may happen for a rejected key
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}

	t.Run("future expiry is accepted", func(t *testing.T) {
		repo, mock := newAPIKeyRepo(t)
		mock.ExpectQuery("SELECT .* FROM api_keys WHERE key_hash").
			WillReturnRows(apiKeyRow("k", "{read}", true, &future, nil))
		mock.ExpectExec("UPDATE api_keys SET usage_count").
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := serve(newAPIKeyRouter(repo), map[string]string{auth.APIKeyHeader: "sundai_x"})
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})
}

func TestAPIKeyAuth_DBErrors(t *testing.T) {
	t.Run("lookup failure", func(t *testing.T) {
		repo, mock := newAPIKeyRepo(t)
		mock.ExpectQuery("SELECT .* FROM api_keys").WillReturnError(errors.New("boom"))

		w := serve(newAPIKeyRouter(repo), map[string]string{auth.APIKeyHeader: "sundai_x"})
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
		if got := errorMessage(t, w); got != "Authentication error" {
			t.Errorf("error = %q", got)
		}
	})

	t.Run("usage update failure", func(t *testing.T) {
		repo, mock := newAPIKeyRepo(t)
		mock.ExpectQuery("SELECT .* FROM api_keys").
			WillReturnRows(apiKeyRow("k", "{read}", true, nil, nil))
		mock.ExpectExec("UPDATE api_keys SET usage_count").WillReturnError(errors.New("boom"))

		w := serve(newAPIKeyRouter(repo), map[string]string{auth.APIKeyHeader: "sundai_x"})
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})
}

// ---------------------------------------------------------------------------
// Context accessors
// ---------------------------------------------------------------------------

func TestCurrentAccessors_EmptyContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, ok := CurrentProfile(c); ok {
		t.Error("CurrentProfile() ok = true on empty context")
	}
	if _, ok := CurrentAPIKey(c); ok {
		t.Error("CurrentAPIKey() ok = true on empty context")
	}

	c.Set(ProfileKey, "not-a-profile")
	if _, ok := CurrentProfile(c); ok {
		t.Error("CurrentProfile() ok = true for wrong type")
	}
}
