package account

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/sundai/hackathon-api/internal/auth"
	discordauth "github.com/sundai/hackathon-api/internal/auth/discord"
	"github.com/sundai/hackathon-api/internal/config"
	"github.com/sundai/hackathon-api/internal/crypto"
)

// ---------------------------------------------------------------------------
// Router helpers
// ---------------------------------------------------------------------------

func newAuthRouter(t *testing.T, cfg *config.Config, cipher *crypto.TokenCipher) (*AuthHandlers, sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h, err := NewAuthHandlers(cfg, db, cipher)
	if err != nil {
		t.Fatalf("NewAuthHandlers: %v", err)
	}

	r := gin.New()
	r.POST("/auth/discord/callback", h.CallbackHandler())
	r.POST("/auth/register", h.RegisterHandler())
	r.POST("/auth/refresh", h.RefreshHandler())
	r.GET("/auth/me", withProfile(testProfile()), h.MeHandler())
	return h, mock, r
}

// newDiscordServer fakes the Discord token endpoint and users/@me
func newDiscordServer(t *testing.T, tokenStatus int, user string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		if tokenStatus == http.StatusOK {
			w.Write([]byte(`{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`))
			return
		}
		w.Write([]byte(`{"error":"invalid_grant"}`))
	})
	mux.HandleFunc("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(user))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func oauthConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.DiscordOAuth = config.DiscordOAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:3000/callback",
	}
	return cfg
}

func pointProviderAt(t *testing.T, h *AuthHandlers, cfg *config.Config, srv *httptest.Server) {
	t.Helper()
	p, err := discordauth.NewProvider(&cfg.Auth.DiscordOAuth)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	h.SetDiscordProvider(p.WithEndpoints(srv.URL+"/oauth2/token", srv.URL))
}

func testCipher(t *testing.T) *crypto.TokenCipher {
	t.Helper()
	c, err := crypto.FromEncryptionKey(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("FromEncryptionKey: %v", err)
	}
	return c
}

const discordUserJSON = `{"id":"d-42","username":"grace","global_name":"Grace Hopper","email":"grace@example.com","avatar":"abc123"}`

// ---------------------------------------------------------------------------
// NewAuthHandlers
// ---------------------------------------------------------------------------

func TestNewAuthHandlers_ProviderOnlyWhenConfigured(t *testing.T) {
	h, _, _ := newAuthRouter(t, &config.Config{}, nil)
	if h.oauth != nil {
		t.Error("provider should be nil without OAuth credentials")
	}
	h, _, _ = newAuthRouter(t, oauthConfig(), nil)
	if h.oauth == nil {
		t.Error("provider should be built when OAuth credentials are set")
	}
}

func TestSessionExpiry_Default(t *testing.T) {
	h, _, _ := newAuthRouter(t, &config.Config{}, nil)
	if got := h.sessionExpiry(); got != DefaultSessionExpiry {
		t.Errorf("sessionExpiry = %v, want %v", got, DefaultSessionExpiry)
	}
	cfg := &config.Config{}
	cfg.Auth.Session.Expiry = time.Hour
	h, _, _ = newAuthRouter(t, cfg, nil)
	if got := h.sessionExpiry(); got != time.Hour {
		t.Errorf("sessionExpiry = %v, want 1h", got)
	}
}

// ---------------------------------------------------------------------------
// CallbackHandler
// ---------------------------------------------------------------------------

func TestCallback_MissingCode(t *testing.T) {
	_, _, r := newAuthRouter(t, oauthConfig(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/discord/callback", jsonBody(map[string]string{})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if msg := errorMessage(w); msg != "Authorization code required" {
		t.Errorf("error = %q", msg)
	}
}

func TestCallback_NotConfigured(t *testing.T) {
	_, _, r := newAuthRouter(t, &config.Config{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/discord/callback", jsonBody(map[string]string{"code": "abc"})))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestCallback_ExchangeFails(t *testing.T) {
	cfg := oauthConfig()
	h, _, r := newAuthRouter(t, cfg, nil)
	pointProviderAt(t, h, cfg, newDiscordServer(t, http.StatusBadRequest, discordUserJSON))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/discord/callback", jsonBody(map[string]string{"code": "bad"})))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if msg := errorMessage(w); msg != "Failed to exchange code for token" {
		t.Errorf("error = %q", msg)
	}
}

func TestCallback_UserLookupFails(t *testing.T) {
	cfg := oauthConfig()
	h, _, r := newAuthRouter(t, cfg, nil)
	pointProviderAt(t, h, cfg, newDiscordServer(t, http.StatusOK, `{"username":"no-id"}`))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/discord/callback", jsonBody(map[string]string{"code": "ok"})))

	if msg := errorMessage(w); w.Code != http.StatusBadRequest || msg != "Failed to get user info" {
		t.Errorf("status = %d error = %q, want 400 Failed to get user info", w.Code, msg)
	}
}

func TestCallback_NewUserCreatesProfileAndStoresTokens(t *testing.T) {
	cfg := oauthConfig()
	h, mock, r := newAuthRouter(t, cfg, testCipher(t))
	pointProviderAt(t, h, cfg, newDiscordServer(t, http.StatusOK, discordUserJSON))

	mock.ExpectQuery("FROM profiles WHERE discord_id = \\$1").
		WithArgs("d-42").
		WillReturnRows(emptyProfileRows())
	mock.ExpectExec("INSERT INTO profiles").
		WithArgs(sqlmock.AnyArg(), "d-42", "grace", "grace@example.com", "Grace Hopper",
			"https://cdn.discordapp.com/avatars/d-42/abc123.png",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE profiles SET discord_access_token_encrypted").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/discord/callback", jsonBody(map[string]string{"code": "ok"})))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	resp := getJSON(w)
	token, _ := resp["token"].(string)
	claims, err := auth.ValidateJWT(token)
	if err != nil || claims.DiscordID != "d-42" {
		t.Errorf("token invalid: claims=%+v err=%v", claims, err)
	}
	user, _ := resp["user"].(map[string]interface{})
	if user["is_new_user"] != true {
		t.Errorf("is_new_user = %v, want true", user["is_new_user"])
	}
	if user["full_name"] != "Grace Hopper" {
		t.Errorf("full_name = %v, want global name", user["full_name"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCallback_ExistingUserWithBio(t *testing.T) {
	cfg := oauthConfig()
	h, mock, r := newAuthRouter(t, cfg, nil)
	pointProviderAt(t, h, cfg, newDiscordServer(t, http.StatusOK, discordUserJSON))

	// No cipher: tokens are not persisted, so no UPDATE is expected
	mock.ExpectQuery("FROM profiles WHERE discord_id").
		WillReturnRows(profileRow("p-42", "d-42", "Compiler enthusiast"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/discord/callback", jsonBody(map[string]string{"code": "ok"})))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
	}
	user, _ := getJSON(w)["user"].(map[string]interface{})
	if user["is_new_user"] != false || user["id"] != "p-42" {
		t.Errorf("user = %v, want existing profile p-42 with is_new_user=false", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCallback_ProfileLookupError(t *testing.T) {
	cfg := oauthConfig()
	h, mock, r := newAuthRouter(t, cfg, nil)
	pointProviderAt(t, h, cfg, newDiscordServer(t, http.StatusOK, discordUserJSON))
	mock.ExpectQuery("FROM profiles").WillReturnError(errDB)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/discord/callback", jsonBody(map[string]string{"code": "ok"})))

	if msg := errorMessage(w); w.Code != http.StatusInternalServerError || msg != "Authentication failed" {
		t.Errorf("status = %d error = %q", w.Code, msg)
	}
}

// ---------------------------------------------------------------------------
// RegisterHandler
// ---------------------------------------------------------------------------

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]interface{}
		wantMsg string
	}{
		{"missing discord id", map[string]interface{}{"username": "ada"}, `"discord_id" is required`},
		{"bad email", map[string]interface{}{"discord_id": "d", "username": "u", "email": "nope"}, `"email" must be a valid email`},
		{"bad level", map[string]interface{}{"discord_id": "d", "username": "u", "experience_level": "guru"}, `"experience_level" must be one of`},
		{"bad team size", map[string]interface{}{"discord_id": "d", "username": "u", "team_size_preference": "12"}, `"team_size_preference" must be one of`},
		{"bio too long", map[string]interface{}{"discord_id": "d", "username": "u", "bio": strings.Repeat("x", 501)}, `"bio" length must be less than or equal to 500`},
		{"availability not object", map[string]interface{}{"discord_id": "d", "username": "u", "availability": []int{1}}, `"availability" must be of type object`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, r := newAuthRouter(t, &config.Config{}, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register", jsonBody(tt.body)))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if msg := errorMessage(w); !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestRegister_CreatedAndUpdated(t *testing.T) {
	tests := []struct {
		inserted bool
		wantMsg  string
	}{
		{true, "Profile created successfully"},
		{false, "Profile updated successfully"},
	}
	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			_, mock, r := newAuthRouter(t, &config.Config{}, nil)
			now := time.Now()
			mock.ExpectQuery("INSERT INTO profiles .* ON CONFLICT \\(discord_id\\) DO UPDATE").
				WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).
					AddRow("p-9", now, now, tt.inserted))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register", jsonBody(map[string]interface{}{
				"discord_id":       "d-9",
				"username":         "linus",
				"skills":           []string{" Go", "go", "C"},
				"experience_level": "expert",
				"availability":     map[string]bool{"weekends": true},
			})))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: body=%s", w.Code, w.Body.String())
			}
			resp := getJSON(w)
			if resp["message"] != tt.wantMsg {
				t.Errorf("message = %v, want %q", resp["message"], tt.wantMsg)
			}
			if tok, _ := resp["token"].(string); tok == "" {
				t.Error("token missing")
			}
			user, _ := resp["user"].(map[string]interface{})
			skills, _ := user["skills"].([]interface{})
			if len(skills) != 2 {
				t.Errorf("skills = %v, want normalized [Go C]", skills)
			}
		})
	}
}

func TestRegister_DBError(t *testing.T) {
	_, mock, r := newAuthRouter(t, &config.Config{}, nil)
	mock.ExpectQuery("INSERT INTO profiles").WillReturnError(errDB)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register",
		jsonBody(map[string]interface{}{"discord_id": "d-9", "username": "linus"})))

	if msg := errorMessage(w); w.Code != http.StatusInternalServerError || msg != "Registration failed" {
		t.Errorf("status = %d error = %q", w.Code, msg)
	}
}

// ---------------------------------------------------------------------------
// MeHandler / RefreshHandler
// ---------------------------------------------------------------------------

func TestMe_ReturnsProfile(t *testing.T) {
	_, _, r := newAuthRouter(t, &config.Config{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	user, _ := getJSON(w)["user"].(map[string]interface{})
	if user["username"] != "ada" {
		t.Errorf("user = %v", user)
	}
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		setup      func(sqlmock.Sqlmock)
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "missing discord id",
			body:       map[string]string{},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Discord ID required",
		},
		{
			name: "unknown user",
			body: map[string]string{"discord_id": "ghost"},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("FROM profiles WHERE discord_id").WillReturnRows(emptyProfileRows())
			},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid user",
		},
		{
			name: "db error",
			body: map[string]string{"discord_id": "d-1"},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("FROM profiles").WillReturnError(errDB)
			},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Token refresh failed",
		},
		{
			name: "success",
			body: map[string]string{"discord_id": "d-1"},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("FROM profiles WHERE discord_id").WillReturnRows(profileRow("p-1", "d-1", ""))
			},
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, mock, r := newAuthRouter(t, &config.Config{}, nil)
			if tt.setup != nil {
				tt.setup(mock)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/refresh", jsonBody(tt.body)))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantMsg != "" && errorMessage(w) != tt.wantMsg {
				t.Errorf("error = %q, want %q", errorMessage(w), tt.wantMsg)
			}
			if tt.wantStatus == http.StatusOK {
				tok, _ := getJSON(w)["token"].(string)
				if _, err := auth.ValidateJWT(tok); err != nil {
					t.Errorf("refreshed token invalid: %v", err)
				}
			}
		})
	}
}
