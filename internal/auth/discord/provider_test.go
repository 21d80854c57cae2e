package discord

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/sundai/hackathon-api/internal/config"
)

func strPtr(s string) *string { return &s }

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(&config.DiscordOAuthConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost/callback",
	})
	if err != nil {
		t.Fatalf("NewProvider() error: %v", err)
	}
	return p
}

func TestNewProvider_MissingClientID(t *testing.T) {
	_, err := NewProvider(&config.DiscordOAuthConfig{ClientSecret: "secret"})
	if err == nil {
		t.Error("expected error for missing ClientID, got nil")
	}
}

func TestNewProvider_MissingClientSecret(t *testing.T) {
	_, err := NewProvider(&config.DiscordOAuthConfig{ClientID: "client"})
	if err == nil {
		t.Error("expected error for missing ClientSecret, got nil")
	}
}

func TestNewProvider_DefaultScopes(t *testing.T) {
	p := newTestProvider(t)
	if got := strings.Join(p.config.Scopes, " "); got != "identify email" {
		t.Errorf("scopes = %q, want %q", got, "identify email")
	}
}

// ---------------------------------------------------------------------------
// GetAuthURL
// ---------------------------------------------------------------------------

func TestGetAuthURL(t *testing.T) {
	p := newTestProvider(t)
	url := p.GetAuthURL("state-123")
	if !strings.HasPrefix(url, "https://discord.com/oauth2/authorize") {
		t.Errorf("GetAuthURL() = %q, want discord authorize endpoint", url)
	}
	for _, want := range []string{"state=state-123", "client_id=test-client", "response_type=code"} {
		if !strings.Contains(url, want) {
			t.Errorf("GetAuthURL() = %q, missing %q", url, want)
		}
	}
}

// ---------------------------------------------------------------------------
// ExchangeCode / FetchUser
// ---------------------------------------------------------------------------

func newDiscordServer(t *testing.T, userStatus int, userBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		if r.Form.Get("client_secret") != "test-secret" {
			t.Errorf("client_secret not sent in params")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":604800}`))
	})
	mux.HandleFunc("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("Authorization = %q, want Bearer at-1", got)
		}
		w.WriteHeader(userStatus)
		_, _ = w.Write([]byte(userBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExchangeCodeAndFetchUser(t *testing.T) {
	srv := newDiscordServer(t, http.StatusOK,
		`{"id":"80351110224678912","username":"nelly","global_name":"Nelly","email":"nelly@example.com","avatar":"8342729096ea3675442027381ff50dfe"}`)
	p := newTestProvider(t).WithEndpoints(srv.URL+"/oauth2/token", srv.URL)
	ctx := context.Background()

	token, err := p.ExchangeCode(ctx, "good-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error: %v", err)
	}
	if token.AccessToken != "at-1" || token.RefreshToken != "rt-1" {
		t.Errorf("token = %+v, want at-1/rt-1", token)
	}

	user, err := p.FetchUser(ctx, token)
	if err != nil {
		t.Fatalf("FetchUser() error: %v", err)
	}
	if user.ID != "80351110224678912" || user.Username != "nelly" {
		t.Errorf("user = %+v", user)
	}
	if user.Email == nil || *user.Email != "nelly@example.com" {
		t.Errorf("user.Email = %v, want nelly@example.com", user.Email)
	}
	want := "https://cdn.discordapp.com/avatars/80351110224678912/8342729096ea3675442027381ff50dfe.png"
	if got := user.AvatarURL(); got != want {
		t.Errorf("AvatarURL() = %q, want %q", got, want)
	}
}

func TestExchangeCode_Rejected(t *testing.T) {
	srv := newDiscordServer(t, http.StatusOK, `{}`)
	p := newTestProvider(t).WithEndpoints(srv.URL+"/oauth2/token", srv.URL)

	if _, err := p.ExchangeCode(context.Background(), "bad-code"); err == nil {
		t.Error("expected error for rejected code, got nil")
	}
}

func TestFetchUser_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"401: Unauthorized"}`},
		{"invalid json", http.StatusOK, `not-json`},
		{"missing id", http.StatusOK, `{"username":"ghost"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newDiscordServer(t, tt.status, tt.body)
			p := newTestProvider(t).WithEndpoints(srv.URL+"/oauth2/token", srv.URL)
			token := &oauth2.Token{AccessToken: "at-1", TokenType: "Bearer"}
			if _, err := p.FetchUser(context.Background(), token); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestAvatarURL_Empty(t *testing.T) {
	tests := []struct {
		name   string
		avatar *string
	}{
		{"nil avatar", nil},
		{"empty avatar", strPtr("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{ID: "1", Avatar: tt.avatar}
			if got := u.AvatarURL(); got != "" {
				t.Errorf("AvatarURL() = %q, want empty", got)
			}
		})
	}
}
