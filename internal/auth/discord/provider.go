// Package discord implements the Discord OAuth2 login used to establish participant sessions.
// It handles the authorization-code exchange and the lookup of the authenticated user.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sundai/hackathon-api/internal/config"
	"golang.org/x/oauth2"
)

const (
	// DefaultAPIBaseURL is the Discord REST API root
	DefaultAPIBaseURL = "https://discord.com/api"
	// CDNBaseURL serves user avatars
	CDNBaseURL = "https://cdn.discordapp.com"
)

// Endpoint is Discord's OAuth2 endpoint
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// User is the subset of the Discord users/@me payload the directory uses
type User struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	GlobalName *string `json:"global_name"`
	Email      *string `json:"email"`
	Avatar     *string `json:"avatar"`
}

// AvatarURL returns the CDN URL of the user's avatar, or the empty string when none is set
func (u *User) AvatarURL() string {
	if u.Avatar == nil || *u.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("%s/avatars/%s/%s.png", CDNBaseURL, u.ID, *u.Avatar)
}

// Provider wraps the Discord OAuth2 configuration
type Provider struct {
	config     *oauth2.Config
	apiBaseURL string
}

// NewProvider initializes a Discord OAuth2 provider from configuration
func NewProvider(cfg *config.DiscordOAuthConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("discord OAuth client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("discord OAuth client secret is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"identify", "email"}
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     Endpoint,
			Scopes:       scopes,
		},
		apiBaseURL: DefaultAPIBaseURL,
	}, nil
}

// WithEndpoints overrides the token endpoint and API base URL; used against test servers
func (p *Provider) WithEndpoints(tokenURL, apiBaseURL string) *Provider {
	p.config.Endpoint.TokenURL = tokenURL
	p.apiBaseURL = apiBaseURL
	return p
}

// GetAuthURL returns the OAuth2 authorization URL
func (p *Provider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode exchanges the authorization code for tokens
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	return token, nil
}

// FetchUser retrieves the authenticated user with the given token
func (p *Provider) FetchUser(ctx context.Context, token *oauth2.Token) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+"/users/@me", nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discord user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("discord users/@me returned %d: %s", resp.StatusCode, body)
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("failed to decode discord user: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("discord user response missing id")
	}
	return &u, nil
}
