// Package account implements the participant-facing HTTP handlers: Discord login and session
// tokens, profile management, and the self-service API key endpoints. Every handler except the
// login, registration and refresh endpoints runs behind middleware.SessionAuth and reads the
// caller from middleware.CurrentProfile.
package account

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundai/hackathon-api/internal/auth"
	discordauth "github.com/sundai/hackathon-api/internal/auth/discord"
	"github.com/sundai/hackathon-api/internal/config"
	"github.com/sundai/hackathon-api/internal/crypto"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/middleware"
	"github.com/sundai/hackathon-api/internal/validation"
)

// DefaultSessionExpiry is used when auth.session.expiry is unset
const DefaultSessionExpiry = 7 * 24 * time.Hour

// AuthHandlers handles login, registration and session token endpoints
type AuthHandlers struct {
	cfg         *config.Config
	db          *sql.DB
	profileRepo *repositories.ProfileRepository
	oauth       *discordauth.Provider
	cipher      *crypto.TokenCipher
}

// NewAuthHandlers creates a new AuthHandlers instance. The Discord provider is only built when
// OAuth credentials are configured; cipher may be nil, in which case Discord tokens are not kept.
func NewAuthHandlers(cfg *config.Config, db *sql.DB, cipher *crypto.TokenCipher) (*AuthHandlers, error) {
	h := &AuthHandlers{
		cfg:         cfg,
		db:          db,
		profileRepo: repositories.NewProfileRepository(db),
		cipher:      cipher,
	}

	if cfg.Auth.DiscordOAuth.Enabled() {
		p, err := discordauth.NewProvider(&cfg.Auth.DiscordOAuth)
		if err != nil {
			return nil, err
		}
		h.oauth = p
	}

	return h, nil
}

// SetDiscordProvider replaces the Discord OAuth provider
func (h *AuthHandlers) SetDiscordProvider(p *discordauth.Provider) {
	h.oauth = p
}

func (h *AuthHandlers) sessionExpiry() time.Duration {
	if h.cfg.Auth.Session.Expiry > 0 {
		return h.cfg.Auth.Session.Expiry
	}
	return DefaultSessionExpiry
}

// CallbackRequest carries the authorization code returned by Discord
type CallbackRequest struct {
	Code string `json:"code"`
}

// CallbackHandler completes the Discord OAuth flow
// POST /api/auth/discord/callback
func (h *AuthHandlers) CallbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CallbackRequest
		_ = c.ShouldBindJSON(&req)
		if strings.TrimSpace(req.Code) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Authorization code required",
			})
			return
		}

		if h.oauth == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Discord login is not configured",
			})
			return
		}

		ctx := c.Request.Context()
		token, err := h.oauth.ExchangeCode(ctx, req.Code)
		if err != nil {
			slog.Warn("discord callback: code exchange failed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Failed to exchange code for token",
			})
			return
		}

		user, err := h.oauth.FetchUser(ctx, token)
		if err != nil {
			slog.Warn("discord callback: user lookup failed", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Failed to get user info",
			})
			return
		}

		profile, err := h.profileRepo.GetByDiscordID(ctx, user.ID)
		if err != nil {
			slog.Error("discord callback: failed to load profile", "discord_id", user.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication failed",
			})
			return
		}

		if profile == nil {
			profile = newProfileFromDiscord(user)
			if err := h.profileRepo.Create(ctx, profile); err != nil {
				slog.Error("discord callback: failed to create profile", "discord_id", user.ID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Authentication failed",
				})
				return
			}
			slog.Info("profile created from discord login", "profile_id", profile.ID, "discord_id", user.ID)
		}

		h.storeDiscordTokens(c, profile.ID, token.AccessToken, token.RefreshToken)

		jwtToken, err := auth.GenerateJWT(profile.DiscordID, h.sessionExpiry())
		if err != nil {
			slog.Error("discord callback: failed to issue session token", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": jwtToken,
			"user": gin.H{
				"id":          profile.ID,
				"discord_id":  profile.DiscordID,
				"username":    profile.Username,
				"email":       profile.Email,
				"avatar_url":  profile.AvatarURL,
				"full_name":   profile.FullName,
				"is_new_user": profile.Bio == nil || *profile.Bio == "",
			},
		})
	}
}

func newProfileFromDiscord(u *discordauth.User) *models.Profile {
	p := &models.Profile{
		DiscordID: u.ID,
		Username:  u.Username,
		Email:     u.Email,
	}
	fullName := u.Username
	if u.GlobalName != nil && *u.GlobalName != "" {
		fullName = *u.GlobalName
	}
	p.FullName = &fullName
	if avatar := u.AvatarURL(); avatar != "" {
		p.AvatarURL = &avatar
	}
	return p
}

// storeDiscordTokens encrypts and saves the OAuth tokens. Failures are logged; login still succeeds.
func (h *AuthHandlers) storeDiscordTokens(c *gin.Context, profileID, access, refresh string) {
	if h.cipher == nil || access == "" {
		return
	}
	accessEnc, err := h.cipher.Seal(access)
	if err != nil {
		slog.Error("discord callback: failed to encrypt access token", "profile_id", profileID, "error", err)
		return
	}
	refreshEnc, err := h.cipher.Seal(refresh)
	if err != nil {
		slog.Error("discord callback: failed to encrypt refresh token", "profile_id", profileID, "error", err)
		return
	}
	if err := h.profileRepo.SetDiscordTokens(c.Request.Context(), profileID, accessEnc, refreshEnc); err != nil {
		slog.Error("discord callback: failed to store tokens", "profile_id", profileID, "error", err)
	}
}

// RegisterRequest is the full registration payload. Registration creates the profile or
// overwrites the supplied fields of an existing one.
type RegisterRequest struct {
	DiscordID                string          `json:"discord_id" binding:"required"`
	Username                 string          `json:"username" binding:"required"`
	Email                    *string         `json:"email" binding:"omitempty,email"`
	FullName                 *string         `json:"full_name"`
	AvatarURL                *string         `json:"avatar_url" binding:"omitempty,url"`
	Bio                      *string         `json:"bio" binding:"omitempty,max=500"`
	Skills                   []string        `json:"skills"`
	Interests                []string        `json:"interests"`
	ExperienceLevel          *string         `json:"experience_level" binding:"omitempty,oneof=beginner intermediate advanced expert"`
	GithubURL                *string         `json:"github_url" binding:"omitempty,url"`
	LinkedinURL              *string         `json:"linkedin_url" binding:"omitempty,url"`
	PortfolioURL             *string         `json:"portfolio_url" binding:"omitempty,url"`
	Timezone                 *string         `json:"timezone"`
	Availability             json.RawMessage `json:"availability"`
	ProjectPreferences       json.RawMessage `json:"project_preferences"`
	TeamSizePreference       *string         `json:"team_size_preference" binding:"omitempty,oneof=2-3 4-5 6+"`
	CommunicationPreferences json.RawMessage `json:"communication_preferences"`
}

func (r *RegisterRequest) validate() error {
	if err := validation.ValidateList("skills", r.Skills); err != nil {
		return err
	}
	if err := validation.ValidateList("interests", r.Interests); err != nil {
		return err
	}
	return validatePreferenceBlobs(r.Availability, r.ProjectPreferences, r.CommunicationPreferences)
}

func validatePreferenceBlobs(availability, projectPrefs, commPrefs json.RawMessage) error {
	if err := validation.ValidateJSONObject("availability", availability); err != nil {
		return err
	}
	if err := validation.ValidateJSONObject("project_preferences", projectPrefs); err != nil {
		return err
	}
	return validation.ValidateJSONObject("communication_preferences", commPrefs)
}

func (r *RegisterRequest) profile() *models.Profile {
	p := &models.Profile{
		DiscordID:                strings.TrimSpace(r.DiscordID),
		Username:                 strings.TrimSpace(r.Username),
		Email:                    r.Email,
		FullName:                 r.FullName,
		AvatarURL:                r.AvatarURL,
		Bio:                      r.Bio,
		Skills:                   validation.NormalizeList(r.Skills),
		Interests:                validation.NormalizeList(r.Interests),
		GithubURL:                r.GithubURL,
		LinkedinURL:              r.LinkedinURL,
		PortfolioURL:             r.PortfolioURL,
		Timezone:                 r.Timezone,
		Availability:             nullToEmpty(r.Availability),
		ProjectPreferences:       nullToEmpty(r.ProjectPreferences),
		CommunicationPreferences: nullToEmpty(r.CommunicationPreferences),
	}
	if r.ExperienceLevel != nil {
		lvl := models.ExperienceLevel(*r.ExperienceLevel)
		p.ExperienceLevel = &lvl
	}
	if r.TeamSizePreference != nil {
		ts := models.TeamSizePreference(*r.TeamSizePreference)
		p.TeamSizePreference = &ts
	}
	return p
}

// RegisterHandler creates or updates the profile for a Discord identity and issues a session token
// POST /api/auth/register
func (h *AuthHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}
		if err := req.validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		profile := req.profile()
		created, err := h.profileRepo.UpsertByDiscordID(c.Request.Context(), profile)
		if err != nil {
			slog.Error("register: upsert failed", "discord_id", profile.DiscordID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Registration failed",
			})
			return
		}

		token, err := auth.GenerateJWT(profile.DiscordID, h.sessionExpiry())
		if err != nil {
			slog.Error("register: failed to issue session token", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Registration failed",
			})
			return
		}

		message := "Profile updated successfully"
		if created {
			message = "Profile created successfully"
		}
		c.JSON(http.StatusOK, gin.H{
			"token":   token,
			"user":    profile,
			"message": message,
		})
	}
}

// MeHandler returns the authenticated participant
// GET /api/auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := middleware.CurrentProfile(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": profile})
	}
}

// RefreshRequest names the identity to re-issue a token for
type RefreshRequest struct {
	DiscordID string `json:"discord_id"`
}

// RefreshHandler issues a fresh session token for an existing profile
// POST /api/auth/refresh
func (h *AuthHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest
		_ = c.ShouldBindJSON(&req)
		discordID := strings.TrimSpace(req.DiscordID)
		if discordID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Discord ID required",
			})
			return
		}

		profile, err := h.profileRepo.GetByDiscordID(c.Request.Context(), discordID)
		if err != nil {
			slog.Error("refresh: failed to load profile", "discord_id", discordID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Token refresh failed",
			})
			return
		}
		if profile == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid user",
			})
			return
		}

		token, err := auth.GenerateJWT(profile.DiscordID, h.sessionExpiry())
		if err != nil {
			slog.Error("refresh: failed to issue session token", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Token refresh failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}
