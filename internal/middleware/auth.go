// Package middleware provides Gin HTTP middleware for authentication, permission checks,
// rate limiting, security headers, request logging and API key usage logging.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → Permission → Usage → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attempts before any DB work.
// Auth populates the caller identity; RequirePermission reads the key scopes from that
// context. Usage logging wraps the handler so it can record the final status.
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundai/hackathon-api/internal/auth"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/telemetry"
)

// Context keys populated by the auth middleware
const (
	ProfileKey    = "profile"
	ProfileIDKey  = "profile_id"
	DiscordIDKey  = "discord_id"
	AuthMethodKey = "auth_method"
	APIKeyKey     = "api_key"
	APIKeyIDKey   = "api_key_id"
	ScopesKey     = "scopes"
)

// SessionAuth requires a valid session token and loads the profile it was issued for
func SessionAuth(profileRepo *repositories.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractAPIKeyFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		profile, err := profileRepo.GetByDiscordID(c.Request.Context(), claims.DiscordID)
		if err != nil {
			slog.Error("session auth: failed to load profile", "discord_id", claims.DiscordID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication error",
			})
			return
		}
		if profile == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token - user not found",
			})
			return
		}

		c.Set(ProfileKey, profile)
		c.Set(ProfileIDKey, profile.ID)
		c.Set(DiscordIDKey, profile.DiscordID)
		c.Set(AuthMethodKey, "session")

		c.Next()
	}
}

// APIKeyAuth requires an active, unexpired API key in X-API-Key or an Authorization bearer
func APIKeyAuth(apiKeyRepo *repositories.APIKeyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := auth.ExtractAPIKey(c.GetHeader(auth.APIKeyHeader), c.GetHeader("Authorization"))
		if presented == "" {
			telemetry.APIKeyAuthTotal.WithLabelValues("missing").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "API key required",
			})
			return
		}

		ctx := c.Request.Context()
		key, err := apiKeyRepo.GetAPIKeyByHash(ctx, auth.HashAPIKey(presented))
		if err != nil {
			slog.Error("api key auth: lookup failed", "error", err)
			telemetry.APIKeyAuthTotal.WithLabelValues("error").Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication error",
			})
			return
		}

		if key == nil || !key.IsActive || key.IsRevoked() {
			telemetry.APIKeyAuthTotal.WithLabelValues("invalid").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			return
		}

		if key.IsExpired(time.Now()) {
			telemetry.APIKeyAuthTotal.WithLabelValues("expired").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "API key expired",
			})
			return
		}

		if err := apiKeyRepo.RecordUsage(ctx, key.ID); err != nil {
			slog.Error("api key auth: failed to record usage", "api_key_id", key.ID, "error", err)
			telemetry.APIKeyAuthTotal.WithLabelValues("error").Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Authentication error",
			})
			return
		}

		telemetry.APIKeyAuthTotal.WithLabelValues("ok").Inc()
		c.Set(APIKeyKey, key)
		c.Set(APIKeyIDKey, key.ID)
		c.Set(ScopesKey, key.Permissions)
		c.Set(AuthMethodKey, "api_key")

		c.Next()
	}
}

// CurrentProfile returns the profile loaded by SessionAuth
func CurrentProfile(c *gin.Context) (*models.Profile, bool) {
	v, exists := c.Get(ProfileKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(*models.Profile)
	return p, ok && p != nil
}

// CurrentAPIKey returns the key loaded by APIKeyAuth
func CurrentAPIKey(c *gin.Context) (*models.APIKey, bool) {
	v, exists := c.Get(APIKeyKey)
	if !exists {
		return nil, false
	}
	k, ok := v.(*models.APIKey)
	return k, ok && k != nil
}
