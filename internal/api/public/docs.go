package public

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sundai/hackathon-api/internal/config"
)

// APIVersion is reported by the docs and health endpoints
const APIVersion = "2.0.0"

// healthPingTimeout bounds the database ping in HealthHandler
const healthPingTimeout = 2 * time.Second

// baseURL prefers the configured public URL and falls back to the request host
func baseURL(c *gin.Context, cfg *config.Config) string {
	if u := strings.TrimRight(cfg.Server.GetPublicURL(), "/"); u != "" {
		return u + "/api"
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/api", scheme, c.Request.Host)
}

// DocsHandler describes the API surface
// GET /api/public/docs
func DocsHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		rateLimit := gin.H{"enabled": cfg.Security.RateLimiting.Enabled}
		if cfg.Security.RateLimiting.Enabled {
			rateLimit["window"] = cfg.Security.RateLimiting.Window.String()
			rateLimit["limit"] = fmt.Sprintf("%d requests per IP", cfg.Security.RateLimiting.RequestsPerWindow)
		}

		c.JSON(http.StatusOK, gin.H{
			"api_name":    "Sundai Hackathon API",
			"version":     APIVersion,
			"description": "Public hackathon directory with API key authentication and AI-powered team matching",
			"base_url":    baseURL(c, cfg),
			"authentication": gin.H{
				"type":   "API Key",
				"header": "X-API-Key: your_api_key_here",
				"note":   "Generate API keys at /api/keys/generate",
			},
			"endpoints": gin.H{
				"public": gin.H{
					"GET /public/stats":              "Get hackathon statistics",
					"GET /public/participants":       "Get public participant directory",
					"GET /public/search/:query":      "Search participants",
					"GET /public/skills/:skill":      "Get participants by skill",
					"GET /public/industry/:industry": "Get participants by industry",
					"GET /public/skills":             "List skills with counts",
					"GET /public/industries":         "List industries with counts",
					"GET /public/experience-levels":  "List experience levels with counts",
					"GET /public/docs":               "API documentation",
					"GET /public/health":             "API health",
				},
				"api_keys": gin.H{
					"POST /keys/generate":    "Generate new API key",
					"GET /keys/list":         "List your API keys",
					"PUT /keys/:keyId":       "Update API key",
					"DELETE /keys/:keyId":    "Revoke API key",
					"GET /keys/:keyId/stats": "Get API key usage stats",
				},
				"auth": gin.H{
					"POST /auth/discord/callback": "Sign in with Discord",
					"POST /auth/register":         "Register/update profile",
					"GET /auth/me":                "Get current user",
					"POST /auth/refresh":          "Refresh token",
				},
				"profiles": gin.H{
					"GET /profiles":                "List profiles",
					"GET /profiles/me":             "Get own profile",
					"PUT /profiles/me":             "Update own profile",
					"GET /profiles/:id":            "Get specific profile",
					"GET /profiles/search/:query":  "Search profiles",
					"GET /profiles/skills/:skill":  "Get profiles by skill",
					"GET /profiles/stats/overview": "Get profile statistics",
				},
				"matching": gin.H{
					"GET /matching/ai-matches":            "Get AI-powered matches",
					"GET /matching/history":               "Get match history",
					"POST /matching/:matchId/respond":     "Accept/reject match",
					"POST /matching/team-recommendations": "Get team recommendations",
				},
				"teams": gin.H{
					"POST /teams":                  "Create a team",
					"GET /teams":                   "List teams",
					"GET /teams/:id":               "Get a team with its members",
					"POST /teams/:id/join":         "Join a team",
					"DELETE /teams/:id/members/me": "Leave a team",
				},
				"v1": gin.H{
					"GET /v1/participants":     "Participant directory (read)",
					"GET /v1/participants/:id": "Participant detail (read)",
					"GET /v1/teams":            "List teams (read)",
					"POST /v1/teams":           "Create a team (write)",
					"GET /v1/keys/usage":       "Recent API key usage (admin)",
				},
			},
			"rate_limiting": rateLimit,
		})
	}
}

// HealthHandler reports API and database health; a failed ping answers 503
// GET /api/public/health
func HealthHandler(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()

		now := time.Now().UTC().Format(time.RFC3339)
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"timestamp": now,
				"services": gin.H{
					"database": "error",
					"api":      "healthy",
				},
				"error": "database unreachable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": now,
			"services": gin.H{
				"database": "healthy",
				"api":      "healthy",
			},
			"version": APIVersion,
			"features": gin.H{
				"api_keys":      true,
				"ai_matching":   cfg.OpenAI.APIKey != "",
				"discord_login": cfg.Auth.DiscordOAuth.Enabled(),
				"discord_bot":   cfg.Discord.BotToken != "" && cfg.Discord.GuildID != "",
				"public_access": true,
			},
		})
	}
}
