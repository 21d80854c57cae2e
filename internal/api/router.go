// Package api wires together all HTTP routes for the hackathon directory backend.
//
// Route grouping:
//   - /api/public is unauthenticated and serves the public participant directory.
//   - /api/profiles, /api/matching, /api/keys, /api/teams and /api/discord need a
//     participant session token (Authorization: Bearer <jwt>).
//   - /api/v1 is the machine directory and needs an API key with the matching scope.
//     Every request made there is written to api_usage_logs.
//
// The whole engine is wrapped by rs/cors so preflight requests are answered before
// gin's middleware chain runs.
package api

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sundai/hackathon-api/internal/ai"
	"github.com/sundai/hackathon-api/internal/api/account"
	"github.com/sundai/hackathon-api/internal/api/channels"
	"github.com/sundai/hackathon-api/internal/api/directory"
	"github.com/sundai/hackathon-api/internal/api/matches"
	"github.com/sundai/hackathon-api/internal/api/public"
	"github.com/sundai/hackathon-api/internal/api/teams"
	"github.com/sundai/hackathon-api/internal/auth"
	"github.com/sundai/hackathon-api/internal/config"
	"github.com/sundai/hackathon-api/internal/crypto"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/discord"
	"github.com/sundai/hackathon-api/internal/jobs"
	"github.com/sundai/hackathon-api/internal/matching"
	"github.com/sundai/hackathon-api/internal/middleware"
	"github.com/sundai/hackathon-api/internal/safego"
)

// Dependencies carries the external clients built by cmd/server. A nil field disables the
// feature that needs it: no Redis means in-process rate limiting, no Completer means
// heuristic-only matching, no Gateway means the Discord endpoints answer 503, and no
// Cipher means Discord OAuth tokens are not kept.
type Dependencies struct {
	Redis     *redis.Client
	Completer ai.Completer
	Gateway   discord.Gateway
	Cipher    *crypto.TokenCipher
}

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Start once the server is listening and Shutdown on termination.
type BackgroundServices struct {
	expiryNotifier *jobs.APIKeyExpiryNotifier
	rateLimiters   []*middleware.RateLimiter
}

// Start launches the background jobs
func (bg *BackgroundServices) Start(ctx context.Context) {
	if bg.expiryNotifier != nil {
		safego.Go("api-key-expiry", func() { bg.expiryNotifier.Start(ctx) })
	}
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.expiryNotifier != nil {
		bg.expiryNotifier.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the HTTP handler
func NewRouter(cfg *config.Config, db *sql.DB, deps Dependencies) (http.Handler, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	// Initialize repositories
	profileRepo := repositories.NewProfileRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	usageRepo := repositories.NewUsageLogRepository(db)
	matchRepo := repositories.NewMatchRepository(db)
	channelRepo := repositories.NewDiscordChannelRepository(db)

	// Matching pipeline
	completer := deps.Completer
	if completer == nil {
		completer = ai.Instrument(ai.Disabled{})
	}
	finder := matching.NewFinder(
		matching.NewEstimator(completer, cfg.Matching.CallTimeout),
		matching.NewReasoner(completer, cfg.Matching.CallTimeout),
		cfg.Matching.Concurrency,
	)
	recommender := matching.NewTeamRecommender(completer, cfg.Matching.CallTimeout)

	// Discord provisioner; nil keeps the /api/discord routes answering 503
	var provisioner *discord.Provisioner
	if deps.Gateway != nil && cfg.Discord.GuildID != "" {
		provisioner = discord.NewProvisioner(deps.Gateway, cfg.Discord.GuildID, channelRepo, matchRepo)
		log.Printf("Discord provisioning enabled for guild %s", cfg.Discord.GuildID)
	}

	bg.expiryNotifier = jobs.NewAPIKeyExpiryNotifier(apiKeyRepo, provisioner, &cfg.Notifications)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(slog.Default()))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))
	if cfg.Security.RateLimiting.Enabled {
		limiter := middleware.NewLimiter(middleware.RateLimitConfigFrom(cfg.Security.RateLimiting), deps.Redis)
		if rl, ok := limiter.(*middleware.RateLimiter); ok {
			bg.rateLimiters = append(bg.rateLimiters, rl)
		}
		router.Use(middleware.RateLimitMiddleware(limiter))
	}

	// Liveness and welcome
	router.GET("/health", healthHandler())
	router.GET("/", rootHandler())

	sessionAuth := middleware.SessionAuth(profileRepo)

	// Auth
	authHandlers, err := account.NewAuthHandlers(cfg, db, deps.Cipher)
	if err != nil {
		log.Fatalf("Failed to initialize auth handlers: %v", err)
	}
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/discord/callback", authHandlers.CallbackHandler())
		authGroup.POST("/register", authHandlers.RegisterHandler())
		authGroup.GET("/me", sessionAuth, authHandlers.MeHandler())
		authGroup.POST("/refresh", authHandlers.RefreshHandler())
	}

	// Profiles
	profileHandlers := account.NewProfileHandlers(cfg, db)
	profilesGroup := router.Group("/api/profiles")
	profilesGroup.Use(sessionAuth)
	{
		profilesGroup.GET("", profileHandlers.ListProfilesHandler())
		profilesGroup.GET("/me", profileHandlers.GetMyProfileHandler())
		profilesGroup.PUT("/me", profileHandlers.UpdateMyProfileHandler())
		profilesGroup.GET("/search/:query", profileHandlers.SearchProfilesHandler())
		profilesGroup.GET("/skills/:skill", profileHandlers.ProfilesBySkillHandler())
		profilesGroup.GET("/stats/overview", profileHandlers.StatsOverviewHandler())
		profilesGroup.GET("/:id", profileHandlers.GetProfileHandler())
	}

	// Matching
	matchHandlers := matches.NewMatchHandlers(cfg, db, finder, recommender)
	matchingGroup := router.Group("/api/matching")
	matchingGroup.Use(sessionAuth)
	{
		matchingGroup.GET("/ai-matches", matchHandlers.AIMatchesHandler())
		matchingGroup.GET("/history", matchHandlers.HistoryHandler())
		matchingGroup.POST("/:matchId/respond", matchHandlers.RespondHandler())
		matchingGroup.POST("/team-recommendations", matchHandlers.TeamRecommendationsHandler())
	}

	// API key management, owned by the session's profile
	apiKeyHandlers := account.NewAPIKeyHandlers(cfg, db)
	keysGroup := router.Group("/api/keys")
	keysGroup.Use(sessionAuth)
	{
		keysGroup.POST("/generate", apiKeyHandlers.GenerateAPIKeyHandler())
		keysGroup.GET("/list", apiKeyHandlers.ListAPIKeysHandler())
		keysGroup.PUT("/:keyId", apiKeyHandlers.UpdateAPIKeyHandler())
		keysGroup.DELETE("/:keyId", apiKeyHandlers.RevokeAPIKeyHandler())
		keysGroup.GET("/:keyId/stats", apiKeyHandlers.APIKeyStatsHandler())
	}

	// Public directory
	publicGroup := router.Group("/api/public")
	{
		publicGroup.GET("/stats", public.StatsHandler(db))
		publicGroup.GET("/participants", public.ParticipantsHandler(db))
		publicGroup.GET("/search/:query", public.SearchHandler(db))
		publicGroup.GET("/skills", public.SkillsHandler(db))
		publicGroup.GET("/skills/:skill", public.BySkillHandler(db))
		publicGroup.GET("/industries", public.IndustriesHandler(db))
		publicGroup.GET("/industry/:industry", public.ByIndustryHandler(db))
		publicGroup.GET("/experience-levels", public.ExperienceLevelsHandler(db))
		publicGroup.GET("/docs", public.DocsHandler(cfg))
		publicGroup.GET("/health", public.HealthHandler(db, cfg))
	}

	// Teams
	teamHandlers := teams.NewTeamHandlers(cfg, db)
	teamsGroup := router.Group("/api/teams")
	teamsGroup.Use(sessionAuth)
	{
		teamsGroup.POST("", teamHandlers.CreateTeamHandler())
		teamsGroup.GET("", teamHandlers.ListTeamsHandler())
		teamsGroup.GET("/:id", teamHandlers.GetTeamHandler())
		teamsGroup.POST("/:id/join", teamHandlers.JoinTeamHandler())
		teamsGroup.DELETE("/:id/members/me", teamHandlers.LeaveTeamHandler())
	}

	// Machine directory
	v1 := router.Group("/api/v1")
	v1.Use(middleware.APIKeyAuth(apiKeyRepo))
	v1.Use(middleware.UsageLogMiddleware(usageRepo))
	{
		read := middleware.RequirePermission(auth.ScopeRead)
		v1.GET("/participants", read, directory.ParticipantsHandler(db))
		v1.GET("/participants/:id", read, directory.ParticipantHandler(db))
		v1.GET("/stats", read, directory.TotalsHandler(db))
		v1.GET("/teams", read, teamHandlers.ListTeamsHandler())
		v1.GET("/teams/:id", read, teamHandlers.GetTeamHandler())
		v1.POST("/teams", middleware.RequirePermission(auth.ScopeWrite), teamHandlers.CreateTeamHandler())
		v1.GET("/keys/usage", middleware.RequirePermission(auth.ScopeAdmin), directory.UsageHandler(db))
	}

	// Discord provisioning
	channelHandlers := channels.NewChannelHandlers(cfg, db, provisioner)
	discordGroup := router.Group("/api/discord")
	discordGroup.Use(sessionAuth, channelHandlers.RequireProvisioner())
	{
		discordGroup.POST("/create-team-channel", channelHandlers.CreateTeamChannelHandler())
		discordGroup.POST("/create-match-channel", channelHandlers.CreateMatchChannelHandler())
		discordGroup.POST("/send-notification", channelHandlers.SendNotificationHandler())
		discordGroup.GET("/server-info", channelHandlers.ServerInfoHandler())
		discordGroup.POST("/bulk-create-match-channels", channelHandlers.BulkCreateMatchChannelsHandler())
		discordGroup.GET("/team-channels/:teamId", channelHandlers.TeamChannelsHandler())
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	return corsHandler(cfg).Handler(router), bg
}

// corsHandler builds the CORS policy from security.cors
func corsHandler(cfg *config.Config) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.Security.CORS.AllowedOrigins,
		AllowedMethods:   cfg.Security.CORS.AllowedMethods,
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: cfg.Security.CORS.AllowCredentials,
		MaxAge:           3600,
	})
}

// @Summary      Health check
// @Description  Liveness probe. Does not touch the database; use /api/public/health for that.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: OK, timestamp, service, version"
// @Router       /health [get]
// healthHandler returns the liveness status of the service
func healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "Sundai Hackathon API",
			"version":   public.APIVersion,
		})
	}
}

// rootHandler returns the welcome message and the route index
func rootHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":     "Welcome to Sundai Hackathon API!",
			"description": "Public hackathon database with AI-powered team matching",
			"endpoints": gin.H{
				"auth":     "/api/auth",
				"profiles": "/api/profiles",
				"matching": "/api/matching",
				"keys":     "/api/keys",
				"public":   "/api/public",
				"teams":    "/api/teams",
				"discord":  "/api/discord",
				"v1":       "/api/v1",
			},
			"docs": "/api/public/docs",
		})
	}
}
