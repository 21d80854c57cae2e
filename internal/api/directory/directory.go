// Package directory implements the API-key machine directory under /api/v1: participant
// listing and detail, directory totals and the admin usage log. Team routes under /api/v1
// reuse the teams package handlers.
package directory

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/validation"
)

// Usage log page bounds
const (
	DefaultUsageLimit = 50
	MaxUsageLimit     = 500
)

// ParticipantsQuery holds the /api/v1/participants filters
type ParticipantsQuery struct {
	ExperienceLevel    string `form:"experience_level" binding:"omitempty,oneof=beginner intermediate advanced expert"`
	TeamSizePreference string `form:"team_size_preference" binding:"omitempty,oneof=2-3 4-5 6+"`
	Industry           string `form:"industry" binding:"max=200"`
	Limit              int    `form:"limit" binding:"min=0"`
	Offset             int    `form:"offset" binding:"min=0"`
}

func summaries(profiles []*models.Profile) []models.ProfileSummary {
	out := make([]models.ProfileSummary, len(profiles))
	for i, p := range profiles {
		out[i] = p.Summary()
	}
	return out
}

// @Summary      List participants
// @Description  Machine-readable participant directory. When usernames is given the other filters are ignored.
// @Tags         V1
// @Security     ApiKeyAuth
// @Produce      json
// @Param        usernames             query  string  false  "Comma-separated usernames"
// @Param        skills                query  string  false  "Comma-separated skills; any match"
// @Param        experience_level      query  string  false  "beginner, intermediate, advanced or expert"
// @Param        team_size_preference  query  string  false  "2-3, 4-5 or 6+"
// @Param        industry              query  string  false  "Imported industry"
// @Param        limit                 query  int     false  "Page size (default 50, max 100)"
// @Param        offset                query  int     false  "Offset for pagination (default 0)"
// @Success      200  {object}  map[string]interface{}  "participants: [], pagination: {limit, offset, total}"
// @Failure      400  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Router       /api/v1/participants [get]
// ParticipantsHandler lists participant summaries
func ParticipantsHandler(db *sql.DB) gin.HandlerFunc {
	profileRepo := repositories.NewProfileRepository(db)

	return func(c *gin.Context) {
		var q ParticipantsQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}
		ctx := c.Request.Context()

		if names := validation.SplitList(c.QueryArray("usernames")); len(names) > 0 {
			if err := validation.ValidateList("usernames", names); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			profiles, err := profileRepo.ByUsernames(ctx, names)
			if err != nil {
				slog.Error("v1 participants by username failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get participants"})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"participants": summaries(profiles),
				"pagination": gin.H{
					"limit":  len(names),
					"offset": 0,
					"total":  len(profiles),
				},
			})
			return
		}

		filter := repositories.ProfileFilter{
			Skills:             validation.SplitList(c.QueryArray("skills")),
			ExperienceLevel:    q.ExperienceLevel,
			TeamSizePreference: q.TeamSizePreference,
			Industry:           strings.TrimSpace(q.Industry),
			Limit:              q.Limit,
			Offset:             q.Offset,
		}
		filter.Normalize()

		profiles, total, err := profileRepo.List(ctx, filter)
		if err != nil {
			slog.Error("v1 participants failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get participants"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"participants": summaries(profiles),
			"pagination": gin.H{
				"limit":  filter.Limit,
				"offset": filter.Offset,
				"total":  total,
			},
		})
	}
}

// ParticipantHandler returns one participant profile
// GET /api/v1/participants/:id
func ParticipantHandler(db *sql.DB) gin.HandlerFunc {
	profileRepo := repositories.NewProfileRepository(db)

	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
			return
		}

		profile, err := profileRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			slog.Error("v1 participant lookup failed", "profile_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get participant"})
			return
		}
		if profile == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"participant": profile})
	}
}

// TotalsHandler reports how many participants and stored matches exist
// GET /api/v1/stats
func TotalsHandler(db *sql.DB) gin.HandlerFunc {
	statsRepo := repositories.NewStatsRepository(sqlx.NewDb(db, "postgres"))
	matchRepo := repositories.NewMatchRepository(db)

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		participants, err := statsRepo.TotalProfiles(ctx)
		if err != nil {
			slog.Error("v1 totals: count profiles failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get statistics"})
			return
		}
		matches, err := matchRepo.CountAll(ctx)
		if err != nil {
			slog.Error("v1 totals: count matches failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get statistics"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"total_participants": participants,
			"total_matches":      matches,
		})
	}
}

// @Summary      API key usage log
// @Description  Recent requests made with API keys, newest first. Requires the admin scope.
// @Tags         V1
// @Security     ApiKeyAuth
// @Produce      json
// @Param        api_key_id  query  string  false  "Only this key"
// @Param        method      query  string  false  "HTTP method"
// @Param        limit       query  int     false  "Page size (default 50, max 500)"
// @Param        offset      query  int     false  "Offset for pagination (default 0)"
// @Success      200  {object}  map[string]interface{}  "logs: [], pagination: {limit, offset, total}"
// @Failure      403  {object}  map[string]interface{}
// @Router       /api/v1/keys/usage [get]
// UsageHandler lists api_usage_logs rows
func UsageHandler(db *sql.DB) gin.HandlerFunc {
	usageRepo := repositories.NewUsageLogRepository(db)

	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultUsageLimit)))
		if err != nil || limit < 1 {
			limit = DefaultUsageLimit
		}
		if limit > MaxUsageLimit {
			limit = MaxUsageLimit
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			offset = 0
		}

		var filters repositories.UsageLogFilters
		if keyID := c.Query("api_key_id"); keyID != "" {
			if _, err := uuid.Parse(keyID); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": `"api_key_id" is invalid`})
				return
			}
			filters.APIKeyID = &keyID
		}
		if method := strings.ToUpper(c.Query("method")); method != "" {
			filters.Method = &method
		}

		logs, total, err := usageRepo.ListUsageLogs(c.Request.Context(), filters, limit, offset)
		if err != nil {
			slog.Error("v1 usage log failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get usage logs"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"logs": logs,
			"pagination": gin.H{
				"limit":  limit,
				"offset": offset,
				"total":  total,
			},
		})
	}
}
