// Package public serves the unauthenticated participant directory: aggregate statistics,
// filtered listings and lookups, API documentation and a health probe. Responses use the
// public participant shape, which omits ids and contact details.
package public

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/validation"
)

// DefaultLookupLimit caps search, skill and industry lookups when no limit is given
const DefaultLookupLimit = 20

func publicParticipants(profiles []*models.Profile) []models.PublicParticipant {
	out := make([]models.PublicParticipant, len(profiles))
	for i, p := range profiles {
		out[i] = p.Public()
	}
	return out
}

// lookupLimit reads ?limit for the single-term lookups; bad values fall back to the default
func lookupLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLookupLimit)))
	if err != nil || limit < 1 || limit > repositories.MaxListLimit {
		return DefaultLookupLimit
	}
	return limit
}

// @Summary      Public participant directory
// @Tags         Public
// @Produce      json
// @Param        skills            query  string  false  "Comma-separated skills; any match"
// @Param        experience_level  query  string  false  "beginner, intermediate, advanced or expert"
// @Param        industry          query  string  false  "Imported industry"
// @Param        limit             query  int     false  "Page size (default 50, max 100)"
// @Param        offset            query  int     false  "Offset for pagination (default 0)"
// @Success      200  {object}  map[string]interface{}  "participants: [], pagination: {limit, offset, total}"
// @Router       /api/public/participants [get]
// ParticipantsHandler lists participants in the public shape
func ParticipantsHandler(db *sql.DB) gin.HandlerFunc {
	profileRepo := repositories.NewProfileRepository(db)

	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil {
			limit = 0
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil {
			offset = 0
		}

		level := c.Query("experience_level")
		if level != "" && !models.ExperienceLevel(level).IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": `"experience_level" must be one of [beginner, intermediate, advanced, expert]`,
			})
			return
		}

		filter := repositories.ProfileFilter{
			Skills:          validation.SplitList(c.QueryArray("skills")),
			ExperienceLevel: level,
			Industry:        strings.TrimSpace(c.Query("industry")),
			Limit:           limit,
			Offset:          offset,
		}
		filter.Normalize()

		profiles, total, err := profileRepo.List(c.Request.Context(), filter)
		if err != nil {
			slog.Error("public participants failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get participants"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"participants": publicParticipants(profiles),
			"pagination": gin.H{
				"limit":  filter.Limit,
				"offset": filter.Offset,
				"total":  total,
			},
		})
	}
}

// SearchHandler does a substring search over names, bios and headlines
// GET /api/public/search/:query
func SearchHandler(db *sql.DB) gin.HandlerFunc {
	profileRepo := repositories.NewProfileRepository(db)

	return func(c *gin.Context) {
		term := strings.TrimSpace(c.Param("query"))
		if term == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
			return
		}

		profiles, err := profileRepo.Search(c.Request.Context(), term, lookupLimit(c))
		if err != nil {
			slog.Error("public search failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"participants": publicParticipants(profiles)})
	}
}

// BySkillHandler lists participants with an exact skill
// GET /api/public/skills/:skill
func BySkillHandler(db *sql.DB) gin.HandlerFunc {
	profileRepo := repositories.NewProfileRepository(db)

	return func(c *gin.Context) {
		profiles, err := profileRepo.BySkill(c.Request.Context(), c.Param("skill"), lookupLimit(c))
		if err != nil {
			slog.Error("public skill lookup failed", "skill", c.Param("skill"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get participants by skill"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"participants": publicParticipants(profiles)})
	}
}

// ByIndustryHandler lists participants in an imported industry
// GET /api/public/industry/:industry
func ByIndustryHandler(db *sql.DB) gin.HandlerFunc {
	profileRepo := repositories.NewProfileRepository(db)

	return func(c *gin.Context) {
		profiles, err := profileRepo.ByIndustry(c.Request.Context(), c.Param("industry"), lookupLimit(c))
		if err != nil {
			slog.Error("public industry lookup failed", "industry", c.Param("industry"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get participants by industry"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"participants": publicParticipants(profiles)})
	}
}
