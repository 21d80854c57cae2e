package public

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sundai/hackathon-api/internal/db/repositories"
)

func statsRepo(db *sql.DB) *repositories.StatsRepository {
	return repositories.NewStatsRepository(sqlx.NewDb(db, "postgres"))
}

// @Summary      Directory statistics
// @Description  Totals plus experience, skill, team size and industry distributions and the latest joiners.
// @Tags         Public
// @Produce      json
// @Success      200  {object}  repositories.DirectoryStats
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/public/stats [get]
// StatsHandler returns the public statistics payload
func StatsHandler(db *sql.DB) gin.HandlerFunc {
	repo := statsRepo(db)

	return func(c *gin.Context) {
		stats, err := repo.Stats(c.Request.Context())
		if err != nil {
			slog.Error("public stats failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get statistics"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// SkillsHandler lists every skill with its frequency
// GET /api/public/skills
func SkillsHandler(db *sql.DB) gin.HandlerFunc {
	repo := statsRepo(db)

	return func(c *gin.Context) {
		skills, err := repo.SkillCounts(c.Request.Context(), 0)
		if err != nil {
			slog.Error("public skills failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get skills"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"skills": skills})
	}
}

// IndustriesHandler lists every imported industry with its frequency
// GET /api/public/industries
func IndustriesHandler(db *sql.DB) gin.HandlerFunc {
	repo := statsRepo(db)

	return func(c *gin.Context) {
		industries, err := repo.IndustryCounts(c.Request.Context())
		if err != nil {
			slog.Error("public industries failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get industries"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"industries": industries})
	}
}

// ExperienceLevelsHandler lists experience levels with their frequency
// GET /api/public/experience-levels
func ExperienceLevelsHandler(db *sql.DB) gin.HandlerFunc {
	repo := statsRepo(db)

	return func(c *gin.Context) {
		levels, err := repo.ExperienceLevelCounts(c.Request.Context())
		if err != nil {
			slog.Error("public experience levels failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get experience levels"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"experience_levels": levels})
	}
}
