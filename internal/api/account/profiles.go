// profiles.go implements the authenticated directory endpoints under /api/profiles.
package account

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sundai/hackathon-api/internal/config"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/middleware"
	"github.com/sundai/hackathon-api/internal/validation"
)

// ProfileHandlers handles participant directory endpoints
type ProfileHandlers struct {
	cfg         *config.Config
	db          *sql.DB
	profileRepo *repositories.ProfileRepository
	statsRepo   *repositories.StatsRepository
}

// NewProfileHandlers creates a new ProfileHandlers instance
func NewProfileHandlers(cfg *config.Config, db *sql.DB) *ProfileHandlers {
	return &ProfileHandlers{
		cfg:         cfg,
		db:          db,
		profileRepo: repositories.NewProfileRepository(db),
		statsRepo:   repositories.NewStatsRepository(sqlx.NewDb(db, "postgres")),
	}
}

// ListProfilesQuery holds the directory filters. skills is read separately so that both
// skills=go,sql and repeated skills= parameters work.
type ListProfilesQuery struct {
	ExperienceLevel    string `form:"experience_level" binding:"omitempty,oneof=beginner intermediate advanced expert"`
	TeamSizePreference string `form:"team_size_preference" binding:"omitempty,oneof=2-3 4-5 6+"`
	Limit              int    `form:"limit" binding:"omitempty,min=0"`
	Offset             int    `form:"offset" binding:"omitempty,min=0"`
}

// ListProfilesHandler returns one page of the directory
// GET /api/profiles
func (h *ProfileHandlers) ListProfilesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q ListProfilesQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}

		filter := repositories.ProfileFilter{
			Skills:             validation.SplitList(c.QueryArray("skills")),
			ExperienceLevel:    q.ExperienceLevel,
			TeamSizePreference: q.TeamSizePreference,
			Limit:              q.Limit,
			Offset:             q.Offset,
		}
		filter.Normalize()

		profiles, total, err := h.profileRepo.List(c.Request.Context(), filter)
		if err != nil {
			slog.Error("list profiles failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to get profiles",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"profiles": profiles,
			"pagination": gin.H{
				"limit":  filter.Limit,
				"offset": filter.Offset,
				"total":  total,
			},
		})
	}
}

// GetProfileHandler returns a single profile by id
// GET /api/profiles/:id
func (h *ProfileHandlers) GetProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}

		profile, err := h.profileRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			slog.Error("get profile failed", "profile_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to get profile",
			})
			return
		}
		if profile == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

// GetMyProfileHandler returns the caller's own profile
// GET /api/profiles/me
func (h *ProfileHandlers) GetMyProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := middleware.CurrentProfile(c)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

// UpdateProfileRequest holds the participant-editable fields; absent fields are left unchanged
type UpdateProfileRequest struct {
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

func (r *UpdateProfileRequest) update() (repositories.ProfileUpdate, error) {
	if err := validation.ValidateList("skills", r.Skills); err != nil {
		return repositories.ProfileUpdate{}, err
	}
	if err := validation.ValidateList("interests", r.Interests); err != nil {
		return repositories.ProfileUpdate{}, err
	}
	if err := validatePreferenceBlobs(r.Availability, r.ProjectPreferences, r.CommunicationPreferences); err != nil {
		return repositories.ProfileUpdate{}, err
	}
	return repositories.ProfileUpdate{
		Bio:                      r.Bio,
		Skills:                   validation.NormalizeList(r.Skills),
		Interests:                validation.NormalizeList(r.Interests),
		ExperienceLevel:          r.ExperienceLevel,
		GithubURL:                r.GithubURL,
		LinkedinURL:              r.LinkedinURL,
		PortfolioURL:             r.PortfolioURL,
		Timezone:                 r.Timezone,
		Availability:             nullToEmpty(r.Availability),
		ProjectPreferences:       nullToEmpty(r.ProjectPreferences),
		TeamSizePreference:       r.TeamSizePreference,
		CommunicationPreferences: nullToEmpty(r.CommunicationPreferences),
	}, nil
}

// nullToEmpty treats an explicit JSON null like an absent field
func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if string(raw) == "null" {
		return nil
	}
	return raw
}

// UpdateMyProfileHandler applies a partial update to the caller's profile
// PUT /api/profiles/me
func (h *ProfileHandlers) UpdateMyProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		current, ok := middleware.CurrentProfile(c)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}

		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}
		update, err := req.update()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		profile, err := h.profileRepo.Update(c.Request.Context(), current.DiscordID, update)
		if err != nil {
			slog.Error("update profile failed", "profile_id", current.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update profile",
			})
			return
		}
		if profile == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"profile": profile,
			"message": "Profile updated successfully",
		})
	}
}

// SearchProfilesHandler runs a free-text search over the directory
// GET /api/profiles/search/:query
func (h *ProfileHandlers) SearchProfilesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		term := strings.TrimSpace(c.Param("query"))
		if term == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
			return
		}

		profiles, err := h.profileRepo.Search(c.Request.Context(), term, repositories.DefaultSearchLimit)
		if err != nil {
			slog.Error("profile search failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profiles": profiles})
	}
}

// ProfilesBySkillHandler lists profiles that have the given skill
// GET /api/profiles/skills/:skill
func (h *ProfileHandlers) ProfilesBySkillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		skill := strings.TrimSpace(c.Param("skill"))
		profiles, err := h.profileRepo.BySkill(c.Request.Context(), skill, repositories.DefaultSearchLimit)
		if err != nil {
			slog.Error("profiles by skill failed", "skill", skill, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to get profiles by skill",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profiles": profiles})
	}
}

// StatsOverviewHandler returns the profile count, experience distribution and top skills
// GET /api/profiles/stats/overview
func (h *ProfileHandlers) StatsOverviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		overview, err := h.statsRepo.Overview(c.Request.Context())
		if err != nil {
			slog.Error("profile stats failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to get statistics",
			})
			return
		}
		c.JSON(http.StatusOK, overview)
	}
}
