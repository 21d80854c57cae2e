// Package teams implements team creation, listing and membership. The same handlers serve the
// session-authenticated /api/teams routes and the API-key /api/v1/teams routes; the caller's
// identity comes from whichever auth middleware ran.
package teams

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sundai/hackathon-api/internal/config"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/middleware"
	"github.com/sundai/hackathon-api/internal/validation"
)

// DefaultMaxMembers is used when a team is created without a capacity
const DefaultMaxMembers = 4

// TeamHandlers handles team endpoints
type TeamHandlers struct {
	cfg      *config.Config
	db       *sql.DB
	teamRepo *repositories.TeamRepository
}

// NewTeamHandlers creates a new TeamHandlers instance
func NewTeamHandlers(cfg *config.Config, db *sql.DB) *TeamHandlers {
	return &TeamHandlers{
		cfg:      cfg,
		db:       db,
		teamRepo: repositories.NewTeamRepository(sqlx.NewDb(db, "postgres")),
	}
}

// CreateTeamRequest represents the request to create a team
type CreateTeamRequest struct {
	Name           string   `json:"name" binding:"required,min=1,max=100"`
	Description    *string  `json:"description" binding:"omitempty,max=1000"`
	ProjectIdea    *string  `json:"project_idea" binding:"omitempty,max=2000"`
	RequiredSkills []string `json:"required_skills"`
	MaxMembers     *int     `json:"max_members" binding:"omitempty,min=2,max=10"`
}

// ListTeamsQuery holds the list filters
type ListTeamsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=open full closed"`
	Limit  int    `form:"limit" binding:"min=0"`
	Offset int    `form:"offset" binding:"min=0"`
}

// callerID returns the acting profile id: the session profile, or the creator of the API key.
// API keys minted offline have no creator, so the id may be empty.
func callerID(c *gin.Context) string {
	if p, ok := middleware.CurrentProfile(c); ok {
		return p.ID
	}
	if k, ok := middleware.CurrentAPIKey(c); ok && k.CreatedBy != nil {
		return *k.CreatedBy
	}
	return ""
}

// teamIDParam returns the :id path parameter; ids that are not UUIDs cannot exist
func teamIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return "", false
	}
	return id, true
}

// CreateTeamHandler creates a team; a known caller becomes its owner and first member
// POST /api/teams
func (h *TeamHandlers) CreateTeamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTeamRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}
		skills := validation.NormalizeList(req.RequiredSkills)
		if err := validation.ValidateList("required_skills", skills); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		team := &models.Team{
			Name:           strings.TrimSpace(req.Name),
			Description:    req.Description,
			ProjectIdea:    req.ProjectIdea,
			RequiredSkills: skills,
			MaxMembers:     DefaultMaxMembers,
		}
		if req.MaxMembers != nil {
			team.MaxMembers = *req.MaxMembers
		}
		if id := callerID(c); id != "" {
			team.CreatedBy = &id
		}

		if err := h.teamRepo.CreateTeam(c.Request.Context(), team); err != nil {
			slog.Error("create team failed", "name", team.Name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create team"})
			return
		}

		slog.Info("team created", "team_id", team.ID, "created_by", team.CreatedBy)
		c.JSON(http.StatusCreated, gin.H{
			"team":    team,
			"message": "Team created successfully",
		})
	}
}

// ListTeamsHandler lists teams, newest first
// GET /api/teams
func (h *TeamHandlers) ListTeamsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q ListTeamsQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}

		teams, err := h.teamRepo.ListTeams(c.Request.Context(), q.Status, q.Limit, q.Offset)
		if err != nil {
			slog.Error("list teams failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get teams"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"teams": teams,
			"total": len(teams),
		})
	}
}

// GetTeamHandler returns a team with its members
// GET /api/teams/:id
func (h *TeamHandlers) GetTeamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := teamIDParam(c)
		if !ok {
			return
		}

		team, err := h.teamRepo.GetTeamWithMembers(c.Request.Context(), id)
		if err != nil {
			slog.Error("get team failed", "team_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get team"})
			return
		}
		if team == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"team": team})
	}
}

// JoinTeamHandler adds the caller to a team
// POST /api/teams/:id/join
func (h *TeamHandlers) JoinTeamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileID := callerID(c)
		if profileID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}
		id, ok := teamIDParam(c)
		if !ok {
			return
		}

		team, err := h.teamRepo.JoinTeam(c.Request.Context(), id, profileID)
		switch {
		case errors.Is(err, repositories.ErrTeamFull):
			c.JSON(http.StatusConflict, gin.H{"error": "Team is full"})
			return
		case errors.Is(err, repositories.ErrDuplicateMember):
			c.JSON(http.StatusConflict, gin.H{"error": "Already a member of this team"})
			return
		case err != nil:
			slog.Error("join team failed", "team_id", id, "profile_id", profileID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join team"})
			return
		case team == nil:
			c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
			return
		}

		slog.Info("team joined", "team_id", id, "profile_id", profileID, "status", team.Status)
		c.JSON(http.StatusOK, gin.H{
			"team":    team,
			"message": "Joined team successfully",
		})
	}
}

// LeaveTeamHandler removes the caller from a team
// DELETE /api/teams/:id/members/me
func (h *TeamHandlers) LeaveTeamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profileID := callerID(c)
		if profileID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}
		id, ok := teamIDParam(c)
		if !ok {
			return
		}

		removed, err := h.teamRepo.LeaveTeam(c.Request.Context(), id, profileID)
		if err != nil {
			slog.Error("leave team failed", "team_id", id, "profile_id", profileID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave team"})
			return
		}
		if !removed {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not a member of this team"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Left team successfully"})
	}
}
