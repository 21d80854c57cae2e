// Package matches exposes AI-assisted teammate matching: ranked match lists for the
// calling participant, the match history, accept/reject decisions and team recommendations
// for a project idea.
package matches

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sundai/hackathon-api/internal/config"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/matching"
	"github.com/sundai/hackathon-api/internal/middleware"
	"github.com/sundai/hackathon-api/internal/validation"
)

// MatchHandlers handles matching endpoints
type MatchHandlers struct {
	cfg         *config.Config
	db          *sql.DB
	profileRepo *repositories.ProfileRepository
	matchRepo   *repositories.MatchRepository
	finder      *matching.Finder
	recommender *matching.TeamRecommender
}

// NewMatchHandlers creates a new MatchHandlers instance
func NewMatchHandlers(cfg *config.Config, db *sql.DB, finder *matching.Finder, recommender *matching.TeamRecommender) *MatchHandlers {
	return &MatchHandlers{
		cfg:         cfg,
		db:          db,
		profileRepo: repositories.NewProfileRepository(db),
		matchRepo:   repositories.NewMatchRepository(db),
		finder:      finder,
		recommender: recommender,
	}
}

// AIMatchesQuery holds the query parameters of GET /ai-matches. skills_focus is read
// separately so both comma-separated and repeated forms are accepted.
type AIMatchesQuery struct {
	MaxMatches      *int     `form:"max_matches" binding:"omitempty,min=1,max=10"`
	MinScore        *float64 `form:"min_score" binding:"omitempty,min=0,max=1"`
	ExperienceLevel string   `form:"experience_level" binding:"omitempty,oneof=beginner intermediate advanced expert"`
}

func (q AIMatchesQuery) options(focus []string) matching.Options {
	opts := matching.Options{
		MaxMatches:  matching.DefaultMaxMatches,
		MinScore:    q.MinScore,
		FocusSkills: focus,
	}
	if q.MaxMatches != nil {
		opts.MaxMatches = *q.MaxMatches
	}
	return opts
}

// MatchResult is one entry of the ai-matches response
type MatchResult struct {
	MatchID string                `json:"match_id"`
	Profile models.ProfileSummary `json:"profile"`
	Score   float64               `json:"score"`
	Reasons string                `json:"reasons"`
	Status  models.MatchStatus    `json:"status"`
}

// RespondRequest carries the requester's decision on a match
type RespondRequest struct {
	Action string `json:"action"`
}

// TeamRecommendationRequest asks for a team assembled around a project idea
type TeamRecommendationRequest struct {
	ProjectIdea    string   `json:"project_idea" binding:"max=2000"`
	RequiredSkills []string `json:"required_skills"`
	TeamSize       *int     `json:"team_size" binding:"omitempty,min=2,max=10"`
}

// requester resolves the session profile, writing a 401 when the route is not behind SessionAuth
func requester(c *gin.Context) (*models.Profile, bool) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
		return nil, false
	}
	return profile, true
}

// AIMatchesHandler scores every other participant against the caller and stores the
// passing matches
// GET /api/matching/ai-matches
func (h *MatchHandlers) AIMatchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := requester(c)
		if !ok {
			return
		}

		var q AIMatchesQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}
		focus := validation.SplitList(c.QueryArray("skills_focus"))
		if err := validation.ValidateList("skills_focus", focus); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		pool, err := h.profileRepo.ListExcept(ctx, profile.ID)
		if err != nil {
			slog.Error("ai matches: load candidates failed", "profile_id", profile.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate matches"})
			return
		}
		if q.ExperienceLevel != "" {
			pool = filterByLevel(pool, models.ExperienceLevel(q.ExperienceLevel))
		}

		found, err := h.finder.FindMatches(ctx, profile, pool, q.options(focus))
		if err != nil {
			slog.Error("ai matches: scoring aborted", "profile_id", profile.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate matches"})
			return
		}

		results := make([]MatchResult, 0, len(found))
		for _, cand := range found {
			m := &models.Match{
				ProfileID:        profile.ID,
				MatchedProfileID: cand.Profile.ID,
				Score:            cand.Score,
				Reason:           cand.Reason,
			}
			if err := h.matchRepo.Upsert(ctx, m, h.cfg.Matching.PreserveStatusOnRecompute); err != nil {
				slog.Error("ai matches: store match failed",
					"profile_id", profile.ID, "matched_profile_id", cand.Profile.ID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate matches"})
				return
			}
			results = append(results, MatchResult{
				MatchID: m.ID,
				Profile: cand.Profile.Summary(),
				Score:   cand.Score,
				Reasons: cand.Reason,
				Status:  m.Status,
			})
		}

		slog.Info("ai matches generated", "profile_id", profile.ID, "candidates", len(pool), "matches", len(results))
		c.JSON(http.StatusOK, gin.H{
			"matches":     results,
			"total_found": len(results),
		})
	}
}

func filterByLevel(pool []*models.Profile, level models.ExperienceLevel) []*models.Profile {
	out := make([]*models.Profile, 0, len(pool))
	for _, p := range pool {
		if p.Level() == level {
			out = append(out, p)
		}
	}
	return out
}

// HistoryHandler lists the caller's stored matches, newest first
// GET /api/matching/history
func (h *MatchHandlers) HistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := requester(c)
		if !ok {
			return
		}

		history, err := h.matchRepo.ListForRequester(c.Request.Context(), profile.ID)
		if err != nil {
			slog.Error("match history failed", "profile_id", profile.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get match history"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"matches": history})
	}
}

// RespondHandler records an accept or reject decision on one of the caller's matches
// POST /api/matching/:matchId/respond
func (h *MatchHandlers) RespondHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := requester(c)
		if !ok {
			return
		}

		var req RespondRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}

		var status models.MatchStatus
		switch req.Action {
		case "accept":
			status = models.MatchStatusAccepted
		case "reject":
			status = models.MatchStatusRejected
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": `Invalid action. Must be "accept" or "reject"`})
			return
		}

		matchID := c.Param("matchId")
		if _, err := uuid.Parse(matchID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
			return
		}

		match, err := h.matchRepo.SetStatus(c.Request.Context(), matchID, profile.ID, status)
		if err != nil {
			slog.Error("respond to match failed", "match_id", matchID, "profile_id", profile.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to respond to match"})
			return
		}
		if match == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
			return
		}

		slog.Info("match decision recorded", "match_id", matchID, "profile_id", profile.ID, "status", status)
		c.JSON(http.StatusOK, gin.H{
			"match":   match,
			"message": "Match " + req.Action + "ed successfully",
		})
	}
}

// TeamRecommendationsHandler proposes a team for a project idea from the other participants
// POST /api/matching/team-recommendations
func (h *MatchHandlers) TeamRecommendationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := requester(c)
		if !ok {
			return
		}

		var req TeamRecommendationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}
		idea := strings.TrimSpace(req.ProjectIdea)
		if idea == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Project idea is required"})
			return
		}
		skills := validation.NormalizeList(req.RequiredSkills)
		if err := validation.ValidateList("required_skills", skills); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		size := matching.DefaultTeamSize
		if req.TeamSize != nil {
			size = *req.TeamSize
		}

		pool, err := h.profileRepo.ListExcept(c.Request.Context(), profile.ID)
		if err != nil {
			slog.Error("team recommendations: load pool failed", "profile_id", profile.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate team recommendations"})
			return
		}

		rec := h.recommender.RecommendTeam(c.Request.Context(), idea, skills, size, pool)

		team := make([]models.ProfileSummary, 0, len(rec.Team))
		for _, p := range rec.Team {
			team = append(team, p.Summary())
		}

		slog.Info("team recommended", "profile_id", profile.ID, "team_size", len(team), "source", rec.Source)
		c.JSON(http.StatusOK, gin.H{
			"project_idea":     idea,
			"recommended_team": team,
			"team_size":        len(team),
			"reasoning":        rec.Reasoning,
			"source":           rec.Source,
		})
	}
}
