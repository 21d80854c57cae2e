// Package channels exposes the Discord provisioner over HTTP: private team and match
// channels, bulk match channel creation, direct-message notifications and server info.
// Every endpoint answers 503 while no bot token or guild is configured.
package channels

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sundai/hackathon-api/internal/config"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/discord"
	"github.com/sundai/hackathon-api/internal/middleware"
	"github.com/sundai/hackathon-api/internal/validation"
)

// ChannelHandlers handles Discord provisioning endpoints
type ChannelHandlers struct {
	cfg         *config.Config
	db          *sql.DB
	provisioner *discord.Provisioner
	profileRepo *repositories.ProfileRepository
	teamRepo    *repositories.TeamRepository
	channelRepo *repositories.DiscordChannelRepository
}

// NewChannelHandlers creates a new ChannelHandlers instance. provisioner may be nil.
func NewChannelHandlers(cfg *config.Config, db *sql.DB, provisioner *discord.Provisioner) *ChannelHandlers {
	return &ChannelHandlers{
		cfg:         cfg,
		db:          db,
		provisioner: provisioner,
		profileRepo: repositories.NewProfileRepository(db),
		teamRepo:    repositories.NewTeamRepository(sqlx.NewDb(db, "postgres")),
		channelRepo: repositories.NewDiscordChannelRepository(db),
	}
}

// CreateTeamChannelRequest describes a team space. When team_id is given and no member ids
// are listed, the team's roster is used.
type CreateTeamChannelRequest struct {
	TeamName         string   `json:"team_name" binding:"required,min=1,max=100"`
	TeamDescription  string   `json:"team_description" binding:"max=500"`
	MemberDiscordIDs []string `json:"member_discord_ids" binding:"omitempty,min=2,max=10,dive,required"`
	ProjectIdea      string   `json:"project_idea" binding:"max=1000"`
	TeamID           *string  `json:"team_id" binding:"omitempty,uuid"`
}

// CreateMatchChannelRequest pairs the caller with a matched participant
type CreateMatchChannelRequest struct {
	MatchedUserDiscordID string  `json:"matched_user_discord_id" binding:"required"`
	MatchReason          string  `json:"match_reason" binding:"max=1000"`
	MatchID              *string `json:"match_id" binding:"omitempty,uuid"`
}

// SendNotificationRequest is a direct message to one participant
type SendNotificationRequest struct {
	DiscordID string `json:"discord_id"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

// RequireProvisioner answers 503 when the bot is not configured
func (h *ChannelHandlers) RequireProvisioner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.provisioner.Enabled() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Discord integration is not configured",
			})
			return
		}
		c.Next()
	}
}

// invalidMessage strips the package prefix from provisioner validation errors
func invalidMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, discord.ErrInvalidRequest.Error()+": "); i >= 0 {
		msg = msg[i+len(discord.ErrInvalidRequest.Error())+2:]
	}
	return msg
}

// CreateTeamChannelHandler creates the private text and voice channels for a team
// POST /api/discord/create-team-channel
func (h *ChannelHandlers) CreateTeamChannelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTeamChannelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}
		ctx := c.Request.Context()

		members := validation.NormalizeList(req.MemberDiscordIDs)
		if len(members) == 0 {
			if req.TeamID == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": `"member_discord_ids" is required`})
				return
			}
			roster, err := h.teamRepo.MemberDiscordIDs(ctx, *req.TeamID)
			if err != nil {
				slog.Error("create team channel: load roster failed", "team_id", *req.TeamID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create team channel"})
				return
			}
			members = roster
		}

		registered, err := h.profileRepo.GetByDiscordIDs(ctx, members)
		if err != nil {
			slog.Error("create team channel: member lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create team channel"})
			return
		}
		unregistered := []string{}
		for _, id := range members {
			if _, ok := registered[id]; !ok {
				unregistered = append(unregistered, id)
			}
		}
		if len(unregistered) > 0 {
			slog.Warn("team channel includes unregistered members", "team", req.TeamName, "discord_ids", unregistered)
		}

		space, err := h.provisioner.CreateTeamSpace(ctx, discord.TeamSpaceRequest{
			TeamName:         req.TeamName,
			Description:      req.TeamDescription,
			ProjectIdea:      req.ProjectIdea,
			MemberDiscordIDs: members,
			TeamID:           req.TeamID,
		})
		if errors.Is(err, discord.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalidMessage(err)})
			return
		}
		if err != nil {
			slog.Error("create team channel failed", "team", req.TeamName, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create team channel"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":              true,
			"channels":             space,
			"unregistered_members": unregistered,
			"message":              "Team channels created successfully",
		})
	}
}

// CreateMatchChannelHandler creates a private channel for the caller and a matched participant
// POST /api/discord/create-match-channel
func (h *ChannelHandlers) CreateMatchChannelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := middleware.CurrentProfile(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}

		var req CreateMatchChannelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}
		ctx := c.Request.Context()

		matched := discord.Participant{DiscordID: req.MatchedUserDiscordID}
		other, err := h.profileRepo.GetByDiscordID(ctx, req.MatchedUserDiscordID)
		if err != nil {
			slog.Error("create match channel: profile lookup failed", "discord_id", req.MatchedUserDiscordID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create match channel"})
			return
		}
		if other != nil {
			matched.Username = other.Username
			matched.DisplayName = other.DisplayName()
		}

		ref, err := h.provisioner.CreateMatchSpace(ctx,
			discord.Participant{
				DiscordID:   profile.DiscordID,
				Username:    profile.Username,
				DisplayName: profile.DisplayName(),
			},
			matched, req.MatchReason, req.MatchID)
		if errors.Is(err, discord.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": invalidMessage(err)})
			return
		}
		if err != nil {
			slog.Error("create match channel failed", "profile_id", profile.ID, "matched", req.MatchedUserDiscordID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create match channel"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"channel": ref,
			"message": "Match channel created successfully",
		})
	}
}

// SendNotificationHandler sends a direct-message embed to a participant
// POST /api/discord/send-notification
func (h *ChannelHandlers) SendNotificationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SendNotificationRequest
		_ = c.ShouldBindJSON(&req)
		if strings.TrimSpace(req.DiscordID) == "" || strings.TrimSpace(req.Message) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Discord ID and message are required"})
			return
		}

		err := h.provisioner.Notify(c.Request.Context(), req.DiscordID, req.Message, discord.NotificationKind(req.Type))
		if errors.Is(err, discord.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Discord user not found"})
			return
		}
		if err != nil {
			slog.Error("send notification failed", "discord_id", req.DiscordID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notification"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Notification sent successfully",
		})
	}
}

// ServerInfoHandler returns the guild summary and its text channels
// GET /api/discord/server-info
func (h *ChannelHandlers) ServerInfoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := h.provisioner.ServerInfo(c.Request.Context())
		if errors.Is(err, discord.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Discord guild not found"})
			return
		}
		if err != nil {
			slog.Error("server info failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get server info"})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

// BulkCreateMatchChannelsHandler creates channels for every accepted match without one
// POST /api/discord/bulk-create-match-channels
func (h *ChannelHandlers) BulkCreateMatchChannelsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.provisioner.BulkCreateMatchSpaces(c.Request.Context())
		if err != nil {
			slog.Error("bulk create match channels failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create channels"})
			return
		}

		slog.Info("bulk match channels created", "created", len(result.Created), "skipped", result.Skipped, "failed", result.Failed)
		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"created_channels": len(result.Created),
			"channels":         result.Created,
			"skipped":          result.Skipped,
			"failed":           result.Failed,
			"message":          fmt.Sprintf("Successfully created %d match channels", len(result.Created)),
		})
	}
}

// TeamChannelsHandler lists the channels provisioned for a team
// GET /api/discord/team-channels/:teamId
func (h *ChannelHandlers) TeamChannelsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID := c.Param("teamId")
		if _, err := uuid.Parse(teamID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
			return
		}

		channels, err := h.channelRepo.ListByTeam(c.Request.Context(), teamID)
		if err != nil {
			slog.Error("list team channels failed", "team_id", teamID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get team channels"})
			return
		}
		for _, ch := range channels {
			ch.URL = h.provisioner.ChannelURL(ch.ChannelID)
		}

		c.JSON(http.StatusOK, gin.H{"channels": channels})
	}
}
