// apikeys.go implements self-service API key management. Every operation is scoped to keys
// created by the calling participant; a key owned by someone else is reported as not found.
package account

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sundai/hackathon-api/internal/auth"
	"github.com/sundai/hackathon-api/internal/config"
	"github.com/sundai/hackathon-api/internal/db/models"
	"github.com/sundai/hackathon-api/internal/db/repositories"
	"github.com/sundai/hackathon-api/internal/middleware"
	"github.com/sundai/hackathon-api/internal/validation"
)

// APIKeyHandlers handles API key management endpoints
type APIKeyHandlers struct {
	cfg        *config.Config
	db         *sql.DB
	apiKeyRepo *repositories.APIKeyRepository
}

// NewAPIKeyHandlers creates a new APIKeyHandlers instance
func NewAPIKeyHandlers(cfg *config.Config, db *sql.DB) *APIKeyHandlers {
	return &APIKeyHandlers{
		cfg:        cfg,
		db:         db,
		apiKeyRepo: repositories.NewAPIKeyRepository(db),
	}
}

// GenerateAPIKeyRequest represents the request to create a new API key
type GenerateAPIKeyRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=100"`
	Description *string    `json:"description" binding:"omitempty,max=500"`
	Permissions []string   `json:"permissions" binding:"omitempty,dive,oneof=read write admin"`
	ExpiresAt   *time.Time `json:"expires_at"` // RFC3339 format
}

// UpdateAPIKeyRequest represents a partial key update
type UpdateAPIKeyRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=500"`
	Permissions []string `json:"permissions" binding:"omitempty,dive,oneof=read write admin"`
	IsActive    *bool    `json:"is_active"`
}

// keyOwner resolves the calling participant. Handlers are mounted behind SessionAuth, so a
// missing profile only happens when routes are wired without it.
func keyOwner(c *gin.Context) (string, bool) {
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Access token required",
		})
		return "", false
	}
	return profile.ID, true
}

// keyIDParam returns the :keyId path parameter; ids that are not UUIDs cannot exist
func keyIDParam(c *gin.Context) (string, bool) {
	id := c.Param("keyId")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
		return "", false
	}
	return id, true
}

// GenerateAPIKeyHandler creates a new API key. The plaintext key is only returned here.
// POST /api/keys/generate
func (h *APIKeyHandlers) GenerateAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := keyOwner(c)
		if !ok {
			return
		}

		var req GenerateAPIKeyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}
		if err := validation.ValidateExpiry(req.ExpiresAt, time.Now()); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		permissions := auth.NormalizeScopes(req.Permissions)

		fullKey, keyHash, keyPrefix, err := auth.GenerateAPIKey(h.cfg.Auth.APIKeys.Prefix)
		if err != nil {
			slog.Error("generate api key: random source failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate API key",
			})
			return
		}

		key := &models.APIKey{
			KeyHash:     keyHash,
			KeyPrefix:   keyPrefix,
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Permissions: permissions,
			CreatedBy:   &ownerID,
			ExpiresAt:   req.ExpiresAt,
		}
		if err := h.apiKeyRepo.CreateAPIKey(c.Request.Context(), key); err != nil {
			slog.Error("generate api key: insert failed", "owner_id", ownerID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate API key",
			})
			return
		}

		slog.Info("api key generated", "key_id", key.ID, "owner_id", ownerID, "permissions", key.Permissions)
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"api_key": fullKey,
			"key_info": gin.H{
				"id":          key.ID,
				"name":        key.Name,
				"description": key.Description,
				"key_prefix":  key.KeyPrefix,
				"permissions": key.Permissions,
				"created_at":  key.CreatedAt,
				"expires_at":  key.ExpiresAt,
			},
			"message": "API key generated successfully. Store it securely - it won't be shown again!",
		})
	}
}

// ListAPIKeysHandler lists the caller's keys, newest first
// GET /api/keys/list
func (h *APIKeyHandlers) ListAPIKeysHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := keyOwner(c)
		if !ok {
			return
		}

		keys, err := h.apiKeyRepo.ListAPIKeysByOwner(c.Request.Context(), ownerID)
		if err != nil {
			slog.Error("list api keys failed", "owner_id", ownerID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list API keys",
			})
			return
		}
		if keys == nil {
			keys = []*models.APIKey{}
		}

		c.JSON(http.StatusOK, gin.H{
			"keys":  keys,
			"total": len(keys),
		})
	}
}

// UpdateAPIKeyHandler changes a key's name, description, permissions or active flag
// PUT /api/keys/:keyId
func (h *APIKeyHandlers) UpdateAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := keyOwner(c)
		if !ok {
			return
		}
		keyID, ok := keyIDParam(c)
		if !ok {
			return
		}

		var req UpdateAPIKeyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.BindingMessage(err)})
			return
		}

		update := repositories.APIKeyUpdate{
			Name:        req.Name,
			Description: req.Description,
			IsActive:    req.IsActive,
		}
		if req.Permissions != nil {
			update.Permissions = auth.NormalizeScopes(req.Permissions)
		}

		key, err := h.apiKeyRepo.UpdateAPIKeyForOwner(c.Request.Context(), keyID, ownerID, update)
		if err != nil {
			slog.Error("update api key failed", "key_id", keyID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update API key",
			})
			return
		}
		if key == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"key":     key,
			"message": "API key updated successfully",
		})
	}
}

// RevokeAPIKeyHandler deactivates a key. The row is kept for usage history.
// DELETE /api/keys/:keyId
func (h *APIKeyHandlers) RevokeAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := keyOwner(c)
		if !ok {
			return
		}
		keyID, ok := keyIDParam(c)
		if !ok {
			return
		}

		found, err := h.apiKeyRepo.RevokeAPIKeyForOwner(c.Request.Context(), keyID, ownerID)
		if err != nil {
			slog.Error("revoke api key failed", "key_id", keyID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to revoke API key",
			})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
			return
		}

		slog.Info("api key revoked", "key_id", keyID, "owner_id", ownerID)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "API key revoked successfully",
		})
	}
}

// APIKeyStatsHandler returns usage figures for one key
// GET /api/keys/:keyId/stats
func (h *APIKeyHandlers) APIKeyStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, ok := keyOwner(c)
		if !ok {
			return
		}
		keyID, ok := keyIDParam(c)
		if !ok {
			return
		}

		stats, err := h.apiKeyRepo.GetAPIKeyStats(c.Request.Context(), keyID, ownerID)
		if err != nil {
			slog.Error("api key stats failed", "key_id", keyID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to get API key stats",
			})
			return
		}
		if stats == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"key_stats": stats})
	}
}
