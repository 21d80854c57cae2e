// api_key_repository.go implements APIKeyRepository, providing database queries for API key
// lookup by hash, owner-scoped management, atomic usage accounting, and expiry sweeps.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sundai/hackathon-api/internal/db/models"
)

const apiKeyColumns = `id, key_hash, key_prefix, name, description, permissions, created_by, is_active,
	expires_at, revoked_at, last_used_at, usage_count, expiry_notified_at, created_at, updated_at`

// APIKeyRepository handles API key database operations
type APIKeyRepository struct {
	db *sql.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// APIKeyUpdate carries the owner-editable key fields. Nil pointers are left unchanged.
type APIKeyUpdate struct {
	Name        *string
	Description *string
	Permissions []string
	IsActive    *bool
}

// APIKeyStats summarizes one key's usage for its owner
type APIKeyStats struct {
	KeyID           string     `json:"key_id"`
	Name            string     `json:"name"`
	UsageCount      int64      `json:"usage_count"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	IsActive        bool       `json:"is_active"`
	RequestsLast24h int        `json:"requests_last_24h"`
	ErrorsLast24h   int        `json:"errors_last_24h"`
	AvgResponseMS   float64    `json:"avg_response_time_ms"`
}

func scanAPIKey(row rowScanner) (*models.APIKey, error) {
	k := &models.APIKey{}
	err := row.Scan(
		&k.ID,
		&k.KeyHash,
		&k.KeyPrefix,
		&k.Name,
		&k.Description,
		pq.Array(&k.Permissions),
		&k.CreatedBy,
		&k.IsActive,
		&k.ExpiresAt,
		&k.RevokedAt,
		&k.LastUsedAt,
		&k.UsageCount,
		&k.ExpiryNotifiedAt,
		&k.CreatedAt,
		&k.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if k.Permissions == nil {
		k.Permissions = []string{}
	}
	// CHAR(64) comes back space padded on some drivers
	k.KeyHash = strings.TrimSpace(k.KeyHash)
	return k, nil
}

// CreateAPIKey creates a new API key
func (r *APIKeyRepository) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	apiKey.ID = uuid.New().String()
	now := time.Now()
	apiKey.CreatedAt = now
	apiKey.UpdatedAt = now
	apiKey.IsActive = true
	if len(apiKey.Permissions) == 0 {
		apiKey.Permissions = []string{"read"}
	}

	query := `
		INSERT INTO api_keys (id, key_hash, key_prefix, name, description, permissions, created_by, is_active,
			expires_at, usage_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		apiKey.ID,
		apiKey.KeyHash,
		apiKey.KeyPrefix,
		apiKey.Name,
		apiKey.Description,
		pq.Array(apiKey.Permissions),
		apiKey.CreatedBy,
		apiKey.IsActive,
		apiKey.ExpiresAt,
		apiKey.CreatedAt,
		apiKey.UpdatedAt,
	)

	return err
}

// GetAPIKeyByHash retrieves an API key by its SHA-256 hash (for authentication)
func (r *APIKeyRepository) GetAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_hash = $1`

	k, err := scanAPIKey(r.db.QueryRowContext(ctx, query, keyHash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

// GetAPIKeyForOwner retrieves a key only if it was created by ownerID
func (r *APIKeyRepository) GetAPIKeyForOwner(ctx context.Context, keyID, ownerID string) (*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1 AND created_by = $2`

	k, err := scanAPIKey(r.db.QueryRowContext(ctx, query, keyID, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

// ListAPIKeysByOwner retrieves all keys created by ownerID, newest first
func (r *APIKeyRepository) ListAPIKeysByOwner(ctx context.Context, ownerID string) ([]*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE created_by = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []*models.APIKey{}
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// UpdateAPIKeyForOwner applies a partial update to a key owned by ownerID.
// Returns nil when the key does not exist or belongs to someone else.
func (r *APIKeyRepository) UpdateAPIKeyForOwner(ctx context.Context, keyID, ownerID string, u APIKeyUpdate) (*models.APIKey, error) {
	sets := []string{}
	args := []any{keyID, ownerID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Permissions != nil {
		add("permissions", pq.Array(u.Permissions))
	}
	if u.IsActive != nil {
		add("is_active", *u.IsActive)
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE api_keys SET %s WHERE id = $1 AND created_by = $2 RETURNING %s`,
		strings.Join(sets, ", "), apiKeyColumns)

	k, err := scanAPIKey(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

// RevokeAPIKeyForOwner soft-revokes a key: it is deactivated and stamped, but the row is kept.
// found is false when no key with that id belongs to ownerID.
func (r *APIKeyRepository) RevokeAPIKeyForOwner(ctx context.Context, keyID, ownerID string) (found bool, err error) {
	query := `
		UPDATE api_keys
		SET is_active = false, revoked_at = COALESCE(revoked_at, NOW()), updated_at = NOW()
		WHERE id = $1 AND created_by = $2
	`
	result, err := r.db.ExecContext(ctx, query, keyID, ownerID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordUsage increments the usage counter and stamps last_used_at in a single statement
func (r *APIKeyRepository) RecordUsage(ctx context.Context, keyID string) error {
	query := `UPDATE api_keys SET usage_count = usage_count + 1, last_used_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, keyID)
	return err
}

// GetAPIKeyStats returns usage figures for a key owned by ownerID, or nil when not found
func (r *APIKeyRepository) GetAPIKeyStats(ctx context.Context, keyID, ownerID string) (*APIKeyStats, error) {
	query := `
		SELECT k.id, k.name, k.usage_count, k.last_used_at, k.created_at, k.is_active,
			COUNT(l.id) FILTER (WHERE l.created_at > NOW() - INTERVAL '24 hours'),
			COUNT(l.id) FILTER (WHERE l.created_at > NOW() - INTERVAL '24 hours' AND l.status_code >= 400),
			COALESCE(AVG(l.response_time_ms), 0)
		FROM api_keys k
		LEFT JOIN api_usage_logs l ON l.api_key_id = k.id
		WHERE k.id = $1 AND k.created_by = $2
		GROUP BY k.id
	`
	s := &APIKeyStats{}
	err := r.db.QueryRowContext(ctx, query, keyID, ownerID).Scan(
		&s.KeyID,
		&s.Name,
		&s.UsageCount,
		&s.LastUsedAt,
		&s.CreatedAt,
		&s.IsActive,
		&s.RequestsLast24h,
		&s.ErrorsLast24h,
		&s.AvgResponseMS,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeactivateExpired marks every active key whose expiry has passed as inactive
func (r *APIKeyRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	query := `
		UPDATE api_keys SET is_active = false, updated_at = NOW()
		WHERE is_active = true AND expires_at IS NOT NULL AND expires_at <= NOW()
	`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExpiringAPIKey is an active key about to expire together with its owner's Discord identity
type ExpiringAPIKey struct {
	Key            *models.APIKey
	OwnerDiscordID string
}

// ListExpiringUnnotified returns active keys expiring within the window whose owner has
// not been warned yet.
func (r *APIKeyRepository) ListExpiringUnnotified(ctx context.Context, within time.Duration) ([]ExpiringAPIKey, error) {
	query := `
		SELECT k.id, k.name, k.key_prefix, k.expires_at, p.discord_id
		FROM api_keys k
		JOIN profiles p ON p.id = k.created_by
		WHERE k.is_active = true
		  AND k.expiry_notified_at IS NULL
		  AND k.expires_at IS NOT NULL
		  AND k.expires_at > NOW()
		  AND k.expires_at <= $1
		ORDER BY k.expires_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, time.Now().Add(within))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ExpiringAPIKey{}
	for rows.Next() {
		k := &models.APIKey{}
		var owner string
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.ExpiresAt, &owner); err != nil {
			return nil, err
		}
		out = append(out, ExpiringAPIKey{Key: k, OwnerDiscordID: owner})
	}
	return out, rows.Err()
}

// MarkExpiryNotified records that the owner of a key was warned about its expiry
func (r *APIKeyRepository) MarkExpiryNotified(ctx context.Context, keyID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET expiry_notified_at = NOW() WHERE id = $1`, keyID)
	return err
}
