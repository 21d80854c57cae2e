// Package models - api_key.go defines machine credentials and their usage log.
package models

import "time"

// APIKey represents a machine credential. Only the SHA-256 hash of the secret is stored.
type APIKey struct {
	ID               string     `json:"id"`
	KeyHash          string     `json:"-"`
	KeyPrefix        string     `json:"key_prefix"` // first characters for display, e.g. "sundai_3f9a"
	Name             string     `json:"name"`
	Description      *string    `json:"description,omitempty"`
	Permissions      []string   `json:"permissions"`
	CreatedBy        *string    `json:"created_by,omitempty"`
	IsActive         bool       `json:"is_active"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	UsageCount       int64      `json:"usage_count"`
	ExpiryNotifiedAt *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsExpired reports whether the key has an expiry in the past relative to now
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// IsRevoked reports whether the key was explicitly revoked
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// APIUsageLog records one request authenticated by an API key
type APIUsageLog struct {
	ID             string    `json:"id"`
	APIKeyID       string    `json:"api_key_id"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMS int       `json:"response_time_ms"`
	UserAgent      *string   `json:"user_agent,omitempty"`
	IPAddress      *string   `json:"ip_address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
