// Package auth provides authentication primitives for the hackathon API: API key
// generation and hashing, session token creation and verification, and permission checks.
// Two authentication methods are supported: session tokens (issued after Discord login,
// stateless verification) and API keys (long-lived machine credentials stored as SHA-256 digests).
// See internal/middleware/auth.go for the request-time authentication logic that uses these primitives.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// APIKeyLength is the length of the random part of the API key in bytes
	APIKeyLength = 32

	// DisplayPrefixLength is the number of characters to show in displays
	DisplayPrefixLength = 12

	// DefaultAPIKeyPrefix is prepended to every generated key
	DefaultAPIKeyPrefix = "sundai"

	// APIKeyHeader is the dedicated request header for API keys
	APIKeyHeader = "X-API-Key"
)

// GenerateAPIKey creates a new random API key with the given prefix.
// Returns: full key (to show once), SHA-256 hex digest (to store), display prefix
func GenerateAPIKey(prefix string) (key string, hash string, displayPrefix string, err error) {
	if prefix == "" {
		prefix = DefaultAPIKeyPrefix
	}

	randomBytes := make([]byte, APIKeyLength)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	fullKey := fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(randomBytes))

	displayPrefixStr := fullKey
	if len(fullKey) > DisplayPrefixLength {
		displayPrefixStr = fullKey[:DisplayPrefixLength]
	}

	return fullKey, HashAPIKey(fullKey), displayPrefixStr, nil
}

// HashAPIKey returns the lowercase hex SHA-256 digest of a key. Lookups are by digest,
// so the plaintext never needs to be stored.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ExtractAPIKeyFromHeader extracts the API key from an Authorization header
// Expected format: "Bearer sundai_abc123..."
func ExtractAPIKeyFromHeader(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}

	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	key := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if key == "" {
		return "", errors.New("API key is empty after Bearer prefix")
	}

	return key, nil
}

// ExtractAPIKey returns the key from X-API-Key, falling back to an Authorization bearer value
func ExtractAPIKey(apiKeyHeader, authorizationHeader string) string {
	if k := strings.TrimSpace(apiKeyHeader); k != "" {
		return k
	}
	k, err := ExtractAPIKeyFromHeader(authorizationHeader)
	if err != nil {
		return ""
	}
	return k
}
