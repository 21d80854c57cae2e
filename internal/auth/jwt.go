// Package auth - jwt.go handles session token creation, signing, and verification
// using a shared secret, including lazy secret initialization and claims parsing.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTSecretEnv names the environment variable holding the session signing secret
const JWTSecretEnv = "HACKATHON_JWT_SECRET"

// minSecretLength is the minimum secret length accepted outside dev mode
const minSecretLength = 32

// tokenIssuer is the iss claim on every session token
const tokenIssuer = "hackathon-api"

var (
	// ErrTokenExpired is returned when a session token's exp claim has passed
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned for any token that fails parsing or verification
	ErrTokenMalformed = errors.New("invalid token")
)

var (
	// jwtSecret holds the validated JWT secret
	jwtSecret     string
	jwtSecretOnce sync.Once
	jwtSecretErr  error
)

// Claims represents the session token claims
type Claims struct {
	DiscordID string `json:"discord_id"`
	jwt.RegisteredClaims
}

// isDevMode checks if we're in development mode (duplicated here to avoid import cycle)
func isDevMode() bool {
	devMode := os.Getenv("DEV_MODE")
	nodeEnv := os.Getenv("NODE_ENV")
	ginMode := os.Getenv("GIN_MODE")

	return devMode == "true" || devMode == "1" ||
		nodeEnv == "development" ||
		ginMode == "debug"
}

// generateRandomSecret creates a cryptographically secure random secret
func generateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less secure but functional secret
		return fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// ValidateJWTSecret checks that the session secret is properly configured.
// Outside dev mode the secret must be set and at least 32 bytes long.
// In dev mode a missing secret is replaced by a random one and a warning is logged.
// Call this at application startup.
func ValidateJWTSecret() error {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv(JWTSecretEnv)

		if secret == "" {
			if isDevMode() {
				jwtSecret = generateRandomSecret()
				log.Printf("WARNING: %s not set. Using auto-generated secret for development.", JWTSecretEnv)
				log.Printf("WARNING: Sessions will not persist across restarts. Set %s for persistent sessions.", JWTSecretEnv)
			} else {
				jwtSecretErr = fmt.Errorf("SECURITY ERROR: %s environment variable is required in production. "+
					"Generate a secure secret with: openssl rand -hex 32", JWTSecretEnv)
			}
			return
		}

		if len(secret) < minSecretLength {
			if !isDevMode() {
				jwtSecretErr = fmt.Errorf("SECURITY ERROR: %s must be at least %d bytes", JWTSecretEnv, minSecretLength)
				return
			}
			log.Printf("WARNING: %s is shorter than %d characters. This is only accepted in development.", JWTSecretEnv, minSecretLength)
		}

		jwtSecret = secret
	})

	return jwtSecretErr
}

// GetJWTSecret retrieves the validated JWT secret.
// Panics if ValidateJWTSecret() hasn't been called or failed.
func GetJWTSecret() string {
	if jwtSecret == "" {
		if err := ValidateJWTSecret(); err != nil {
			panic(err)
		}
	}
	return jwtSecret
}

// GenerateJWT creates a session token for the participant with the given Discord identity
func GenerateJWT(discordID string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = 24 * time.Hour
	}

	now := time.Now()
	claims := &Claims{
		DiscordID: discordID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   discordID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(GetJWTSecret()))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateJWT parses and validates a session token. Errors are reported as
// ErrTokenExpired or ErrTokenMalformed so callers can pick the right response.
func ValidateJWT(tokenString string) (*Claims, error) {
	secret := GetJWTSecret()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.DiscordID == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
