// Package auth - scopes.go defines the API key permission constants and provides
// HasScope, HasAnyScope, and HasAllScopes helper functions for permission checking.
package auth

import (
	"fmt"
)

// Scope represents an API key permission
type Scope string

const (
	// ScopeRead allows reading the participant directory and teams
	ScopeRead Scope = "read"
	// ScopeWrite allows creating teams through the machine API
	ScopeWrite Scope = "write"
	// ScopeAdmin is the wildcard scope and satisfies every requirement
	ScopeAdmin Scope = "admin"
)

// AllScopes returns all valid scopes
func AllScopes() []Scope {
	return []Scope{ScopeRead, ScopeWrite, ScopeAdmin}
}

// ValidScopes returns a map of valid scope strings
func ValidScopes() map[string]bool {
	validScopes := make(map[string]bool)
	for _, scope := range AllScopes() {
		validScopes[string(scope)] = true
	}
	return validScopes
}

// ValidateScopes checks if all provided scopes are valid
func ValidateScopes(scopes []string) error {
	validScopes := ValidScopes()

	for _, scope := range scopes {
		if !validScopes[scope] {
			return fmt.Errorf("invalid permission: %s", scope)
		}
	}

	return nil
}

// HasScope checks if a key holds the required scope, either directly or through admin
func HasScope(keyScopes []string, required Scope) bool {
	for _, scope := range keyScopes {
		if scope == string(required) || scope == string(ScopeAdmin) {
			return true
		}
	}
	return false
}

// HasAllScopes checks if a key has all of the required scopes
func HasAllScopes(keyScopes []string, requiredScopes []Scope) bool {
	for _, required := range requiredScopes {
		if !HasScope(keyScopes, required) {
			return false
		}
	}
	return true
}

// GetDefaultScopes returns default scopes for a new API key
func GetDefaultScopes() []string {
	return []string{string(ScopeRead)}
}

// NormalizeScopes deduplicates scopes, preserving first occurrence, and applies the default
// when none are given.
func NormalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return GetDefaultScopes()
	}
	seen := make(map[string]bool, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
