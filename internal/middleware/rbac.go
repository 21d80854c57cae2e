// Package middleware (rbac.go) implements permission checks for API key routes.
//
// Permissions are read from the key row on every request rather than being cached,
// so a key updated through PUT /api/keys/:keyId takes effect on its next use.

package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sundai/hackathon-api/internal/auth"
)

// RequirePermission checks that the authenticating API key holds every listed scope, or admin
func RequirePermission(scopes ...auth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get scopes from context (set by APIKeyAuth)
		scopesVal, exists := c.Get(ScopesKey)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "API key required",
			})
			return
		}

		keyScopes, ok := scopesVal.([]string)
		if !ok || !auth.HasAllScopes(keyScopes, scopes) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": fmt.Sprintf("Permission '%s' required", missingScope(keyScopes, scopes)),
			})
			return
		}

		c.Next()
	}
}

// missingScope returns the first required scope the key lacks
func missingScope(keyScopes []string, required []auth.Scope) auth.Scope {
	for _, scope := range required {
		if !auth.HasScope(keyScopes, scope) {
			return scope
		}
	}
	if len(required) > 0 {
		return required[0]
	}
	return auth.ScopeRead
}
