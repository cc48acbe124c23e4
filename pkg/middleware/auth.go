package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Verifier is the minimal interface the middleware depends on. Implementations
// return the verified token's claims as a map with at least a "sub" entry.
type Verifier interface {
	Verify(ctx context.Context, raw string) (map[string]interface{}, error)
}

// ClaimsKey is the gin context key where verified claims are stored.
const ClaimsKey = "claims"

func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return "", false
	}
	var token string
	if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
		return "", false
	}
	return token, true
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization required."})
			return
		}
		claims, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token."})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware verifies a Bearer token when one is present but lets
// anonymous requests through. Used by routes that behave differently for
// signed-in users, like the OAuth redirect that links instead of signing in.
func OptionalAuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		claims, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			// a bad token on an optional route is treated as anonymous
			c.Next()
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// SubjectFromContext returns the "sub" claim set by the auth middleware.
func SubjectFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return "", false
	}
	cm, ok := v.(map[string]interface{})
	if !ok {
		return "", false
	}
	sub, ok := cm["sub"].(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}
