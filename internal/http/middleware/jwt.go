package middleware

import (
	"context"
	"net/http"
	"strings"

	"idle_clicker/internal/identity"

	"github.com/gin-gonic/gin"
)

// IdentityResolver checks that a token's user still resolves to a live
// identity. Satisfied by identity.CachedResolver.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID int64) (identity.Identity, error)
}

// JWT authenticates the request from a Bearer token, resolves the user
// through the identity cache and stores the user id in the gin context under
// "user_id". A token whose user no longer resolves is rejected even before
// its expiry.
func JWT(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}

		userID, err := identity.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if _, err := resolver.Resolve(c.Request.Context(), userID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown identity"})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
