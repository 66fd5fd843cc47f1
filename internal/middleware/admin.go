package middleware

import (
	"net/http" // HTTP status codes

	"sweetshop/internal/authz" // Authorization layer

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminOnlyMiddleware gates the admin surface: the caller must be allowed to
// mutate the catalog. The role lookup happens inside the authorizer on every
// request, so a revoked grant takes effect immediately. The rejection is a
// generic 403 with no detail on which rule fired.
func AdminOnlyMiddleware(authorizer *authz.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Set by JWTAuthMiddleware
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ok, err := authorizer.Can(userID.(uint), authz.ActionUpdate, authz.ResourceSweet, authz.Anonymous)
		if err != nil || !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next() // Caller holds the admin grant, proceed
	}
}
