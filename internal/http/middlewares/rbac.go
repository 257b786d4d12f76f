package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RestrictTo allows only authenticated users holding one of the given
// roles. It must be mounted after Protect, which guarantees an identity
// is present.
func RestrictTo(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": "You are not logged in. Please log in to get access.",
			})
			return
		}

		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"status":  "fail",
				"message": "You do not have permission to perform this action.",
			})
			return
		}

		c.Next()
	}
}
