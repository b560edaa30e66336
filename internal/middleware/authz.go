package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teamtasks/internal/models"
)

// RequireRoles rejects identities whose role is not in allowed.
// It must run after Authenticate.
func RequireRoles(allowed ...models.Role) gin.HandlerFunc {
	allowedSet := map[models.Role]struct{}{}
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token required"})
			return
		}
		if _, ok := allowedSet[user.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "admin access required"})
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
