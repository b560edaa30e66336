package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"teamtasks/internal/apperr"
	"teamtasks/internal/authz"
	"teamtasks/internal/models"
	"teamtasks/internal/services"
)

const (
	CtxUserKey = "user"
	CtxUserID  = "user_id"
	CtxRole    = "role"
)

// IdentityResolver loads the current record for a token subject.
type IdentityResolver interface {
	Identity(ctx context.Context, id int64) (*models.User, error)
}

func bearerToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	// browsers cannot set headers on a websocket handshake
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}

// Authenticate turns a bearer token into the current identity. A missing
// token is 401, a token that fails verification is 403, and a valid token
// whose subject no longer exists is 401.
func Authenticate(tokens services.AuthService, users IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token required"})
			return
		}

		claims, err := tokens.ParseToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "invalid token"})
			return
		}

		user, err := users.Identity(c.Request.Context(), claims.UserID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
				return
			}
			log.Printf("[auth][identity][err] rid=%s user=%d: %v", RequestIDFrom(c), claims.UserID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "server error"})
			return
		}

		c.Set(CtxUserKey, user)
		c.Set(CtxUserID, user.ID)
		c.Set(CtxRole, user.Role)
		c.Request = c.Request.WithContext(authz.WithIdentity(c.Request.Context(), user))

		c.Next()
	}
}

// CurrentUser returns the identity placed by Authenticate.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CtxUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	if c.Request == nil {
		return nil
	}
	u, _ := authz.IdentityFrom(c.Request.Context())
	return u
}
