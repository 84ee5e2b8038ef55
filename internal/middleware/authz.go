package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/handlers"
	"taskboard/internal/logging"
	"taskboard/internal/models"
)

// RequireRoles lets the request through only for the listed member roles.
func RequireRoles(allowed ...models.Role) gin.HandlerFunc {
	allowedSet := map[models.Role]struct{}{}
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}
	return func(c *gin.Context) {
		v, exists := c.Get(handlers.CtxRole)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no role in context"})
			return
		}
		role, _ := v.(models.Role)
		if _, ok := allowedSet[role]; !ok {
			logging.Logger.Warnf("[authz][deny] member=%s role=%s %s %s",
				c.GetString(handlers.CtxMemberID), role, c.Request.Method, c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}
