package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskboard/internal/handlers"
	"taskboard/internal/logging"
	"taskboard/internal/services"
)

// endpoints that do not require a token
func isPublicPath(path string) bool {
	return strings.HasPrefix(path, "/swagger") ||
		strings.HasPrefix(path, "/docs") ||
		strings.HasPrefix(path, "/healthz")
}

// AuthMiddleware verifies the bearer token and resolves the member behind
// its email, creating the member on first access.
func AuthMiddleware(sessions services.SessionService, dashboard services.DashboardManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := sessions.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		member, err := dashboard.GetCurrentMember(c.Request.Context(), claims.Email)
		if err != nil {
			logging.Logger.Errorf("[auth][member][err] email=%s: %v", claims.Email, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": services.ErrProfileLoad.Error()})
			return
		}
		if !member.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "member is deactivated"})
			return
		}

		c.Set(handlers.CtxClaims, claims)
		c.Set(handlers.CtxMemberID, member.ID)
		c.Set(handlers.CtxMemberEmail, member.Email)
		c.Set(handlers.CtxRole, member.Role)

		c.Next()
	}
}
