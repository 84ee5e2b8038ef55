package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/logging"
	"taskboard/internal/models"
	"taskboard/internal/services"
)

type AuthHandler struct {
	sessions  services.SessionService
	dashboard services.DashboardManager
}

func NewAuthHandler(sessions services.SessionService, dashboard services.DashboardManager) *AuthHandler {
	return &AuthHandler{sessions: sessions, dashboard: dashboard}
}

// @Summary      Sign out
// @Description  Revokes the bearer token and drops cached member data
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	memberID, _ := getMemberAndRole(c)
	if v, ok := c.Get(CtxClaims); ok {
		if claims, ok := v.(*services.Claims); ok {
			h.sessions.Revoke(claims)
		}
	}
	h.dashboard.InvalidateMemberCache(c.Request.Context())
	logging.Logger.Infof("[auth][logout][ok] member=%s", memberID)
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}

type meResponse struct {
	Member      *models.Member `json:"member"`
	DisplayName string         `json:"display_name"`
}

// @Summary      Current member
// @Description  Returns the signed-in member, created on first access
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      500  {object}  map[string]string
// @Router       /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	email := c.GetString(CtxMemberEmail)
	m, err := h.dashboard.GetCurrentMember(c.Request.Context(), email)
	if err != nil {
		logging.Logger.Errorf("[auth][me][err] email=%s: %v", email, err)
		writeError(c, err, "failed to load user profile")
		return
	}
	c.JSON(http.StatusOK, meResponse{Member: m, DisplayName: models.DisplayName(m, email)})
}
