package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/logging"
	"taskboard/internal/services"
)

type DashboardHandler struct {
	dashboard services.DashboardManager
}

func NewDashboardHandler(dashboard services.DashboardManager) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// @Summary      Dashboard
// @Description  Member, visible tasks with completion eligibility, projects and membership maps
// @Tags         Dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.DashboardData
// @Failure      500  {object}  map[string]string
// @Router       /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	memberID, _ := getMemberAndRole(c)
	data, err := h.dashboard.GetDashboardData(c.Request.Context(), memberID)
	if err != nil {
		logging.Logger.Errorf("[dashboard][get][err] member=%s: %v", memberID, err)
		writeError(c, err, "failed to load dashboard data")
		return
	}
	logging.Logger.Debugf("[dashboard][get][ok] member=%s tasks=%d projects=%d", memberID, len(data.Tasks), len(data.Projects))
	c.JSON(http.StatusOK, data)
}

// @Summary      Clear cache
// @Description  Drops every cached entry in both tiers (admin only)
// @Tags         Admin
// @Security     BearerAuth
// @Success      204
// @Failure      403  {object}  map[string]string
// @Router       /cache [delete]
func (h *DashboardHandler) ClearCache(c *gin.Context) {
	memberID, role := getMemberAndRole(c)
	h.dashboard.ClearAllCache(c.Request.Context())
	logging.Logger.Infof("[cache][clear][ok] by member=%s role=%s", memberID, role)
	c.Status(http.StatusNoContent)
}
