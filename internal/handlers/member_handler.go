package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/logging"
	"taskboard/internal/services"
)

type MemberHandler struct {
	members services.MemberService
}

func NewMemberHandler(members services.MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

// @Summary      Active members
// @Tags         Members
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.MemberRef
// @Router       /members [get]
func (h *MemberHandler) List(c *gin.Context) {
	out, err := h.members.ListActive(c.Request.Context())
	if err != nil {
		logging.Logger.Errorf("[member][list][err] %v", err)
		writeError(c, err, "failed to list members")
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Project members
// @Tags         Members
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {array}   models.ProjectMemberView
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id}/members [get]
func (h *MemberHandler) ListProjectMembers(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	out, err := h.members.ListProjectMembers(c.Request.Context(), id)
	if err != nil {
		logging.Logger.Errorf("[member][project][err] project=%s: %v", id, err)
		writeError(c, err, "failed to list project members")
		return
	}
	c.JSON(http.StatusOK, out)
}
