package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/logging"
	"taskboard/internal/models"
	"taskboard/internal/services"
)

type ProjectHandler struct {
	projects services.ProjectService
}

func NewProjectHandler(projects services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type createProjectRequest struct {
	Title       string               `json:"title" binding:"required"`
	Description *string              `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	Priority    models.Priority      `json:"priority"`
	Deadline    *time.Time           `json:"deadline"`
	LeadID      *string              `json:"lead_id" binding:"omitempty,uuid"`
	Budget      float64              `json:"budget" binding:"gte=0"`
	MemberIDs   []string             `json:"member_ids" binding:"omitempty,dive,uuid"`
}

// @Summary      My projects
// @Description  Projects the member leads or belongs to, newest first, with task counts
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Project
// @Router       /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	memberID, _ := getMemberAndRole(c)
	out, err := h.projects.ListForMember(c.Request.Context(), memberID)
	if err != nil {
		logging.Logger.Errorf("[project][list][err] member=%s: %v", memberID, err)
		writeError(c, err, "failed to list projects")
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Create project
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        project  body      createProjectRequest  true  "Project"
// @Success      201      {object}  models.Project
// @Failure      400      {object}  map[string]string
// @Router       /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	memberID, role := getMemberAndRole(c)
	logging.Logger.Infof("[project][create] call by member=%s role=%s", memberID, role)

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Logger.Warnf("[project][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := &models.Project{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
		LeadID:      req.LeadID,
		Budget:      req.Budget,
	}
	created, err := h.projects.Create(c.Request.Context(), p, req.MemberIDs, memberID)
	if err != nil {
		logging.Logger.Errorf("[project][create][err] %v", err)
		writeError(c, err, "failed to create project")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// @Summary      Project details
// @Description  Project with lead display name, members and tasks
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  models.ProjectDetails
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	d, err := h.projects.GetByID(c.Request.Context(), id)
	if err != nil {
		logging.Logger.Errorf("[project][get][err] id=%s: %v", id, err)
		writeError(c, err, "failed to get project")
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary      Update project
// @Description  Progress is derived from tasks and cannot be set here
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Project ID"
// @Param        project  body      models.ProjectUpdate  true  "Changed fields"
// @Success      200      {object}  models.Project
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch models.ProjectUpdate
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.projects.Update(c.Request.Context(), id, patch)
	if err != nil {
		logging.Logger.Errorf("[project][update][err] id=%s: %v", id, err)
		writeError(c, err, "failed to update project")
		return
	}
	logging.Logger.Infof("[project][update][ok] id=%s", id)
	c.JSON(http.StatusOK, p)
}

// @Summary      Recalculate progress
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  map[string]int
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id}/progress/refresh [post]
func (h *ProjectHandler) RefreshProgress(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	pct, err := h.projects.RecalculateProgress(c.Request.Context(), id)
	if err != nil {
		logging.Logger.Errorf("[project][progress][err] id=%s: %v", id, err)
		writeError(c, err, "failed to recalculate progress")
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": pct})
}

// @Summary      Project report
// @Tags         Projects
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  map[string]string
// @Router       /projects/{id}/report [get]
func (h *ProjectHandler) Report(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	// Rendered into memory so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.projects.Report(c.Request.Context(), id, &buf); err != nil {
		logging.Logger.Errorf("[project][report][err] id=%s: %v", id, err)
		writeError(c, err, "failed to build report")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="project_%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
