package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/authz"
	"taskboard/internal/logging"
	"taskboard/internal/models"
	"taskboard/internal/services"
)

type TaskHandler struct {
	service services.TaskService
}

func NewTaskHandler(service services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

type createTaskRequest struct {
	Title               string            `json:"title" binding:"required"`
	Description         *string           `json:"description"`
	ProjectID           *string           `json:"project_id" binding:"omitempty,uuid"`
	Status              models.TaskStatus `json:"status"`
	Priority            models.Priority   `json:"priority"`
	Progress            int               `json:"progress" binding:"gte=0,lte=100"`
	ProjectContribution int               `json:"project_contribution" binding:"gte=0,lte=100"`
	DueDate             *time.Time        `json:"due_date"`
	Assignees           []string          `json:"assignees" binding:"omitempty,dive,uuid"`
}

type assigneesRequest struct {
	MemberIDs []string `json:"member_ids" binding:"dive,uuid"`
}

// @Summary      Create task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task  body      createTaskRequest  true  "Task"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	memberID, role := getMemberAndRole(c)
	logging.Logger.Infof("[task][create] call by member=%s role=%s", memberID, role)

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Logger.Warnf("[task][create][bind][err] %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	creator := memberID
	task := &models.Task{
		Title:               req.Title,
		Description:         req.Description,
		ProjectID:           req.ProjectID,
		Status:              req.Status,
		Priority:            req.Priority,
		Progress:            req.Progress,
		ProjectContribution: req.ProjectContribution,
		CreatedBy:           &creator,
		DueDate:             req.DueDate,
	}
	created, err := h.service.Create(c.Request.Context(), task, req.Assignees)
	if err != nil {
		logging.Logger.Errorf("[task][create][err] %v", err)
		writeError(c, err, "failed to create task")
		return
	}
	logging.Logger.Infof("[task][create][ok] id=%s title=%q", created.ID, created.Title)
	c.JSON(http.StatusCreated, created)
}

// @Summary      Get task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  models.Task
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	task, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		logging.Logger.Errorf("[task][getByID][err] id=%s: %v", id, err)
		writeError(c, err, "failed to get task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary      Project tasks
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {array}   models.Task
// @Router       /projects/{id}/tasks [get]
func (h *TaskHandler) ListByProject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	tasks, err := h.service.ListByProject(c.Request.Context(), id)
	if err != nil {
		logging.Logger.Errorf("[task][list][err] project=%s: %v", id, err)
		writeError(c, err, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	c.JSON(http.StatusOK, tasks)
}

// @Summary      Update task
// @Description  Status, progress, contribution and project changes recompute project progress
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Task ID"
// @Param        task  body      models.TaskUpdate  true  "Changed fields"
// @Success      200   {object}  models.Task
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch models.TaskUpdate
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	memberID, _ := getMemberAndRole(c)
	task, err := h.service.Update(c.Request.Context(), id, memberID, patch)
	if err != nil {
		logging.Logger.Errorf("[task][update][err] id=%s: %v", id, err)
		writeError(c, err, "failed to update task")
		return
	}
	c.JSON(http.StatusOK, task)
}

// @Summary      Delete task
// @Tags         Tasks
// @Security     BearerAuth
// @Param        id   path  string  true  "Task ID"
// @Success      204
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	memberID, role := getMemberAndRole(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	task, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to delete task")
		return
	}
	if !authz.CanDeleteTask(role, memberID, task) {
		logging.Logger.Warnf("[task][delete][deny] id=%s member=%s role=%s", id, memberID, role)
		c.JSON(http.StatusForbidden, gin.H{"error": "only the creator or a manager can delete this task"})
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		logging.Logger.Errorf("[task][delete][err] id=%s: %v", id, err)
		writeError(c, err, "failed to delete task")
		return
	}
	logging.Logger.Infof("[task][delete][ok] id=%s by member=%s", id, memberID)
	c.Status(http.StatusNoContent)
}

// @Summary      Complete task
// @Description  Allowed for assignees, or for the creator of an unassigned task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  models.Task
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(c *gin.Context) {
	memberID, _ := getMemberAndRole(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	task, err := h.service.Complete(c.Request.Context(), id, memberID)
	if err != nil {
		logging.Logger.Warnf("[task][complete][deny] id=%s member=%s: %v", id, memberID, err)
		writeError(c, err, "failed to complete task")
		return
	}
	logging.Logger.Infof("[task][complete][ok] id=%s member=%s", id, memberID)
	c.JSON(http.StatusOK, task)
}

// @Summary      Task assignees
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  map[string][]string
// @Failure      404  {object}  map[string]string
// @Router       /tasks/{id}/assignees [get]
func (h *TaskHandler) GetAssignees(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ids, err := h.service.Assignees(c.Request.Context(), id)
	if err != nil {
		logging.Logger.Errorf("[task][assignees][err] id=%s: %v", id, err)
		writeError(c, err, "failed to load assignees")
		return
	}
	c.JSON(http.StatusOK, gin.H{"member_ids": ids})
}

// @Summary      Replace assignees
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Task ID"
// @Param        body  body      assigneesRequest  true  "Assignees"
// @Success      200   {object}  map[string][]string
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks/{id}/assignees [put]
func (h *TaskHandler) SetAssignees(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req assigneesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ids, err := h.service.SetAssignees(c.Request.Context(), id, req.MemberIDs)
	if err != nil {
		logging.Logger.Errorf("[task][assignees][err] id=%s: %v", id, err)
		writeError(c, err, "failed to update assignees")
		return
	}
	logging.Logger.Infof("[task][assignees][ok] id=%s count=%d", id, len(ids))
	c.JSON(http.StatusOK, gin.H{"member_ids": ids})
}
