package services

import (
	"slices"

	"taskboard/internal/models"
)

// Reason explains a completion-eligibility decision.
type Reason string

const (
	ReasonAlreadyCompleted  Reason = "already completed"
	ReasonAssigned          Reason = "assigned"
	ReasonCreatorUnassigned Reason = "creator of unassigned task"
	ReasonNoAssignments     Reason = "no assignments"
	ReasonNotAssigned       Reason = "only assigned members can complete"
)

// Eligibility decides whether memberID may complete task. Rules are checked
// in order and the first match wins.
func Eligibility(task *models.Task, assignees []string, memberID string) (bool, Reason) {
	switch {
	case task.Status == models.StatusCompleted:
		return false, ReasonAlreadyCompleted
	case slices.Contains(assignees, memberID):
		return true, ReasonAssigned
	case len(assignees) == 0 && task.CreatedBy != nil && *task.CreatedBy == memberID:
		return true, ReasonCreatorUnassigned
	case len(assignees) == 0:
		return false, ReasonNoAssignments
	default:
		return false, ReasonNotAssigned
	}
}

// VisibleTo reports whether a task shows up on memberID's dashboard: tasks
// without a project are public, project tasks need project membership.
func VisibleTo(task *models.Task, projectMembers map[string][]string, memberID string) bool {
	if !task.InProject() {
		return true
	}
	return slices.Contains(projectMembers[*task.ProjectID], memberID)
}
