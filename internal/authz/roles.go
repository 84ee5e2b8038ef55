package authz

import "taskboard/internal/models"

// IsElevated reports roles that may manage any task, not only their own.
func IsElevated(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

// CanDeleteTask allows the creator or an elevated role.
func CanDeleteTask(role models.Role, memberID string, task *models.Task) bool {
	if IsElevated(role) {
		return true
	}
	return task.CreatedBy != nil && *task.CreatedBy == memberID
}
