package models

// TaskView is a task as seen by one member on the dashboard.
type TaskView struct {
	Task
	CanComplete      bool     `json:"can_complete"`
	CompletionReason string   `json:"completion_reason"`
	AssignedMembers  []string `json:"assigned_members"`
}

type DashboardData struct {
	CurrentMember   *Member             `json:"current_member"`
	Tasks           []TaskView          `json:"tasks"`
	Projects        []Project           `json:"projects"`
	TaskAssignments map[string][]string `json:"task_assignments"`
	ProjectMembers  map[string][]string `json:"project_members"`
}
