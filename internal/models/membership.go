package models

// ProjectMembership links a member to a project.
type ProjectMembership struct {
	ProjectID string `json:"project_id"`
	MemberID  string `json:"member_id"`
}

// TaskAssignment links a member to a task; only assigned members may
// complete an assigned task.
type TaskAssignment struct {
	TaskID   string `json:"task_id"`
	MemberID string `json:"member_id"`
}

// ProjectMemberView is a membership row joined with the member's name/email.
type ProjectMemberView struct {
	MemberID string  `json:"member_id"`
	FullName *string `json:"full_name"`
	Email    string  `json:"email"`
}

// GroupMemberships folds membership rows into projectID -> memberIDs.
func GroupMemberships(rows []ProjectMembership) map[string][]string {
	out := make(map[string][]string)
	for _, r := range rows {
		out[r.ProjectID] = append(out[r.ProjectID], r.MemberID)
	}
	return out
}

// GroupAssignments folds assignment rows into taskID -> memberIDs.
func GroupAssignments(rows []TaskAssignment) map[string][]string {
	out := make(map[string][]string)
	for _, r := range rows {
		out[r.TaskID] = append(out[r.TaskID], r.MemberID)
	}
	return out
}
