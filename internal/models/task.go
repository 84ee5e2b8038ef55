package models

import (
	"strings"
	"time"
)

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// TaskProjectRef is the joined parent-project projection.
type TaskProjectRef struct {
	Title  string        `json:"title"`
	Status ProjectStatus `json:"status"`
}

// Task represents the structure of a task in the system.
type Task struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	Description         *string         `json:"description"`
	ProjectID           *string         `json:"project_id"`
	Status              TaskStatus      `json:"status"`
	Priority            Priority        `json:"priority"`
	Progress            int             `json:"progress"`
	ProjectContribution int             `json:"project_contribution"`
	CreatedBy           *string         `json:"created_by"`
	DueDate             *time.Time      `json:"due_date"`
	CompletedAt         *time.Time      `json:"completed_at"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	Project             *TaskProjectRef `json:"project,omitempty"`
}

// TaskFilter defines the available parameters for filtering tasks.
type TaskFilter struct {
	IDs       []string
	ProjectID *string
	CreatedBy *string
	Status    *TaskStatus
}

func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return validationErr("title is required")
	}
	if !t.Status.Valid() {
		return validationErr("invalid task status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return validationErr("invalid priority %q", t.Priority)
	}
	if t.Progress < 0 || t.Progress > 100 {
		return validationErr("progress must be between 0 and 100")
	}
	if t.ProjectContribution < 0 || t.ProjectContribution > 100 {
		return validationErr("project_contribution must be between 0 and 100")
	}
	return nil
}

// ApplyStatus keeps the completion invariant: a completed task has progress
// 100 and a completion time, any other status has none. prev is the status
// the task had before the change ("" for new tasks).
func (t *Task) ApplyStatus(prev TaskStatus, now time.Time) {
	if t.Status == StatusCompleted {
		t.Progress = 100
		if prev != StatusCompleted || t.CompletedAt == nil {
			ts := now
			t.CompletedAt = &ts
		}
		return
	}
	t.CompletedAt = nil
}

// InProject reports whether the task belongs to a project.
func (t *Task) InProject() bool {
	return t.ProjectID != nil && *t.ProjectID != ""
}

// TaskUpdate is a partial update; nil fields are left unchanged. An empty
// ProjectID detaches the task from its project.
type TaskUpdate struct {
	Title               *string     `json:"title"`
	Description         *string     `json:"description"`
	ProjectID           *string     `json:"project_id"`
	Status              *TaskStatus `json:"status"`
	Priority            *Priority   `json:"priority"`
	Progress            *int        `json:"progress"`
	ProjectContribution *int        `json:"project_contribution"`
	DueDate             *time.Time  `json:"due_date"`
}

// Apply copies the set fields onto t and reports whether any field that
// feeds project progress changed.
func (u TaskUpdate) Apply(t *Task) (affectsProgress bool) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = u.Description
	}
	if u.ProjectID != nil {
		var next *string
		if *u.ProjectID != "" {
			id := *u.ProjectID
			next = &id
		}
		if !sameID(t.ProjectID, next) {
			affectsProgress = true
		}
		t.ProjectID = next
	}
	if u.Status != nil && *u.Status != t.Status {
		t.Status = *u.Status
		affectsProgress = true
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Progress != nil && *u.Progress != t.Progress {
		t.Progress = *u.Progress
		affectsProgress = true
	}
	if u.ProjectContribution != nil && *u.ProjectContribution != t.ProjectContribution {
		t.ProjectContribution = *u.ProjectContribution
		affectsProgress = true
	}
	if u.DueDate != nil {
		t.DueDate = u.DueDate
	}
	return affectsProgress
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
