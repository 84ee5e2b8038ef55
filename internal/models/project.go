package models

import (
	"strings"
	"time"
)

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on-hold"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Project is a unit of work with a deadline and a lead.
// Progress is derived from the project's tasks and is never set by users.
type Project struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Status      ProjectStatus `json:"status"`
	Priority    Priority      `json:"priority"`
	Progress    int           `json:"progress"`
	Deadline    *time.Time    `json:"deadline"`
	LeadID      *string       `json:"lead_id"`
	Budget      float64       `json:"budget"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Filled by listing queries only.
	TasksCount     int `json:"tasks_count"`
	CompletedTasks int `json:"completed_tasks"`
}

// ProjectDetails is a project together with its lead, members and tasks.
type ProjectDetails struct {
	Project
	Lead     *MemberRef  `json:"lead"`
	LeadName string      `json:"lead_name"`
	Members  []MemberRef `json:"members"`
	Tasks    []Task      `json:"tasks"`
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return validationErr("title is required")
	}
	if !p.Status.Valid() {
		return validationErr("invalid project status %q", p.Status)
	}
	if !p.Priority.Valid() {
		return validationErr("invalid priority %q", p.Priority)
	}
	if p.Progress < 0 || p.Progress > 100 {
		return validationErr("progress must be between 0 and 100")
	}
	if p.Budget < 0 {
		return validationErr("budget must not be negative")
	}
	return nil
}

// ProjectUpdate is a partial update. Progress is derived and cannot be set.
type ProjectUpdate struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      *ProjectStatus `json:"status"`
	Priority    *Priority      `json:"priority"`
	Deadline    *time.Time     `json:"deadline"`
	LeadID      *string        `json:"lead_id" binding:"omitnil,uuid"`
	Budget      *float64       `json:"budget"`
}

func (u ProjectUpdate) Apply(p *Project) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = u.Description
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Priority != nil {
		p.Priority = *u.Priority
	}
	if u.Deadline != nil {
		p.Deadline = u.Deadline
	}
	if u.LeadID != nil {
		p.LeadID = u.LeadID
	}
	if u.Budget != nil {
		p.Budget = *u.Budget
	}
}
