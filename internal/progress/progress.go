// Package progress derives a project's completion percentage from its tasks.
package progress

import (
	"math"

	"taskboard/internal/models"
)

// Summary is the slice of a task the calculation needs.
type Summary struct {
	Progress     int               `json:"progress"`
	Contribution int               `json:"project_contribution"`
	Status       models.TaskStatus `json:"status"`
}

// FromTasks projects full task rows onto summaries.
func FromTasks(tasks []models.Task) []Summary {
	out := make([]Summary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, Summary{Progress: t.Progress, Contribution: t.ProjectContribution, Status: t.Status})
	}
	return out
}

// CompletionRate returns round(100*completed/total), or 0 for no tasks.
func CompletionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// Compute returns the project's progress in [0,100].
//
// Tasks with a contribution weight add effective*contribution/100 each, where
// a completed task counts as 100 whatever its stored progress. Weights are
// independent and may sum past 100; the total saturates at 100. When no task
// carries a weight the plain completion ratio is used instead.
func Compute(tasks []Summary) int {
	if len(tasks) == 0 {
		return 0
	}

	var (
		total        float64
		contributing int
		completed    int
	)
	for _, t := range tasks {
		if t.Status == models.StatusCompleted {
			completed++
		}
		if t.Contribution <= 0 {
			continue
		}
		contributing++
		effective := t.Progress
		if t.Status == models.StatusCompleted {
			effective = 100
		}
		total += float64(effective) * float64(t.Contribution) / 100
	}

	if contributing == 0 {
		return CompletionRate(completed, len(tasks))
	}
	return int(math.Round(math.Min(total, 100)))
}
