package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"taskboard/internal/models"
	"taskboard/internal/progress"
	"taskboard/internal/repositories"
)

// CacheInvalidator is the part of the dashboard cache mutations touch.
type CacheInvalidator interface {
	InvalidateTaskCache(ctx context.Context)
	InvalidateProjectCache(ctx context.Context)
}

// TaskService defines the interface for task-related business logic.
type TaskService interface {
	Create(ctx context.Context, task *models.Task, assignees []string) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Task, error)
	// Update applies patch on behalf of memberID. Moving the task to
	// completed goes through the same gate as Complete.
	Update(ctx context.Context, id, memberID string, patch models.TaskUpdate) (*models.Task, error)
	Delete(ctx context.Context, id string) error

	// Complete marks the task done on behalf of memberID if they are eligible.
	Complete(ctx context.Context, id, memberID string) (*models.Task, error)
	Assignees(ctx context.Context, id string) ([]string, error)
	SetAssignees(ctx context.Context, id string, memberIDs []string) ([]string, error)
}

type taskService struct {
	tasks       repositories.TaskRepository
	projects    repositories.ProjectRepository
	assignments repositories.TaskAssignmentRepository
	cache       CacheInvalidator
	notifier    AssignmentNotifier
	log         logrus.FieldLogger
	now         func() time.Time
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(
	tasks repositories.TaskRepository,
	projects repositories.ProjectRepository,
	assignments repositories.TaskAssignmentRepository,
	cache CacheInvalidator,
	notifier AssignmentNotifier,
	log logrus.FieldLogger,
) TaskService {
	if notifier == nil {
		notifier = NoopNotifier()
	}
	return &taskService{
		tasks:       tasks,
		projects:    projects,
		assignments: assignments,
		cache:       cache,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

func (s *taskService) Create(ctx context.Context, task *models.Task, assignees []string) (*models.Task, error) {
	if task.Status == "" {
		task.Status = models.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.ProjectID != nil && *task.ProjectID == "" {
		task.ProjectID = nil
	}
	task.ApplyStatus("", s.now())
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.tasks.Store(ctx, task); err != nil {
		return nil, err
	}
	assignees = dedupe(assignees)
	if len(assignees) > 0 {
		if err := s.assignments.Replace(ctx, task.ID, assignees); err != nil {
			return nil, fmt.Errorf("assign task %s: %w", task.ID, err)
		}
	}
	if task.InProject() {
		if _, err := recalculateProject(ctx, s.tasks, s.projects, *task.ProjectID); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx)

	s.notifier.NotifyAssigned(ctx, task, assignees)
	return task, nil
}

func (s *taskService) GetByID(ctx context.Context, id string) (*models.Task, error) {
	return s.tasks.FindByID(ctx, id)
}

func (s *taskService) ListByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	return s.tasks.FindAll(ctx, models.TaskFilter{ProjectID: &projectID})
}

func (s *taskService) Update(ctx context.Context, id, memberID string, patch models.TaskUpdate) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil && *patch.Status == models.StatusCompleted && task.Status != models.StatusCompleted {
		if err := s.checkCanComplete(ctx, task, memberID); err != nil {
			return nil, err
		}
	}
	prevStatus := task.Status
	prevProject := task.ProjectID

	affectsProgress := patch.Apply(task)
	task.ApplyStatus(prevStatus, s.now())
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, s.persist(ctx, task, affectsProgress, prevProject)
}

func (s *taskService) Complete(ctx context.Context, id, memberID string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCanComplete(ctx, task, memberID); err != nil {
		return nil, err
	}

	prevStatus := task.Status
	task.Status = models.StatusCompleted
	task.ApplyStatus(prevStatus, s.now())
	return task, s.persist(ctx, task, true, task.ProjectID)
}

func (s *taskService) checkCanComplete(ctx context.Context, task *models.Task, memberID string) error {
	assignees, err := s.assignments.MembersForTask(ctx, task.ID)
	if err != nil {
		return err
	}
	if ok, reason := Eligibility(task, assignees, memberID); !ok {
		return fmt.Errorf("%w: %s", ErrForbidden, reason)
	}
	return nil
}

// persist writes the task, then recomputes the affected projects, then
// invalidates caches. The order keeps a stale read from being re-cached
// between recompute and invalidation.
func (s *taskService) persist(ctx context.Context, task *models.Task, affectsProgress bool, prevProject *string) error {
	if err := s.tasks.Update(ctx, task); err != nil {
		return err
	}
	if affectsProgress {
		for _, pid := range affectedProjects(prevProject, task.ProjectID) {
			if _, err := recalculateProject(ctx, s.tasks, s.projects, pid); err != nil {
				return err
			}
		}
	}
	s.invalidate(ctx)
	s.log.Infof("[task][update][ok] id=%s status=%s", task.ID, task.Status)
	return nil
}

func (s *taskService) Delete(ctx context.Context, id string) error {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	if task.InProject() {
		if _, err := recalculateProject(ctx, s.tasks, s.projects, *task.ProjectID); err != nil {
			return err
		}
	}
	s.invalidate(ctx)
	return nil
}

func (s *taskService) Assignees(ctx context.Context, id string) ([]string, error) {
	if _, err := s.tasks.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.assignments.MembersForTask(ctx, id)
}

func (s *taskService) SetAssignees(ctx context.Context, id string, memberIDs []string) ([]string, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before, err := s.assignments.MembersForTask(ctx, id)
	if err != nil {
		return nil, err
	}

	memberIDs = dedupe(memberIDs)
	if err := s.assignments.Replace(ctx, id, memberIDs); err != nil {
		return nil, err
	}
	s.cache.InvalidateTaskCache(ctx)

	var added []string
	for _, m := range memberIDs {
		if !slices.Contains(before, m) {
			added = append(added, m)
		}
	}
	s.notifier.NotifyAssigned(ctx, task, added)
	return memberIDs, nil
}

func (s *taskService) invalidate(ctx context.Context) {
	s.cache.InvalidateTaskCache(ctx)
	s.cache.InvalidateProjectCache(ctx)
}

// recalculateProject recomputes and stores a project's progress.
func recalculateProject(ctx context.Context, tasks repositories.TaskRepository, projects repositories.ProjectRepository, projectID string) (int, error) {
	inputs, err := tasks.ProgressInputs(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("load progress inputs for project %s: %w", projectID, err)
	}
	pct := progress.Compute(inputs)
	if err := projects.UpdateProgress(ctx, projectID, pct); err != nil {
		return 0, fmt.Errorf("store progress for project %s: %w", projectID, err)
	}
	return pct, nil
}

func affectedProjects(prev, next *string) []string {
	var ids []string
	if prev != nil && *prev != "" {
		ids = append(ids, *prev)
	}
	if next != nil && *next != "" && (prev == nil || *prev != *next) {
		ids = append(ids, *next)
	}
	return ids
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
