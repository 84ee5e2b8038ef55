package repositories

import (
	"context"
	"database/sql"

	"taskboard/internal/models"
	"taskboard/internal/progress"
)

type TaskRepository interface {
	Store(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id string) (*models.Task, error)
	// FindAll returns tasks joined with their project's title/status, newest first.
	FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error

	ProgressInputs(ctx context.Context, projectID string) ([]progress.Summary, error)
	CountByProject(ctx context.Context, projectID string) (total, completed int, err error)
}

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) TaskRepository {
	return &taskRepository{db: db}
}

const taskColumns = `t.id, t.title, t.description, t.project_id, t.status, t.priority, t.progress,
	t.project_contribution, t.created_by, t.due_date, t.completed_at, t.created_at, t.updated_at,
	p.title, p.status`

const taskFrom = `tasks t LEFT JOIN projects p ON p.id = t.project_id`

func scanTask(row interface{ Scan(...interface{}) error }) (*models.Task, error) {
	t := &models.Task{}
	var (
		projectTitle  *string
		projectStatus *string
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.ProjectID, &t.Status, &t.Priority, &t.Progress,
		&t.ProjectContribution, &t.CreatedBy, &t.DueDate, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
		&projectTitle, &projectStatus,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if projectTitle != nil {
		t.Project = &models.TaskProjectRef{Title: *projectTitle}
		if projectStatus != nil {
			t.Project.Status = models.ProjectStatus(*projectStatus)
		}
	}
	return t, nil
}

func (r *taskRepository) Store(ctx context.Context, task *models.Task) error {
	const q = `
		INSERT INTO tasks (
			title, description, project_id, status, priority, progress,
			project_contribution, created_by, due_date, completed_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, q,
		task.Title, task.Description, task.ProjectID, task.Status, task.Priority, task.Progress,
		task.ProjectContribution, task.CreatedBy, task.DueDate, task.CompletedAt,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	q, args := newSelect(taskFrom, taskColumns).Where(Eq("t.id", id)).SQL()
	return scanTask(r.db.QueryRowContext(ctx, q, args...))
}

func (r *taskRepository) FindAll(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	sel := newSelect(taskFrom, taskColumns)
	if len(filter.IDs) > 0 {
		sel = sel.Where(In("t.id", filter.IDs))
	}
	if filter.ProjectID != nil {
		sel = sel.Where(Eq("t.project_id", *filter.ProjectID))
	}
	if filter.CreatedBy != nil {
		sel = sel.Where(Eq("t.created_by", *filter.CreatedBy))
	}
	if filter.Status != nil {
		sel = sel.Where(Eq("t.status", *filter.Status))
	}
	q, args := sel.OrderBy("t.created_at", true).SQL()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	const q = `
		UPDATE tasks SET
			title=$1, description=$2, project_id=$3, status=$4, priority=$5, progress=$6,
			project_contribution=$7, due_date=$8, completed_at=$9, updated_at=NOW()
		WHERE id=$10
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, q,
		task.Title, task.Description, task.ProjectID, task.Status, task.Priority, task.Progress,
		task.ProjectContribution, task.DueDate, task.CompletedAt, task.ID,
	).Scan(&task.UpdatedAt)
	return notFound(err)
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *taskRepository) ProgressInputs(ctx context.Context, projectID string) ([]progress.Summary, error) {
	q, args := newSelect("tasks", "progress", "project_contribution", "status").
		Where(Eq("project_id", projectID)).
		SQL()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []progress.Summary
	for rows.Next() {
		var s progress.Summary
		if err := rows.Scan(&s.Progress, &s.Contribution, &s.Status); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *taskRepository) CountByProject(ctx context.Context, projectID string) (total, completed int, err error) {
	const q = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'completed')
		FROM tasks WHERE project_id = $1`
	err = r.db.QueryRowContext(ctx, q, projectID).Scan(&total, &completed)
	return total, completed, err
}
