package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"taskboard/internal/models"
)

type TaskAssignmentRepository interface {
	ListAll(ctx context.Context) ([]models.TaskAssignment, error)
	ListForTasks(ctx context.Context, taskIDs []string) ([]models.TaskAssignment, error)
	MembersForTask(ctx context.Context, taskID string) ([]string, error)
	// Replace swaps the task's assignee set atomically.
	Replace(ctx context.Context, taskID string, memberIDs []string) error
}

type taskAssignmentRepository struct {
	db *sql.DB
}

func NewTaskAssignmentRepository(db *sql.DB) TaskAssignmentRepository {
	return &taskAssignmentRepository{db: db}
}

func (r *taskAssignmentRepository) list(ctx context.Context, q string, args []interface{}) ([]models.TaskAssignment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TaskAssignment
	for rows.Next() {
		var a models.TaskAssignment
		if err := rows.Scan(&a.TaskID, &a.MemberID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *taskAssignmentRepository) ListAll(ctx context.Context) ([]models.TaskAssignment, error) {
	q, args := newSelect("task_assign", "task_id", "member_id").SQL()
	return r.list(ctx, q, args)
}

func (r *taskAssignmentRepository) ListForTasks(ctx context.Context, taskIDs []string) ([]models.TaskAssignment, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	q, args := newSelect("task_assign", "task_id", "member_id").Where(In("task_id", taskIDs)).SQL()
	return r.list(ctx, q, args)
}

func (r *taskAssignmentRepository) MembersForTask(ctx context.Context, taskID string) ([]string, error) {
	rows, err := r.list(ctx, `SELECT task_id, member_id FROM task_assign WHERE task_id = $1`, []interface{}{taskID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.MemberID)
	}
	return ids, nil
}

func (r *taskAssignmentRepository) Replace(ctx context.Context, taskID string, memberIDs []string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM task_assign WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("clear assignments: %w", err)
	}
	if len(memberIDs) > 0 {
		const q = `
			INSERT INTO task_assign (task_id, member_id)
			SELECT $1, unnest($2::uuid[])
			ON CONFLICT DO NOTHING`
		if _, err = tx.ExecContext(ctx, q, taskID, pq.Array(memberIDs)); err != nil {
			return fmt.Errorf("insert assignments: %w", err)
		}
	}
	return tx.Commit()
}
