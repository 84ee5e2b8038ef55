package repositories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"taskboard/internal/models"
)

type ProjectMemberRepository interface {
	ListAll(ctx context.Context) ([]models.ProjectMembership, error)
	ProjectIDsForMember(ctx context.Context, memberID string) ([]string, error)
	ListForProject(ctx context.Context, projectID string) ([]models.ProjectMemberView, error)
	Add(ctx context.Context, projectID string, memberIDs []string) error
}

type projectMemberRepository struct {
	db *sql.DB
}

func NewProjectMemberRepository(db *sql.DB) ProjectMemberRepository {
	return &projectMemberRepository{db: db}
}

func (r *projectMemberRepository) ListAll(ctx context.Context) ([]models.ProjectMembership, error) {
	q, args := newSelect("project_members", "project_id", "member_id").SQL()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProjectMembership
	for rows.Next() {
		var pm models.ProjectMembership
		if err := rows.Scan(&pm.ProjectID, &pm.MemberID); err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}

func (r *projectMemberRepository) ProjectIDsForMember(ctx context.Context, memberID string) ([]string, error) {
	q, args := newSelect("project_members", "project_id").Where(Eq("member_id", memberID)).SQL()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *projectMemberRepository) ListForProject(ctx context.Context, projectID string) ([]models.ProjectMemberView, error) {
	q, args := newSelect("project_members pm JOIN members m ON m.id = pm.member_id",
		"pm.member_id", "m.full_name", "m.email").
		Where(Eq("pm.project_id", projectID)).
		OrderBy("m.full_name", false).
		SQL()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProjectMemberView
	for rows.Next() {
		var v models.ProjectMemberView
		if err := rows.Scan(&v.MemberID, &v.FullName, &v.Email); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *projectMemberRepository) Add(ctx context.Context, projectID string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return nil
	}
	const q = `
		INSERT INTO project_members (project_id, member_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, projectID, pq.Array(memberIDs))
	return err
}
