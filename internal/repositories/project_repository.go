package repositories

import (
	"context"
	"database/sql"

	"taskboard/internal/models"
)

type ProjectRepository interface {
	Store(ctx context.Context, p *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	FindWithLead(ctx context.Context, id string) (*models.ProjectDetails, error)
	// ListForMember returns projects led by memberID or whose id is in
	// memberOf, newest first.
	ListForMember(ctx context.Context, memberID string, memberOf []string) ([]models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	UpdateProgress(ctx context.Context, id string, progress int) error
}

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) ProjectRepository {
	return &projectRepository{db: db}
}

const projectColumns = `p.id, p.title, p.description, p.status, p.priority, p.progress,
	p.deadline, p.lead_id, p.budget, p.created_at, p.updated_at`

func projectDest(p *models.Project) []interface{} {
	return []interface{}{
		&p.ID, &p.Title, &p.Description, &p.Status, &p.Priority, &p.Progress,
		&p.Deadline, &p.LeadID, &p.Budget, &p.CreatedAt, &p.UpdatedAt,
	}
}

func (r *projectRepository) Store(ctx context.Context, p *models.Project) error {
	const q = `
		INSERT INTO projects (title, description, status, priority, progress, deadline, lead_id, budget)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, q,
		p.Title, p.Description, p.Status, p.Priority, p.Progress, p.Deadline, p.LeadID, p.Budget,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *projectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	q, args := newSelect("projects p", projectColumns).Where(Eq("p.id", id)).SQL()
	p := &models.Project{}
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(projectDest(p)...); err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *projectRepository) FindWithLead(ctx context.Context, id string) (*models.ProjectDetails, error) {
	q, args := newSelect("projects p LEFT JOIN members l ON l.id = p.lead_id",
		projectColumns, "l.id", "l.full_name", "l.email").
		Where(Eq("p.id", id)).
		SQL()

	d := &models.ProjectDetails{}
	var (
		leadID    *string
		leadName  *string
		leadEmail *string
	)
	dest := append(projectDest(&d.Project), &leadID, &leadName, &leadEmail)
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(dest...); err != nil {
		return nil, notFound(err)
	}
	if leadID != nil {
		d.Lead = &models.MemberRef{ID: *leadID, FullName: leadName}
		if leadEmail != nil {
			d.Lead.Email = *leadEmail
		}
	}
	d.LeadName = models.LeadName(d.Lead)
	return d, nil
}

func (r *projectRepository) ListForMember(ctx context.Context, memberID string, memberOf []string) ([]models.Project, error) {
	if memberOf == nil {
		memberOf = []string{}
	}
	q, args := newSelect("projects p", projectColumns).
		Where(AnyOf(Eq("p.lead_id", memberID), In("p.id", memberOf))).
		OrderBy("p.created_at", true).
		SQL()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(projectDest(&p)...); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *projectRepository) Update(ctx context.Context, p *models.Project) error {
	const q = `
		UPDATE projects SET
			title=$1, description=$2, status=$3, priority=$4, deadline=$5,
			lead_id=$6, budget=$7, updated_at=NOW()
		WHERE id=$8
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, q,
		p.Title, p.Description, p.Status, p.Priority, p.Deadline, p.LeadID, p.Budget, p.ID,
	).Scan(&p.UpdatedAt)
	return notFound(err)
}

func (r *projectRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET progress=$1, updated_at=NOW() WHERE id=$2`, progress, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
