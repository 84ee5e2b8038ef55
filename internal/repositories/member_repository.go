package repositories

import (
	"context"
	"database/sql"

	"taskboard/internal/models"
)

type MemberRepository interface {
	Create(ctx context.Context, m *models.Member) error
	GetByID(ctx context.Context, id string) (*models.Member, error)
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	ListActive(ctx context.Context) ([]models.MemberRef, error)
}

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) MemberRepository {
	return &memberRepository{db: db}
}

const memberColumns = `id, email, full_name, avatar_url, role, is_active, created_at, updated_at`

func scanMember(row interface{ Scan(...interface{}) error }) (*models.Member, error) {
	m := &models.Member{}
	err := row.Scan(&m.ID, &m.Email, &m.FullName, &m.AvatarURL, &m.Role, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (r *memberRepository) Create(ctx context.Context, m *models.Member) error {
	const q = `
		INSERT INTO members (email, full_name, avatar_url, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, q, m.Email, m.FullName, m.AvatarURL, m.Role, m.IsActive).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *memberRepository) GetByID(ctx context.Context, id string) (*models.Member, error) {
	q, args := newSelect("members", memberColumns).Where(Eq("id", id)).SQL()
	return scanMember(r.db.QueryRowContext(ctx, q, args...))
}

func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	q, args := newSelect("members", memberColumns).Where(Eq("email", email)).SQL()
	return scanMember(r.db.QueryRowContext(ctx, q, args...))
}

func (r *memberRepository) ListActive(ctx context.Context) ([]models.MemberRef, error) {
	q, args := newSelect("members", "id", "full_name", "email").
		Where(Eq("is_active", true)).
		OrderBy("full_name", false).
		SQL()
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MemberRef
	for rows.Next() {
		var m models.MemberRef
		if err := rows.Scan(&m.ID, &m.FullName, &m.Email); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
