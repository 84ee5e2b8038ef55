package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleManager Role = "manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleManager:
		return true
	}
	return false
}

// Member is a user of the system. Rows are created lazily on first
// authenticated access and never hard-deleted.
type Member struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberRef is the lightweight projection used by pickers and joins.
type MemberRef struct {
	ID       string  `json:"id"`
	FullName *string `json:"full_name"`
	Email    string  `json:"email"`
}

func (m *Member) Validate() error {
	if strings.TrimSpace(m.Email) == "" {
		return validationErr("email is required")
	}
	if m.Role != "" && !m.Role.Valid() {
		return validationErr("invalid role %q", m.Role)
	}
	return nil
}
