package services

import (
	"context"

	"taskboard/internal/models"
	"taskboard/internal/repositories"
)

type MemberService interface {
	ListActive(ctx context.Context) ([]models.MemberRef, error)
	ListProjectMembers(ctx context.Context, projectID string) ([]models.ProjectMemberView, error)
}

type memberService struct {
	members        repositories.MemberRepository
	projects       repositories.ProjectRepository
	projectMembers repositories.ProjectMemberRepository
}

func NewMemberService(
	members repositories.MemberRepository,
	projects repositories.ProjectRepository,
	projectMembers repositories.ProjectMemberRepository,
) MemberService {
	return &memberService{members: members, projects: projects, projectMembers: projectMembers}
}

// ListActive returns active members ordered by name.
func (s *memberService) ListActive(ctx context.Context) ([]models.MemberRef, error) {
	out, err := s.members.ListActive(ctx)
	if out == nil && err == nil {
		out = []models.MemberRef{}
	}
	return out, err
}

func (s *memberService) ListProjectMembers(ctx context.Context, projectID string) ([]models.ProjectMemberView, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	out, err := s.projectMembers.ListForProject(ctx, projectID)
	if out == nil && err == nil {
		out = []models.ProjectMemberView{}
	}
	return out, err
}
