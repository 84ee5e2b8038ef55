package services

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/models"
	"taskboard/internal/pdf"
	"taskboard/internal/repositories"
)

type ProjectService interface {
	Create(ctx context.Context, p *models.Project, memberIDs []string, creatorID string) (*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.ProjectDetails, error)
	Update(ctx context.Context, id string, patch models.ProjectUpdate) (*models.Project, error)
	ListForMember(ctx context.Context, memberID string) ([]models.Project, error)
	RecalculateProgress(ctx context.Context, id string) (int, error)
	Report(ctx context.Context, id string, w io.Writer) error
}

type projectService struct {
	projects       repositories.ProjectRepository
	projectMembers repositories.ProjectMemberRepository
	tasks          repositories.TaskRepository
	dashboard      DashboardManager
	reports        pdf.Generator
	log            logrus.FieldLogger
	now            func() time.Time
}

func NewProjectService(
	projects repositories.ProjectRepository,
	projectMembers repositories.ProjectMemberRepository,
	tasks repositories.TaskRepository,
	dashboard DashboardManager,
	reports pdf.Generator,
	log logrus.FieldLogger,
) ProjectService {
	return &projectService{
		projects:       projects,
		projectMembers: projectMembers,
		tasks:          tasks,
		dashboard:      dashboard,
		reports:        reports,
		log:            log,
		now:            time.Now,
	}
}

func (s *projectService) Create(ctx context.Context, p *models.Project, memberIDs []string, creatorID string) (*models.Project, error) {
	if p.Status == "" {
		p.Status = models.ProjectPlanning
	}
	if p.Priority == "" {
		p.Priority = models.PriorityMedium
	}
	if p.LeadID == nil || *p.LeadID == "" {
		lead := creatorID
		p.LeadID = &lead
	}
	p.Progress = 0
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.projects.Store(ctx, p); err != nil {
		return nil, err
	}
	if err := s.projectMembers.Add(ctx, p.ID, dedupe(memberIDs)); err != nil {
		return nil, err
	}
	s.dashboard.InvalidateProjectCache(ctx)
	s.log.Infof("[project][create][ok] id=%s lead=%s members=%d", p.ID, *p.LeadID, len(memberIDs))
	return p, nil
}

func (s *projectService) GetByID(ctx context.Context, id string) (*models.ProjectDetails, error) {
	details, err := s.projects.FindWithLead(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		members []models.ProjectMemberView
		tasks   []models.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		members, err = s.projectMembers.ListForProject(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = s.tasks.FindAll(gctx, models.TaskFilter{ProjectID: &id})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	details.Members = make([]models.MemberRef, 0, len(members))
	for _, m := range members {
		details.Members = append(details.Members, models.MemberRef{ID: m.MemberID, FullName: m.FullName, Email: m.Email})
	}
	details.Tasks = tasks
	if details.Tasks == nil {
		details.Tasks = []models.Task{}
	}
	details.TasksCount = len(tasks)
	for _, t := range tasks {
		if t.Status == models.StatusCompleted {
			details.CompletedTasks++
		}
	}
	return details, nil
}

func (s *projectService) Update(ctx context.Context, id string, patch models.ProjectUpdate) (*models.Project, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, err
	}
	s.dashboard.InvalidateProjectCache(ctx)
	return p, nil
}

func (s *projectService) ListForMember(ctx context.Context, memberID string) ([]models.Project, error) {
	return s.dashboard.MemberProjects(ctx, memberID)
}

func (s *projectService) RecalculateProgress(ctx context.Context, id string) (int, error) {
	if _, err := s.projects.FindByID(ctx, id); err != nil {
		return 0, err
	}
	pct, err := recalculateProject(ctx, s.tasks, s.projects, id)
	if err != nil {
		return 0, err
	}
	s.dashboard.InvalidateProjectCache(ctx)
	s.log.Infof("[project][progress][ok] id=%s progress=%d", id, pct)
	return pct, nil
}

func (s *projectService) Report(ctx context.Context, id string, w io.Writer) error {
	details, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.reports.ProjectReport(w, pdf.ReportData{Project: *details, GeneratedAt: s.now()})
}
