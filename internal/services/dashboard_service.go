package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/cache"
	"taskboard/internal/models"
	"taskboard/internal/repositories"
)

// TTLs are the per-entity cache lifetimes.
type TTLs struct {
	Member      time.Duration
	Tasks       time.Duration
	Projects    time.Duration
	Assignments time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Member:      5 * time.Minute,
		Tasks:       2 * time.Minute,
		Projects:    3 * time.Minute,
		Assignments: 2 * time.Minute,
	}
}

// Dashboard is the composite lifetime: the shortest of the inputs.
func (t TTLs) Dashboard() time.Duration {
	return min(t.Member, t.Tasks, t.Projects, t.Assignments)
}

// Repositories bundles the stores the dashboard reads from.
type Repositories struct {
	Members        repositories.MemberRepository
	Projects       repositories.ProjectRepository
	Tasks          repositories.TaskRepository
	ProjectMembers repositories.ProjectMemberRepository
	Assignments    repositories.TaskAssignmentRepository
}

type DashboardManager interface {
	GetCurrentMember(ctx context.Context, email string) (*models.Member, error)
	GetDashboardData(ctx context.Context, memberID string) (*models.DashboardData, error)
	MemberProjects(ctx context.Context, memberID string) ([]models.Project, error)

	InvalidateTaskCache(ctx context.Context)
	InvalidateProjectCache(ctx context.Context)
	InvalidateMemberCache(ctx context.Context)
	ClearAllCache(ctx context.Context)
	Close() error
}

type dashboardManager struct {
	cache *cache.Cache
	repos Repositories
	ttl   TTLs
	log   logrus.FieldLogger
}

func NewDashboardManager(c *cache.Cache, repos Repositories, ttl TTLs, log logrus.FieldLogger) DashboardManager {
	return &dashboardManager{cache: c, repos: repos, ttl: ttl, log: log}
}

func (d *dashboardManager) GetCurrentMember(ctx context.Context, email string) (*models.Member, error) {
	key := cache.Key("member", map[string]string{"email": email})
	m, err := cache.Fetch(ctx, d.cache, key, d.ttl.Member, func(ctx context.Context) (*models.Member, error) {
		return d.findOrCreateMember(ctx, email)
	})
	if err != nil {
		d.log.Errorf("[member][current][err] email=%s: %v", email, err)
		return nil, fmt.Errorf("%w: %v", ErrProfileLoad, err)
	}
	return m, nil
}

// findOrCreateMember relies on the unique email index: a concurrent insert
// loses with 23505 and re-reads the winner's row.
func (d *dashboardManager) findOrCreateMember(ctx context.Context, email string) (*models.Member, error) {
	m, err := d.repos.Members.GetByEmail(ctx, email)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	m = &models.Member{Email: email, Role: models.RoleUser, IsActive: true}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := d.repos.Members.Create(ctx, m); err != nil {
		if repositories.IsUniqueViolation(err) {
			return d.repos.Members.GetByEmail(ctx, email)
		}
		return nil, err
	}
	d.log.Infof("[member][create][ok] id=%s email=%s", m.ID, email)
	return m, nil
}

func (d *dashboardManager) GetDashboardData(ctx context.Context, memberID string) (*models.DashboardData, error) {
	key := cache.Key("dashboard", map[string]string{"memberId": memberID})
	data, err := cache.Fetch(ctx, d.cache, key, d.ttl.Dashboard(), func(ctx context.Context) (*models.DashboardData, error) {
		return d.loadDashboard(ctx, memberID)
	})
	if err != nil {
		d.log.Errorf("[dashboard][load][err] member=%s: %v", memberID, err)
		return nil, fmt.Errorf("%w: %v", ErrDashboardLoad, err)
	}
	return data, nil
}

func (d *dashboardManager) loadDashboard(ctx context.Context, memberID string) (*models.DashboardData, error) {
	var (
		member      *models.Member
		projects    []models.Project
		tasks       []models.Task
		memberships map[string][]string
		assignments map[string][]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		member, err = d.memberByID(gctx, memberID)
		return err
	})
	g.Go(func() (err error) {
		projects, err = d.MemberProjects(gctx, memberID)
		return err
	})
	g.Go(func() (err error) {
		tasks, err = d.allTasks(gctx, memberID)
		return err
	})
	g.Go(func() (err error) {
		memberships, err = d.projectMemberships(gctx)
		return err
	})
	g.Go(func() (err error) {
		assignments, err = d.taskAssignments(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data := &models.DashboardData{
		CurrentMember:   member,
		Projects:        projects,
		TaskAssignments: assignments,
		ProjectMembers:  memberships,
		Tasks:           make([]models.TaskView, 0, len(tasks)),
	}
	for i := range tasks {
		t := &tasks[i]
		if !VisibleTo(t, memberships, memberID) {
			continue
		}
		assigned := assignments[t.ID]
		if assigned == nil {
			assigned = []string{}
		}
		ok, reason := Eligibility(t, assigned, memberID)
		data.Tasks = append(data.Tasks, models.TaskView{
			Task:             *t,
			CanComplete:      ok,
			CompletionReason: string(reason),
			AssignedMembers:  assigned,
		})
	}
	return data, nil
}

func (d *dashboardManager) memberByID(ctx context.Context, id string) (*models.Member, error) {
	key := cache.Key("member", map[string]string{"id": id})
	return cache.Fetch(ctx, d.cache, key, d.ttl.Member, func(ctx context.Context) (*models.Member, error) {
		return d.repos.Members.GetByID(ctx, id)
	})
}

// MemberProjects lists projects the member leads or belongs to, newest
// first, each annotated with its task counts.
func (d *dashboardManager) MemberProjects(ctx context.Context, memberID string) ([]models.Project, error) {
	key := cache.Key("projects", map[string]string{"memberId": memberID})
	return cache.Fetch(ctx, d.cache, key, d.ttl.Projects, func(ctx context.Context) ([]models.Project, error) {
		memberOf, err := d.repos.ProjectMembers.ProjectIDsForMember(ctx, memberID)
		if err != nil {
			return nil, err
		}
		projects, err := d.repos.Projects.ListForMember(ctx, memberID, memberOf)
		if err != nil {
			return nil, err
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := range projects {
			p := &projects[i]
			g.Go(func() error {
				total, completed, err := d.repos.Tasks.CountByProject(gctx, p.ID)
				if err != nil {
					return fmt.Errorf("count tasks of project %s: %w", p.ID, err)
				}
				p.TasksCount, p.CompletedTasks = total, completed
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if projects == nil {
			projects = []models.Project{}
		}
		return projects, nil
	})
}

func (d *dashboardManager) allTasks(ctx context.Context, memberID string) ([]models.Task, error) {
	key := cache.Key("tasks", map[string]string{"memberId": memberID})
	return cache.Fetch(ctx, d.cache, key, d.ttl.Tasks, func(ctx context.Context) ([]models.Task, error) {
		tasks, err := d.repos.Tasks.FindAll(ctx, models.TaskFilter{})
		if err != nil {
			return nil, err
		}
		if tasks == nil {
			tasks = []models.Task{}
		}
		return tasks, nil
	})
}

// The key contains both "projects" and "member" so either invalidation
// drops it.
func (d *dashboardManager) projectMemberships(ctx context.Context) (map[string][]string, error) {
	key := cache.Key("memberships", map[string]string{"scope": "projects"})
	return cache.Fetch(ctx, d.cache, key, d.ttl.Assignments, func(ctx context.Context) (map[string][]string, error) {
		rows, err := d.repos.ProjectMembers.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return models.GroupMemberships(rows), nil
	})
}

func (d *dashboardManager) taskAssignments(ctx context.Context) (map[string][]string, error) {
	key := cache.Key("assignments", map[string]string{"scope": "tasks"})
	return cache.Fetch(ctx, d.cache, key, d.ttl.Assignments, func(ctx context.Context) (map[string][]string, error) {
		rows, err := d.repos.Assignments.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return models.GroupAssignments(rows), nil
	})
}

func (d *dashboardManager) InvalidateTaskCache(ctx context.Context) { d.invalidate(ctx, "tasks") }

func (d *dashboardManager) InvalidateProjectCache(ctx context.Context) { d.invalidate(ctx, "projects") }

func (d *dashboardManager) InvalidateMemberCache(ctx context.Context) { d.invalidate(ctx, "member") }

func (d *dashboardManager) invalidate(ctx context.Context, pattern string) {
	d.cache.Invalidate(ctx, pattern)
	d.cache.Invalidate(ctx, "dashboard")
	d.log.Debugf("[cache][invalidate] pattern=%s", pattern)
}

func (d *dashboardManager) ClearAllCache(ctx context.Context) {
	d.cache.Clear(ctx)
	d.log.Infof("[cache][clear][ok]")
}

func (d *dashboardManager) Close() error {
	return d.cache.Close()
}
