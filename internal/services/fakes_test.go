package services

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"taskboard/internal/cache"
	"taskboard/internal/models"
	"taskboard/internal/pdf"
	"taskboard/internal/progress"
	"taskboard/internal/repositories"
)

// store is an in-memory backing store shared by the fake repositories. It
// counts reads per operation and records mutations in order.
type store struct {
	mu          sync.Mutex
	seq         int
	members     map[string]*models.Member
	projects    map[string]*models.Project
	tasks       map[string]*models.Task
	memberships []models.ProjectMembership
	assignments []models.TaskAssignment

	calls  map[string]int
	events []string
	fail   map[string]error
}

func newStore() *store {
	return &store{
		members:  map[string]*models.Member{},
		projects: map[string]*models.Project{},
		tasks:    map[string]*models.Task{},
		calls:    map[string]int{},
		fail:     map[string]error{},
	}
}

func (s *store) hit(op string) error {
	s.calls[op]++
	return s.fail[op]
}

func (s *store) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *store) record(ev string) { s.events = append(s.events, ev) }

func (s *store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *store) repos() Repositories {
	return Repositories{
		Members:        fakeMembers{s},
		Projects:       fakeProjects{s},
		Tasks:          fakeTasks{s},
		ProjectMembers: fakeProjectMembers{s},
		Assignments:    fakeAssignments{s},
	}
}

func (s *store) addMember(id, email string) *models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &models.Member{ID: id, Email: email, Role: models.RoleUser, IsActive: true}
	s.members[id] = m
	return m
}

func (s *store) addProject(id, leadID string, memberIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead := leadID
	s.projects[id] = &models.Project{
		ID: id, Title: id, Status: models.ProjectActive, Priority: models.PriorityMedium, LeadID: &lead,
		CreatedAt: time.Unix(int64(len(s.projects)), 0),
	}
	for _, m := range memberIDs {
		s.memberships = append(s.memberships, models.ProjectMembership{ProjectID: id, MemberID: m})
	}
}

func (s *store) addTask(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.Status == "" {
		t.Status = models.StatusTodo
	}
	t.CreatedAt = time.Unix(int64(len(s.tasks)), 0)
	s.tasks[t.ID] = &t
}

func (s *store) assign(taskID string, memberIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range memberIDs {
		s.assignments = append(s.assignments, models.TaskAssignment{TaskID: taskID, MemberID: m})
	}
}

func (s *store) progressOf(projectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects[projectID].Progress
}

type fakeMembers struct{ s *store }

func (f fakeMembers) Create(_ context.Context, m *models.Member) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("members.create"); err != nil {
		return err
	}
	for _, existing := range f.s.members {
		if existing.Email == m.Email {
			return &pq.Error{Code: "23505"}
		}
	}
	m.ID = f.s.nextID("member")
	cp := *m
	f.s.members[m.ID] = &cp
	return nil
}

func (f fakeMembers) GetByID(_ context.Context, id string) (*models.Member, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("members.get"); err != nil {
		return nil, err
	}
	m, ok := f.s.members[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f fakeMembers) GetByEmail(_ context.Context, email string) (*models.Member, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("members.by_email"); err != nil {
		return nil, err
	}
	for _, m := range f.s.members {
		if m.Email == email {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f fakeMembers) ListActive(context.Context) ([]models.MemberRef, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.MemberRef
	for _, m := range f.s.members {
		if m.IsActive {
			out = append(out, models.MemberRef{ID: m.ID, FullName: m.FullName, Email: m.Email})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

type fakeProjects struct{ s *store }

func (f fakeProjects) Store(_ context.Context, p *models.Project) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p.ID = f.s.nextID("project")
	cp := *p
	f.s.projects[p.ID] = &cp
	f.s.record("project.store")
	return nil
}

func (f fakeProjects) FindByID(_ context.Context, id string) (*models.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.projects[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakeProjects) FindWithLead(ctx context.Context, id string) (*models.ProjectDetails, error) {
	p, err := f.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &models.ProjectDetails{Project: *p}
	if p.LeadID != nil {
		f.s.mu.Lock()
		if m, ok := f.s.members[*p.LeadID]; ok {
			d.Lead = &models.MemberRef{ID: m.ID, FullName: m.FullName, Email: m.Email}
		}
		f.s.mu.Unlock()
	}
	d.LeadName = models.LeadName(d.Lead)
	return d, nil
}

func (f fakeProjects) ListForMember(_ context.Context, memberID string, memberOf []string) ([]models.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("projects.list"); err != nil {
		return nil, err
	}
	var out []models.Project
	for _, p := range f.s.projects {
		if (p.LeadID != nil && *p.LeadID == memberID) || slices.Contains(memberOf, p.ID) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeProjects) Update(_ context.Context, p *models.Project) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cur, ok := f.s.projects[p.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	cp := *p
	cp.Progress = cur.Progress
	f.s.projects[p.ID] = &cp
	return nil
}

func (f fakeProjects) UpdateProgress(_ context.Context, id string, pct int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p, ok := f.s.projects[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Progress = pct
	f.s.record("project.progress:" + id)
	return nil
}

type fakeTasks struct{ s *store }

func (f fakeTasks) Store(_ context.Context, t *models.Task) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t.ID = f.s.nextID("task")
	t.CreatedAt = time.Unix(int64(f.s.seq), 0)
	cp := *t
	f.s.tasks[t.ID] = &cp
	f.s.record("task.store")
	return nil
}

func (f fakeTasks) FindByID(_ context.Context, id string) (*models.Task, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	t, ok := f.s.tasks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f fakeTasks) FindAll(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("tasks.list"); err != nil {
		return nil, err
	}
	var out []models.Task
	for _, t := range f.s.tasks {
		if filter.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *filter.ProjectID) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeTasks) Update(_ context.Context, t *models.Task) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.tasks[t.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *t
	f.s.tasks[t.ID] = &cp
	f.s.record("task.update")
	return nil
}

func (f fakeTasks) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.tasks[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.s.tasks, id)
	f.s.record("task.delete")
	return nil
}

func (f fakeTasks) ProgressInputs(_ context.Context, projectID string) ([]progress.Summary, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var rows []models.Task
	for _, t := range f.s.tasks {
		if t.ProjectID != nil && *t.ProjectID == projectID {
			rows = append(rows, *t)
		}
	}
	return progress.FromTasks(rows), nil
}

func (f fakeTasks) CountByProject(_ context.Context, projectID string) (int, int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("tasks.count"); err != nil {
		return 0, 0, err
	}
	total, completed := 0, 0
	for _, t := range f.s.tasks {
		if t.ProjectID != nil && *t.ProjectID == projectID {
			total++
			if t.Status == models.StatusCompleted {
				completed++
			}
		}
	}
	return total, completed, nil
}

type fakeProjectMembers struct{ s *store }

func (f fakeProjectMembers) ListAll(context.Context) ([]models.ProjectMembership, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("memberships.list"); err != nil {
		return nil, err
	}
	return slices.Clone(f.s.memberships), nil
}

func (f fakeProjectMembers) ProjectIDsForMember(_ context.Context, memberID string) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ids := []string{}
	for _, pm := range f.s.memberships {
		if pm.MemberID == memberID {
			ids = append(ids, pm.ProjectID)
		}
	}
	return ids, nil
}

func (f fakeProjectMembers) ListForProject(_ context.Context, projectID string) ([]models.ProjectMemberView, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.ProjectMemberView
	for _, pm := range f.s.memberships {
		if pm.ProjectID != projectID {
			continue
		}
		v := models.ProjectMemberView{MemberID: pm.MemberID}
		if m, ok := f.s.members[pm.MemberID]; ok {
			v.FullName, v.Email = m.FullName, m.Email
		}
		out = append(out, v)
	}
	return out, nil
}

func (f fakeProjectMembers) Add(_ context.Context, projectID string, memberIDs []string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, m := range memberIDs {
		pm := models.ProjectMembership{ProjectID: projectID, MemberID: m}
		if !slices.Contains(f.s.memberships, pm) {
			f.s.memberships = append(f.s.memberships, pm)
		}
	}
	return nil
}

type fakeAssignments struct{ s *store }

func (f fakeAssignments) ListAll(context.Context) ([]models.TaskAssignment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.hit("assignments.list"); err != nil {
		return nil, err
	}
	return slices.Clone(f.s.assignments), nil
}

func (f fakeAssignments) ListForTasks(_ context.Context, taskIDs []string) ([]models.TaskAssignment, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []models.TaskAssignment
	for _, a := range f.s.assignments {
		if slices.Contains(taskIDs, a.TaskID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f fakeAssignments) MembersForTask(_ context.Context, taskID string) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ids := []string{}
	for _, a := range f.s.assignments {
		if a.TaskID == taskID {
			ids = append(ids, a.MemberID)
		}
	}
	return ids, nil
}

func (f fakeAssignments) Replace(_ context.Context, taskID string, memberIDs []string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	kept := f.s.assignments[:0]
	for _, a := range f.s.assignments {
		if a.TaskID != taskID {
			kept = append(kept, a)
		}
	}
	for _, m := range memberIDs {
		kept = append(kept, models.TaskAssignment{TaskID: taskID, MemberID: m})
	}
	f.s.assignments = kept
	f.s.record("assignments.replace")
	return nil
}

// recordingInvalidator appends cache invalidations to the store's event log
// so ordering against writes can be asserted.
type recordingInvalidator struct{ s *store }

func (r recordingInvalidator) InvalidateTaskCache(context.Context) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("invalidate:tasks")
}

func (r recordingInvalidator) InvalidateProjectCache(context.Context) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.record("invalidate:projects")
}

type recordingNotifier struct {
	mu       sync.Mutex
	notified []string
}

func (n *recordingNotifier) NotifyAssigned(_ context.Context, _ *models.Task, memberIDs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, memberIDs...)
}

type stubReports struct{ got *pdf.ReportData }

func (s *stubReports) ProjectReport(w io.Writer, data pdf.ReportData) error {
	s.got = &data
	_, err := io.WriteString(w, "%PDF-stub")
	return err
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestManager(t *testing.T, s *store, clock *fakeClock) DashboardManager {
	t.Helper()
	c := cache.New(cache.WithClock(clock.now), cache.WithLogger(quietLogger()))
	m := NewDashboardManager(c, s.repos(), DefaultTTLs(), quietLogger())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func strPtr(s string) *string { return &s }
