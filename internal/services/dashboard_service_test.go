package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskboard/internal/models"
)

func TestTTLsDashboardIsShortest(t *testing.T) {
	if got := DefaultTTLs().Dashboard(); got != 2*time.Minute {
		t.Fatalf("Dashboard TTL = %v, want 2m", got)
	}
	ttl := TTLs{Member: time.Minute, Tasks: 4 * time.Minute, Projects: 3 * time.Minute, Assignments: 2 * time.Minute}
	if got := ttl.Dashboard(); got != time.Minute {
		t.Fatalf("Dashboard TTL = %v, want 1m", got)
	}
}

func TestGetCurrentMemberCreatesOnce(t *testing.T) {
	s := newStore()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestManager(t, s, clock)
	ctx := context.Background()

	first, err := m.GetCurrentMember(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("GetCurrentMember: %v", err)
	}
	if first.Role != models.RoleUser || !first.IsActive {
		t.Fatalf("lazily created member = %+v, want active user", first)
	}

	again, err := m.GetCurrentMember(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("GetCurrentMember again: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("member id changed: %s != %s", again.ID, first.ID)
	}
	if got := s.count("members.create"); got != 1 {
		t.Fatalf("members.create calls = %d, want 1", got)
	}
	if got := s.count("members.by_email"); got != 1 {
		t.Fatalf("members.by_email calls = %d, want 1 (second read cached)", got)
	}
}

func TestGetCurrentMemberConcurrentNoDuplicates(t *testing.T) {
	s := newStore()
	ctx := context.Background()

	// Separate managers model separate processes racing on one store.
	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, 8)
	for i := range ids {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := newTestManager(t, s, &fakeClock{t: time.Unix(0, 0)})
			got, err := m.GetCurrentMember(ctx, "race@example.com")
			errs[i] = err
			if got != nil {
				ids[i] = got.ID
			}
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
		if ids[i] != ids[0] {
			t.Fatalf("caller %d got %s, caller 0 got %s", i, ids[i], ids[0])
		}
	}
	if len(s.members) != 1 {
		t.Fatalf("members = %d, want 1", len(s.members))
	}
}

func TestGetCurrentMemberFailure(t *testing.T) {
	s := newStore()
	s.fail["members.by_email"] = errors.New("connection refused")
	m := newTestManager(t, s, &fakeClock{t: time.Unix(0, 0)})

	_, err := m.GetCurrentMember(context.Background(), "ann@example.com")
	if !errors.Is(err, ErrProfileLoad) {
		t.Fatalf("err = %v, want ErrProfileLoad", err)
	}
}

func seedDashboard(s *store) {
	s.addMember("a", "a@example.com")
	s.addMember("b", "b@example.com")
	s.addProject("p1", "a", "a", "b")
	s.addProject("p2", "b", "b")
	s.addTask(models.Task{ID: "t-free", Title: "free", CreatedBy: strPtr("a")})
	s.addTask(models.Task{ID: "t-p1", Title: "in p1", ProjectID: strPtr("p1"), CreatedBy: strPtr("b")})
	s.addTask(models.Task{ID: "t-p2", Title: "in p2", ProjectID: strPtr("p2"), CreatedBy: strPtr("b")})
	s.addTask(models.Task{ID: "t-done", Title: "done", ProjectID: strPtr("p1"), Status: models.StatusCompleted, Progress: 100})
	s.assign("t-p1", "b")
}

func TestGetDashboardDataFiltersAndAnnotates(t *testing.T) {
	s := newStore()
	seedDashboard(s)
	m := newTestManager(t, s, &fakeClock{t: time.Unix(0, 0)})

	data, err := m.GetDashboardData(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetDashboardData: %v", err)
	}
	if data.CurrentMember == nil || data.CurrentMember.ID != "a" {
		t.Fatalf("current member = %+v", data.CurrentMember)
	}

	views := map[string]models.TaskView{}
	for _, v := range data.Tasks {
		views[v.ID] = v
	}
	if _, ok := views["t-p2"]; ok {
		t.Fatalf("task in a project the member does not belong to is visible")
	}
	want := map[string]struct {
		can    bool
		reason Reason
	}{
		"t-free": {true, ReasonCreatorUnassigned},
		"t-p1":   {false, ReasonNotAssigned},
		"t-done": {false, ReasonAlreadyCompleted},
	}
	for id, w := range want {
		v, ok := views[id]
		if !ok {
			t.Fatalf("task %s missing from dashboard", id)
		}
		if v.CanComplete != w.can || v.CompletionReason != string(w.reason) {
			t.Errorf("task %s: can=%v reason=%q, want %v %q", id, v.CanComplete, v.CompletionReason, w.can, w.reason)
		}
	}

	if len(data.Projects) != 1 || data.Projects[0].ID != "p1" {
		t.Fatalf("projects = %+v, want only p1", data.Projects)
	}
	if data.Projects[0].TasksCount != 2 || data.Projects[0].CompletedTasks != 1 {
		t.Fatalf("p1 counts = %d/%d, want 2/1", data.Projects[0].TasksCount, data.Projects[0].CompletedTasks)
	}
	if got := data.TaskAssignments["t-p1"]; len(got) != 1 || got[0] != "b" {
		t.Fatalf("assignments[t-p1] = %v", got)
	}
	if got := data.ProjectMembers["p1"]; len(got) != 2 {
		t.Fatalf("project members[p1] = %v", got)
	}
}

func TestGetDashboardDataCachesWithinTTL(t *testing.T) {
	s := newStore()
	seedDashboard(s)
	clock := &fakeClock{t: time.Unix(0, 0)}
	m := newTestManager(t, s, clock)
	ctx := context.Background()

	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	clock.advance(time.Minute)
	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if got := s.count("tasks.list"); got != 1 {
		t.Fatalf("tasks fetched %d times within TTL, want 1", got)
	}

	clock.advance(90 * time.Second)
	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if got := s.count("tasks.list"); got != 2 {
		t.Fatalf("tasks fetched %d times after TTL, want 2", got)
	}
	// projects live 3 minutes; 2.5 minutes in they are still cached.
	if got := s.count("projects.list"); got != 1 {
		t.Fatalf("projects fetched %d times, want 1", got)
	}
}

func TestInvalidateTaskCacheForcesRefetch(t *testing.T) {
	s := newStore()
	seedDashboard(s)
	m := newTestManager(t, s, &fakeClock{t: time.Unix(0, 0)})
	ctx := context.Background()

	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	m.InvalidateTaskCache(ctx)
	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	if got := s.count("tasks.list"); got != 2 {
		t.Fatalf("tasks fetched %d times, want 2", got)
	}
	if got := s.count("assignments.list"); got != 2 {
		t.Fatalf("assignments fetched %d times, want 2", got)
	}
	if got := s.count("projects.list"); got != 1 {
		t.Fatalf("projects fetched %d times, want 1 (not invalidated)", got)
	}
	if got := s.count("memberships.list"); got != 1 {
		t.Fatalf("memberships fetched %d times, want 1 (not invalidated)", got)
	}
}

func TestInvalidateProjectAndMemberCache(t *testing.T) {
	s := newStore()
	seedDashboard(s)
	m := newTestManager(t, s, &fakeClock{t: time.Unix(0, 0)})
	ctx := context.Background()

	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	m.InvalidateProjectCache(ctx)
	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if s.count("projects.list") != 2 || s.count("memberships.list") != 2 {
		t.Fatalf("project invalidation: projects=%d memberships=%d, want 2/2",
			s.count("projects.list"), s.count("memberships.list"))
	}

	m.InvalidateMemberCache(ctx)
	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if s.count("members.get") != 2 || s.count("memberships.list") != 3 {
		t.Fatalf("member invalidation: members=%d memberships=%d, want 2/3",
			s.count("members.get"), s.count("memberships.list"))
	}
	// memberId-scoped keys contain "member" as well.
	if got := s.count("tasks.list"); got != 2 {
		t.Fatalf("tasks fetched %d times, want 2", got)
	}
}

func TestGetDashboardDataFailureIsNotPartial(t *testing.T) {
	s := newStore()
	seedDashboard(s)
	s.fail["assignments.list"] = errors.New("timeout")
	m := newTestManager(t, s, &fakeClock{t: time.Unix(0, 0)})
	ctx := context.Background()

	data, err := m.GetDashboardData(ctx, "a")
	if !errors.Is(err, ErrDashboardLoad) {
		t.Fatalf("err = %v, want ErrDashboardLoad", err)
	}
	if data != nil {
		t.Fatalf("partial dashboard returned: %+v", data)
	}

	delete(s.fail, "assignments.list")
	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatalf("after recovery: %v", err)
	}
}

func TestClearAllCache(t *testing.T) {
	s := newStore()
	seedDashboard(s)
	m := newTestManager(t, s, &fakeClock{t: time.Unix(0, 0)})
	ctx := context.Background()

	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	m.ClearAllCache(ctx)
	if _, err := m.GetDashboardData(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	for _, op := range []string{"members.get", "projects.list", "tasks.list", "memberships.list", "assignments.list"} {
		if got := s.count(op); got != 2 {
			t.Errorf("%s calls = %d, want 2", op, got)
		}
	}
}
