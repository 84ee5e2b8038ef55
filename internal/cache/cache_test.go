package cache

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func counter(v payload, calls *int) func(context.Context) (payload, error) {
	return func(context.Context) (payload, error) {
		*calls++
		return v, nil
	}
}

func TestKeyIsOrderIndependent(t *testing.T) {
	a := Key("tasks", map[string]string{"memberId": "m1", "scope": "all"})
	b := Key("tasks", map[string]string{"scope": "all", "memberId": "m1"})
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if a != "tasks:memberId:m1|scope:all" {
		t.Fatalf("unexpected key %q", a)
	}
	if Key("project_members", nil) != "project_members" {
		t.Fatalf("bare type key changed")
	}
}

func TestFetchRespectsTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithLogger(quietLogger()))
	ctx := context.Background()

	calls := 0
	load := counter(payload{Name: "x"}, &calls)

	for i := 0; i < 3; i++ {
		if _, err := Fetch(ctx, c, "k", time.Minute, load); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 load within ttl, got %d", calls)
	}

	clock.Advance(time.Minute)
	if _, err := Fetch(ctx, c, "k", time.Minute, load); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("entry at exactly ttl should still be fresh, loads=%d", calls)
	}

	clock.Advance(time.Millisecond)
	if _, err := Fetch(ctx, c, "k", time.Minute, load); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly one reload after expiry, got %d loads", calls)
	}
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c := New(WithLogger(quietLogger()))
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := Fetch(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed load was cached")
	}
}

func TestInvalidateMatchesSubstring(t *testing.T) {
	c := New(WithLogger(quietLogger()))
	ctx := context.Background()
	c.Set(ctx, "tasks:memberId:1", 1, time.Minute)
	c.Set(ctx, "assignments:scope:tasks", 2, time.Minute)
	c.Set(ctx, "projects:memberId:1", 3, time.Minute)
	c.Set(ctx, "dashboard:memberId:1", 4, time.Minute)

	c.Invalidate(ctx, "tasks")

	if _, ok := Get[int](ctx, c, "tasks:memberId:1"); ok {
		t.Fatal("tasks entry survived")
	}
	if _, ok := Get[int](ctx, c, "assignments:scope:tasks"); ok {
		t.Fatal("assignment entry survived")
	}
	if v, ok := Get[int](ctx, c, "projects:memberId:1"); !ok || v != 3 {
		t.Fatal("unrelated entry dropped")
	}
}

func TestDurableHitIsPromoted(t *testing.T) {
	clock := newFakeClock()
	store := newTestSQLite(t)
	ctx := context.Background()

	first := New(WithDurable(store), WithClock(clock.Now), WithLogger(quietLogger()))
	first.Set(ctx, "member:email:a@b.c", payload{Name: "a", Count: 1}, 5*time.Minute)

	// a fresh process sharing the same mirror
	second := New(WithDurable(store), WithClock(clock.Now), WithLogger(quietLogger()))
	calls := 0
	got, err := Fetch(ctx, second, "member:email:a@b.c", 5*time.Minute, counter(payload{Name: "fresh"}, &calls))
	if err != nil {
		t.Fatal(err)
	}
	if calls != 0 || got.Name != "a" || got.Count != 1 {
		t.Fatalf("durable hit not used: calls=%d got=%+v", calls, got)
	}
	if second.Len() != 1 {
		t.Fatalf("durable hit not promoted to memory")
	}
}

func TestDurableExpiryDropsEntry(t *testing.T) {
	clock := newFakeClock()
	store := newTestSQLite(t)
	ctx := context.Background()

	c := New(WithDurable(store), WithClock(clock.Now), WithLogger(quietLogger()))
	c.Set(ctx, "tasks:memberId:1", payload{Name: "old"}, 2*time.Minute)
	clock.Advance(3 * time.Minute)

	if _, ok := Get[payload](ctx, c, "tasks:memberId:1"); ok {
		t.Fatal("expired entry served")
	}
	if _, found, _ := store.Get(ctx, DefaultPrefix+"tasks:memberId:1"); found {
		t.Fatal("expired entry left in durable tier")
	}
}

func TestInvalidateAndClearReachDurableTier(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	c := New(WithDurable(store), WithLogger(quietLogger()))

	c.Set(ctx, "dashboard:memberId:1", 1, time.Minute)
	c.Set(ctx, "projects:memberId:1", 2, time.Minute)
	c.Invalidate(ctx, "dashboard")

	if _, found, _ := store.Get(ctx, DefaultPrefix+"dashboard:memberId:1"); found {
		t.Fatal("dashboard entry survived in durable tier")
	}
	// the namespace prefix itself must not match patterns
	if _, found, _ := store.Get(ctx, DefaultPrefix+"projects:memberId:1"); !found {
		t.Fatal("prefix matched the invalidation pattern")
	}

	c.Clear(ctx)
	if _, found, _ := store.Get(ctx, DefaultPrefix+"projects:memberId:1"); found {
		t.Fatal("clear left durable entries")
	}
	if c.Len() != 0 {
		t.Fatal("clear left memory entries")
	}
}

type brokenDurable struct{ calls int }

var errDisk = errors.New("disk on fire")

func (b *brokenDurable) Get(context.Context, string) ([]byte, bool, error) {
	b.calls++
	return nil, false, errDisk
}
func (b *brokenDurable) Set(context.Context, string, []byte) error { b.calls++; return errDisk }
func (b *brokenDurable) Delete(context.Context, string) error      { b.calls++; return errDisk }
func (b *brokenDurable) DeleteMatching(context.Context, string, string) error {
	b.calls++
	return errDisk
}
func (b *brokenDurable) DeletePrefix(context.Context, string) error { b.calls++; return errDisk }
func (b *brokenDurable) Close() error                               { return nil }

func TestDurableFailuresAreNonFatal(t *testing.T) {
	d := &brokenDurable{}
	c := New(WithDurable(d), WithLogger(quietLogger()))
	ctx := context.Background()

	calls := 0
	for i := 0; i < 20; i++ {
		c.Invalidate(ctx, "k")
		v, err := Fetch(ctx, c, "k", time.Minute, counter(payload{Name: "v"}, &calls))
		if err != nil || v.Name != "v" {
			t.Fatalf("fetch failed with broken durable tier: %v", err)
		}
	}
	if calls != 20 {
		t.Fatalf("expected a load per invalidation, got %d", calls)
	}
	if d.calls >= 60 {
		t.Fatalf("breaker never opened: %d durable calls", d.calls)
	}
}

// stuckDeletes is a working mirror whose bulk deletes fail.
type stuckDeletes struct{ *SQLiteStore }

func (stuckDeletes) DeleteMatching(context.Context, string, string) error { return errDisk }
func (stuckDeletes) DeletePrefix(context.Context, string) error           { return errDisk }

func TestInvalidateWinsOverStuckDurableEntry(t *testing.T) {
	clock := newFakeClock()
	store := stuckDeletes{newTestSQLite(t)}
	ctx := context.Background()
	c := New(WithDurable(store), WithClock(clock.Now), WithLogger(quietLogger()))

	calls := 0
	if _, err := Fetch(ctx, c, "tasks:memberId:m1", 2*time.Minute, counter(payload{Name: "old"}, &calls)); err != nil {
		t.Fatal(err)
	}
	c.Invalidate(ctx, "tasks")
	clock.Advance(10 * time.Second)

	got, err := Fetch(ctx, c, "tasks:memberId:m1", 2*time.Minute, counter(payload{Name: "new"}, &calls))
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "new" || calls != 2 {
		t.Fatalf("after invalidate: value=%q loads=%d, want new/2", got.Name, calls)
	}

	// entries written after the invalidation are served again
	clock.Advance(time.Second)
	other := New(WithDurable(store), WithClock(clock.Now), WithLogger(quietLogger()))
	if v, ok := Get[payload](ctx, other, "tasks:memberId:m1"); !ok || v.Name != "new" {
		t.Fatalf("fresh durable entry not served: %+v ok=%v", v, ok)
	}
}

func TestClearWinsOverStuckDurableEntry(t *testing.T) {
	clock := newFakeClock()
	store := stuckDeletes{newTestSQLite(t)}
	ctx := context.Background()
	c := New(WithDurable(store), WithClock(clock.Now), WithLogger(quietLogger()))

	c.Set(ctx, "projects:memberId:m1", payload{Name: "old"}, 3*time.Minute)
	c.Clear(ctx)
	clock.Advance(time.Second)

	if _, ok := Get[payload](ctx, c, "projects:memberId:m1"); ok {
		t.Fatal("entry served after clear")
	}
	if _, found, _ := store.Get(ctx, DefaultPrefix+"projects:memberId:m1"); found {
		t.Fatal("stale durable entry not removed on read")
	}
}

func TestCanceledCallersDoNotTripBreaker(t *testing.T) {
	store := newTestSQLite(t)
	c := New(WithDurable(store), WithLogger(quietLogger()))

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		Get[payload](canceled, c, "tasks:memberId:m1")
	}

	ctx := context.Background()
	c.Set(ctx, "live", payload{Name: "live"}, time.Minute)
	if _, found, err := store.Get(ctx, DefaultPrefix+"live"); err != nil || !found {
		t.Fatalf("healthy durable tier skipped after canceled reads: found=%v err=%v", found, err)
	}
}
