package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/claude/rehabreps/internal/exercise"
	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/pose"
)

type fakeRecorder struct {
	mu   sync.Mutex
	rows []models.SessionRow
	err  error
}

func (f *fakeRecorder) SaveSession(_ context.Context, row models.SessionRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
	return f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []exercise.Event
}

func (f *fakeNotifier) Notify(_ string, ev exercise.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

type memCache struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

func (c *memCache) Put(_ context.Context, s Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[s.Info.ID] = s
	return nil
}

func (c *memCache) Get(_ context.Context, id string) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snaps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (c *memCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snaps, id)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// legFrame bends both knees to deg.
func legFrame(deg float64) pose.Frame {
	lms := make([]pose.Landmark, pose.NumLandmarks)
	for i := range lms {
		lms[i] = pose.Landmark{X: 0.5, Y: 0.5}
	}
	place := func(hip, knee, ankle int, x float64) {
		rad := deg * math.Pi / 180
		lms[hip] = pose.Landmark{X: x, Y: 0.5}
		lms[knee] = pose.Landmark{X: x, Y: 0.7}
		lms[ankle] = pose.Landmark{X: x + 0.2*math.Sin(rad), Y: 0.7 - 0.2*math.Cos(rad)}
	}
	place(pose.LeftHip, pose.LeftKnee, pose.LeftAnkle, 0.55)
	place(pose.RightHip, pose.RightKnee, pose.RightAnkle, 0.45)
	return pose.Frame{Landmarks: lms}
}

type fixture struct {
	clock    *exercise.ManualClock
	recorder *fakeRecorder
	notifier *fakeNotifier
	cache    *memCache
	mgr      *Manager
}

func newFixture(t *testing.T, reps, sets int) *fixture {
	t.Helper()
	cat, err := exercise.DefaultCatalog().WithTargets(map[string]exercise.Targets{
		exercise.IDLegForward: {Reps: reps, Sets: sets},
	})
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		clock:    exercise.NewManualClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		recorder: &fakeRecorder{},
		notifier: &fakeNotifier{},
		cache:    &memCache{snaps: map[string]Snapshot{}},
	}
	opts := exercise.DefaultOptions()
	opts.Clock = f.clock
	f.mgr = NewManager(cat, opts, f.recorder, f.cache, f.notifier, testLogger())
	return f
}

// rep drives one knee extension through the manager.
func (f *fixture) rep(t *testing.T, id string) *Update {
	t.Helper()
	var last *Update
	for _, step := range []struct {
		wait time.Duration
		deg  float64
	}{
		{100 * time.Millisecond, 90},
		{100 * time.Millisecond, 120},
		{100 * time.Millisecond, 170},
		{2100 * time.Millisecond, 170},
		{100 * time.Millisecond, 100},
	} {
		f.clock.Advance(step.wait)
		up, err := f.mgr.Analyze(context.Background(), id, legFrame(step.deg))
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		last = up
	}
	f.clock.Advance(2100 * time.Millisecond)
	return last
}

// TestStartUnknownExercise verifies the catalog error surfaces and nothing is registered.
func TestStartUnknownExercise(t *testing.T) {
	f := newFixture(t, 2, 1)
	_, err := f.mgr.Start(context.Background(), "not-a-real-exercise", "alice")
	if !errors.Is(err, exercise.ErrUnknownExercise) {
		t.Fatalf("err = %v, want ErrUnknownExercise", err)
	}
	if n := len(f.mgr.List()); n != 0 {
		t.Errorf("List has %d sessions, want 0", n)
	}
}

// TestSessionLifecycle covers start, frames, cached state, stop and persistence.
func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 2)

	info, err := f.mgr.Start(ctx, exercise.IDLegForward, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if info.ID == "" || !info.State.IsActive || info.State.Exercise != exercise.IDLegForward {
		t.Fatalf("info = %+v", info)
	}

	up := f.rep(t, info.ID)
	if up.Result == nil || !up.Result.ShouldCount {
		t.Fatalf("expected a counted rep, got %+v", up.Result)
	}
	if snap, err := f.cache.Get(ctx, info.ID); err != nil || snap.Info.State.Reps != 1 {
		t.Errorf("cached snapshot = %+v, %v", snap, err)
	}

	stats, err := f.mgr.Stop(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Repetitions != 1 || stats.CompletionRate != 10 {
		t.Errorf("stats = %+v", stats)
	}
	if len(f.recorder.rows) != 1 {
		t.Fatalf("recorded %d rows, want 1", len(f.recorder.rows))
	}
	row := f.recorder.rows[0]
	if row.ID.String() != info.ID || row.Patient != "alice" || row.Source != models.SourceLive {
		t.Errorf("row = %+v", row)
	}

	if _, err := f.mgr.Get(ctx, info.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after stop: err = %v, want ErrNotFound", err)
	}
	if _, err := f.mgr.Stop(ctx, info.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Stop: err = %v, want ErrNotFound", err)
	}
}

// TestCompletionStopsSession verifies the completing frame returns statistics.
func TestCompletionStopsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, 1)
	info, err := f.mgr.Start(ctx, exercise.IDLegForward, "bob")
	if err != nil {
		t.Fatal(err)
	}

	up := f.rep(t, info.ID)
	if up.Statistics == nil {
		t.Fatal("expected statistics on the completing frame")
	}
	if up.Result.Outcome != exercise.OutcomeComplete {
		t.Errorf("outcome = %q, want complete", up.Result.Outcome)
	}
	if len(f.recorder.rows) != 1 {
		t.Errorf("recorded %d rows, want 1", len(f.recorder.rows))
	}
	if _, err := f.mgr.Analyze(ctx, info.ID, legFrame(90)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Analyze after completion: err = %v, want ErrNotFound", err)
	}

	kinds := map[exercise.EventKind]int{}
	for _, ev := range f.notifier.events {
		kinds[ev.Kind]++
	}
	if kinds[exercise.EventRep] != 1 || kinds[exercise.EventComplete] != 1 {
		t.Errorf("notified %v", kinds)
	}
}

// TestStopReturnsStatsOnSaveError verifies persistence failures still return statistics.
func TestStopReturnsStatsOnSaveError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 1)
	f.recorder.err = errors.New("db down")
	info, _ := f.mgr.Start(ctx, exercise.IDLegForward, "carol")

	stats, err := f.mgr.Stop(ctx, info.ID)
	if err == nil {
		t.Fatal("expected an error")
	}
	if stats == nil {
		t.Fatal("expected statistics despite the error")
	}
}

// TestResetDiscards verifies reset removes the session without recording it.
func TestResetDiscards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 1)
	info, _ := f.mgr.Start(ctx, exercise.IDLegForward, "dave")
	f.rep(t, info.ID)

	if err := f.mgr.Reset(ctx, info.ID); err != nil {
		t.Fatal(err)
	}
	if len(f.recorder.rows) != 0 {
		t.Errorf("reset recorded %d rows", len(f.recorder.rows))
	}
	if _, err := f.cache.Get(ctx, info.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cache still holds the session: %v", err)
	}
	if err := f.mgr.Reset(ctx, info.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Reset: err = %v", err)
	}
}

// TestGetFallsBackToCache verifies sessions from other instances are visible.
func TestGetFallsBackToCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5, 1)
	remote := Info{ID: "remote-1", Patient: "erin", State: exercise.State{Exercise: exercise.IDNeckTilt, IsActive: true}}
	f.cache.Put(ctx, Snapshot{Info: remote})

	got, err := f.mgr.Get(ctx, "remote-1")
	if err != nil || got.Patient != "erin" {
		t.Errorf("Get = %+v, %v", got, err)
	}
}

// TestConcurrentSessions verifies independent sessions do not share counters.
func TestConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 1)
	a, _ := f.mgr.Start(ctx, exercise.IDLegForward, "a")
	b, _ := f.mgr.Start(ctx, exercise.IDLegForward, "b")

	f.rep(t, a.ID)
	f.rep(t, a.ID)
	f.rep(t, b.ID)

	ga, _ := f.mgr.Get(ctx, a.ID)
	gb, _ := f.mgr.Get(ctx, b.ID)
	if ga.State.Reps != 2 || gb.State.Reps != 1 {
		t.Errorf("reps a=%d b=%d, want 2 and 1", ga.State.Reps, gb.State.Reps)
	}

	f.mgr.Shutdown(ctx)
	if len(f.mgr.List()) != 0 || len(f.recorder.rows) != 2 {
		t.Errorf("after shutdown: %d running, %d recorded", len(f.mgr.List()), len(f.recorder.rows))
	}
}
