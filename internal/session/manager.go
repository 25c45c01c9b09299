// Package session runs concurrent exercise sessions, one tracker each, and
// routes their events and results to caches, notifiers and storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/rehabreps/internal/exercise"
	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/pose"
)

// ErrNotFound is returned for unknown or finished session ids.
var ErrNotFound = errors.New("session not found")

// Recorder persists finished sessions.
type Recorder interface {
	SaveSession(ctx context.Context, row models.SessionRow) error
}

// Info describes a running session.
type Info struct {
	ID        string         `json:"id"`
	Patient   string         `json:"patient"`
	StartedAt time.Time      `json:"started_at"`
	State     exercise.State `json:"state"`
}

// Update is what one frame produced. Statistics is set when the frame
// finished the session.
type Update struct {
	Result     *exercise.Result     `json:"result"`
	Statistics *exercise.Statistics `json:"statistics,omitempty"`
}

// Session is one patient performing one exercise.
type Session struct {
	ID        string
	Patient   string
	StartedAt time.Time

	// mu serializes frames; the tracker expects one at a time.
	mu      sync.Mutex
	tracker *exercise.Tracker
}

func (s *Session) info() Info {
	return Info{ID: s.ID, Patient: s.Patient, StartedAt: s.StartedAt, State: s.tracker.State()}
}

// Manager owns the running sessions.
type Manager struct {
	catalog  *exercise.Catalog
	opts     exercise.Options
	recorder Recorder
	cache    Cache
	notifier Notifier
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager. recorder, cache and notifier may be nil.
func NewManager(catalog *exercise.Catalog, opts exercise.Options, recorder Recorder, cache Cache, notifier Notifier, log *slog.Logger) *Manager {
	if cache == nil {
		cache = NopCache{}
	}
	if notifier == nil {
		notifier = Notifiers{}
	}
	return &Manager{
		catalog:  catalog,
		opts:     opts,
		recorder: recorder,
		cache:    cache,
		notifier: notifier,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Catalog returns the exercises sessions can be started with.
func (m *Manager) Catalog() *exercise.Catalog {
	return m.catalog
}

// Start begins a new session of exerciseID for patient.
func (m *Manager) Start(ctx context.Context, exerciseID, patient string) (Info, error) {
	s := &Session{ID: uuid.NewString(), Patient: patient}

	opts := m.opts
	forward := func(ev exercise.Event) {
		if err := m.notifier.Notify(s.ID, ev); err != nil {
			m.log.Warn("notify failed", "session", s.ID, "event", ev.Kind, "error", err)
		}
	}
	opts.Events = exercise.Events{OnReady: forward, OnRep: forward, OnSet: forward, OnComplete: forward}
	s.tracker = exercise.NewTracker(m.catalog, opts)
	if err := s.tracker.Start(exerciseID); err != nil {
		return Info{}, err
	}
	s.StartedAt = time.Now()

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	info := s.info()
	m.snapshot(ctx, info)
	m.log.Info("session started", "session", s.ID, "exercise", exerciseID, "patient", patient)
	return info, nil
}

// Get returns a running session. Sessions owned by another instance are
// served from the cache.
func (m *Manager) Get(ctx context.Context, id string) (Info, error) {
	if s, ok := m.lookup(id); ok {
		return s.info(), nil
	}
	snap, err := m.cache.Get(ctx, id)
	if err != nil {
		return Info{}, err
	}
	return snap.Info, nil
}

// List returns the running sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.info())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Analyze feeds one frame to a session. A frame that completes the session
// also stops it and returns its statistics.
func (m *Manager) Analyze(ctx context.Context, id string, f pose.Frame) (*Update, error) {
	s, ok := m.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.tracker.Analyze(f)
	up := &Update{Result: res}
	if res == nil {
		return up, nil
	}
	if res.Status == exercise.StatusInvalid {
		m.log.Debug("frame rejected", "session", id, "feedback", res.Feedback)
	}
	if res.Status == exercise.StatusComplete || res.Outcome == exercise.OutcomeComplete {
		stats, err := m.finish(ctx, s)
		up.Statistics = stats
		return up, err
	}
	m.snapshot(ctx, s.info())
	return up, nil
}

// Stop ends a session and persists its statistics. The statistics are
// returned even when persisting fails.
func (m *Manager) Stop(ctx context.Context, id string) (*exercise.Statistics, error) {
	s, ok := m.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return m.finish(ctx, s)
}

// Reset discards a session without recording it.
func (m *Manager) Reset(ctx context.Context, id string) error {
	s, ok := m.remove(id)
	if !ok {
		return ErrNotFound
	}
	s.mu.Lock()
	s.tracker.Reset()
	s.mu.Unlock()
	if err := m.cache.Delete(ctx, id); err != nil {
		m.log.Warn("cache delete failed", "session", id, "error", err)
	}
	m.log.Info("session reset", "session", id)
	return nil
}

// Shutdown stops every running session, persisting what was done so far.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, info := range m.List() {
		if _, err := m.Stop(ctx, info.ID); err != nil && !errors.Is(err, ErrNotFound) {
			m.log.Error("stopping session on shutdown", "session", info.ID, "error", err)
		}
	}
}

// finish stops the tracker, drops the session and records it. The caller
// holds s.mu.
func (m *Manager) finish(ctx context.Context, s *Session) (*exercise.Statistics, error) {
	m.remove(s.ID)
	stats := s.tracker.Stop()
	if stats == nil {
		return nil, ErrNotFound
	}
	if err := m.cache.Delete(ctx, s.ID); err != nil {
		m.log.Warn("cache delete failed", "session", s.ID, "error", err)
	}
	m.log.Info("session finished",
		"session", s.ID,
		"exercise", stats.Exercise,
		"reps", stats.Repetitions,
		"total_reps", stats.TotalRepetitions,
		"accuracy", stats.AverageAccuracy,
		"quality", stats.Quality,
	)

	if m.recorder == nil {
		return stats, nil
	}
	id, err := uuid.Parse(s.ID)
	if err != nil {
		return stats, fmt.Errorf("parsing session id: %w", err)
	}
	row := models.NewSessionRow(id, s.Patient, models.SourceLive, *stats)
	if err := m.recorder.SaveSession(ctx, row); err != nil {
		return stats, fmt.Errorf("saving session: %w", err)
	}
	return stats, nil
}

func (m *Manager) lookup(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) remove(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	return s, ok
}

func (m *Manager) snapshot(ctx context.Context, info Info) {
	snap := Snapshot{Info: info, UpdatedAt: time.Now()}
	if err := m.cache.Put(ctx, snap); err != nil {
		m.log.Warn("cache put failed", "session", info.ID, "error", err)
	}
}
