package exercise

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/claude/rehabreps/internal/pose"
)

// TestAnalyzeInactive verifies nil results without a session or landmarks.
func TestAnalyzeInactive(t *testing.T) {
	h := newHarness(t, nil, nil)
	if res := h.tr.Analyze(legFrame(90)); res != nil {
		t.Errorf("expected nil without a session, got %+v", res)
	}
	h.start(IDLegForward)
	if res := h.tr.Analyze(pose.Frame{}); res != nil {
		t.Errorf("expected nil for an empty frame, got %+v", res)
	}
	if s := h.tr.Stop(); s == nil {
		t.Fatal("expected statistics for an active session")
	}
	if s := h.tr.Stop(); s != nil {
		t.Errorf("expected nil statistics after stop, got %+v", s)
	}
}

// TestStartUnknownExercise verifies a bad id fails without touching the running session.
func TestStartUnknownExercise(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDLegForward)
	h.legRep()
	before := h.tr.State()

	err := h.tr.Start("not-a-real-exercise")
	if !errors.Is(err, ErrUnknownExercise) {
		t.Fatalf("Start error = %v, want ErrUnknownExercise", err)
	}
	if after := h.tr.State(); after != before {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
}

// TestArmRaiseAlternatesSides runs the left-side raise, hold and lower cycle.
func TestArmRaiseAlternatesSides(t *testing.T) {
	h := newHarness(t, map[string]Targets{IDArmRaiseForward: {Reps: 2}}, nil)
	h.start(IDArmRaiseForward)

	steps := []struct {
		elevation float64
		wait      time.Duration
		phase     Phase
	}{
		{5, tick, PhaseRest},
		{20, tick, PhaseRaising},
		{45, tick, PhaseRaising},
		{52, tick, PhaseHolding},
		{52, 800 * time.Millisecond, PhaseHolding},
		{52, 800 * time.Millisecond, PhaseLowering},
	}
	for i, st := range steps {
		res := h.feed(st.wait, armFrame(SideLeft, st.elevation))
		if res.Status != StatusOK {
			t.Fatalf("step %d: status %s", i, res.Status)
		}
		if res.Phase != st.phase {
			t.Fatalf("step %d (%.0f°): phase %s, want %s", i, st.elevation, res.Phase, st.phase)
		}
	}

	counted := 0
	for _, e := range []float64{15, 5} {
		if res := h.feed(tick, armFrame(SideLeft, e)); res.ShouldCount {
			counted++
			if res.LeftCount != 1 || res.RightCount != 0 {
				t.Errorf("side counts = %d/%d, want 1/0", res.LeftCount, res.RightCount)
			}
		}
	}
	if counted != 1 {
		t.Fatalf("counted %d reps, want 1", counted)
	}

	s := h.tr.State()
	if s.Reps != 1 || s.Phase != PhaseRest || s.Side != SideRight {
		t.Errorf("state = %+v, want 1 rep, rest, right side", s)
	}
	if h.count(EventReady) != 1 || h.count(EventRep) != 1 {
		t.Errorf("events = %+v", h.events)
	}
}

// TestArmRaiseTimerIgnoredAfterReset verifies a stale lowering timer does nothing.
func TestArmRaiseTimerIgnoredAfterReset(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDArmRaiseForward)
	h.feed(tick, armFrame(SideLeft, 20))
	if res := h.feed(tick, armFrame(SideLeft, 52)); res.Phase != PhaseHolding {
		t.Fatalf("phase = %s, want holding", res.Phase)
	}

	h.tr.Reset()
	h.start(IDArmRaiseForward)
	h.feed(tick, armFrame(SideLeft, 20))
	h.feed(tick, armFrame(SideLeft, 52))

	// The first timer would have fired here.
	h.clock.Advance(1300 * time.Millisecond)
	if s := h.tr.State(); s.Phase != PhaseHolding {
		t.Fatalf("phase = %s after stale timer, want holding", s.Phase)
	}
	h.clock.Advance(300 * time.Millisecond)
	if s := h.tr.State(); s.Phase != PhaseLowering {
		t.Fatalf("phase = %s after current timer, want lowering", s.Phase)
	}
}

// TestArmRaiseTimerRechecksPhase verifies the lowering timer only acts while holding.
func TestArmRaiseTimerRechecksPhase(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDArmRaiseForward)
	h.feed(tick, armFrame(SideLeft, 20))
	h.feed(tick, armFrame(SideLeft, 52))

	h.tr.mu.Lock()
	h.tr.phase = PhaseRaising
	h.tr.mu.Unlock()

	h.clock.Advance(2 * time.Second)
	if s := h.tr.State(); s.Phase != PhaseRaising {
		t.Errorf("phase = %s, want raising", s.Phase)
	}
}

// TestInvalidFrameDoesNotMutate verifies missing landmarks leave state and history alone.
func TestInvalidFrameDoesNotMutate(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDArmRaiseForward)
	h.feed(tick, armFrame(SideLeft, 20))
	before := h.tr.State()
	samples := h.tr.angles.Len()

	f := armFrame(SideLeft, 60)
	f.Landmarks = f.Landmarks[:pose.LeftWrist]
	res := h.feed(tick, f)
	if res.Status != StatusInvalid {
		t.Fatalf("status = %s, want invalid", res.Status)
	}
	if res.Feedback == "" {
		t.Error("expected corrective feedback")
	}
	if after := h.tr.State(); after != before {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
	if h.tr.angles.Len() != samples {
		t.Errorf("history grew from %d to %d", samples, h.tr.angles.Len())
	}

	low := armFrame(SideLeft, 60)
	low.Landmarks[pose.RightElbow].Visibility = vis(0.3)
	if res := h.feed(tick, low); res.Status != StatusInvalid {
		t.Errorf("low visibility: status = %s, want invalid", res.Status)
	}
}

// TestNullLandmarkIsInvalid verifies a frame decoded from JSON with a null
// wrist is rejected without moving the state machine.
func TestNullLandmarkIsInvalid(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDArmRaiseForward)
	h.feed(tick, armFrame(SideLeft, 20))
	before := h.tr.State()
	samples := h.tr.angles.Len()

	data, err := json.Marshal(armFrame(SideLeft, 60).Landmarks)
	if err != nil {
		t.Fatal(err)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	entries[pose.LeftWrist] = json.RawMessage(`null`)
	entries[pose.RightWrist] = json.RawMessage(`{"visibility":0.9}`)
	data, _ = json.Marshal(map[string]any{"landmarks": entries})

	var f pose.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatal(err)
	}
	res := h.feed(tick, f)
	if res.Status != StatusInvalid {
		t.Fatalf("status = %s, want invalid", res.Status)
	}
	if after := h.tr.State(); after != before {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
	if h.tr.angles.Len() != samples {
		t.Errorf("history grew from %d to %d", samples, h.tr.angles.Len())
	}
}

// TestStopMidSession verifies statistics after 3 of 10 reps.
func TestStopMidSession(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDLegForward)
	for range 3 {
		if res := h.legRep(); !res.ShouldCount {
			t.Fatalf("expected rep to count, got %+v", res)
		}
	}

	stats := h.tr.Stop()
	if stats == nil {
		t.Fatal("expected statistics")
	}
	if stats.Repetitions != 3 {
		t.Errorf("Repetitions = %d, want 3", stats.Repetitions)
	}
	if stats.CompletionRate != 30 {
		t.Errorf("CompletionRate = %v, want 30", stats.CompletionRate)
	}
	if stats.Exercise != IDLegForward || stats.TargetReps != 10 {
		t.Errorf("unexpected stats header: %+v", stats)
	}
	if stats.Duration <= 0 {
		t.Errorf("Duration = %d, want > 0", stats.Duration)
	}
	if stats.AngleStatistics.Count != 15 {
		t.Errorf("angle samples = %d, want 15", stats.AngleStatistics.Count)
	}
	if h.tr.State().IsActive {
		t.Error("expected inactive tracker after stop")
	}
}

// TestCooldownSuppressesTransitions verifies frames right after a rep are measured only.
func TestCooldownSuppressesTransitions(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDLegForward)
	h.feed(tick, legFrame(90))
	h.feed(tick, legFrame(120))
	h.feed(tick, legFrame(170))
	h.feed(2100*time.Millisecond, legFrame(170))
	if res := h.feed(tick, legFrame(100)); !res.ShouldCount {
		t.Fatal("expected the rep to count")
	}

	for range 5 {
		res := h.feed(tick, legFrame(170))
		if !res.CoolingDown || res.Phase != PhaseRest || res.Reps != 1 {
			t.Fatalf("during cooldown got %+v", res)
		}
		if res.CurrentAngle != 170 {
			t.Errorf("CurrentAngle = %v, want 170", res.CurrentAngle)
		}
	}

	h.clock.Advance(2 * time.Second)
	if res := h.feed(tick, legFrame(170)); res.Phase != PhaseExtending {
		t.Errorf("phase after cooldown = %s, want extending", res.Phase)
	}
}

// TestLegHoldFallsBack verifies dropping below the hold floor restarts extension.
func TestLegHoldFallsBack(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDLegForward)
	h.feed(tick, legFrame(120))
	h.feed(tick, legFrame(168))
	if res := h.feed(tick, legFrame(162)); res.Phase != PhaseHolding || res.HoldRemaining <= 0 {
		t.Fatalf("expected to keep holding, got %+v", res)
	}
	if res := h.feed(tick, legFrame(150)); res.Phase != PhaseExtending {
		t.Errorf("phase = %s, want extending", res.Phase)
	}
}

// TestSetsAndCompletion verifies new_set and complete outcomes and the events they raise.
func TestSetsAndCompletion(t *testing.T) {
	h := newHarness(t, map[string]Targets{IDLegForward: {Reps: 2, Sets: 2}}, nil)
	h.start(IDLegForward)

	want := []Outcome{OutcomeNone, OutcomeNewSet, OutcomeNone, OutcomeComplete}
	for i, w := range want {
		res := h.legRep()
		if res.Outcome != w {
			t.Fatalf("rep %d: outcome %q, want %q", i+1, res.Outcome, w)
		}
		if res.Reps > res.TargetReps {
			t.Fatalf("rep %d: reps %d above target %d", i+1, res.Reps, res.TargetReps)
		}
	}

	if h.count(EventRep) != 4 || h.count(EventSet) != 1 || h.count(EventComplete) != 1 {
		t.Errorf("events = %+v", h.events)
	}

	res := h.feed(tick, legFrame(170))
	if res.Status != StatusComplete {
		t.Errorf("status after completion = %s, want complete", res.Status)
	}
	s := h.tr.State()
	if !s.Finished || s.Reps != 2 || s.Set != 2 {
		t.Errorf("final state = %+v", s)
	}

	stats := h.tr.Stop()
	if stats.TotalRepetitions != 4 || stats.CompletionRate != 100 {
		t.Errorf("stats = %+v", stats)
	}
}

// TestDurationTermination verifies a session ends when its time window elapses.
func TestDurationTermination(t *testing.T) {
	h := newHarness(t, map[string]Targets{IDLegForward: {Reps: 1, Sets: 1}}, func(o *Options) {
		o.Termination = TerminateDuration
		o.Window = 30 * time.Second
	})
	h.start(IDLegForward)

	// Reaching the rep target only opens a new set.
	if res := h.legRep(); res.Outcome != OutcomeNewSet {
		t.Fatalf("outcome = %q, want new_set", res.Outcome)
	}

	h.clock.Advance(30 * time.Second)
	res := h.feed(tick, legFrame(90))
	if res.Status != StatusComplete || !h.tr.State().Finished {
		t.Errorf("expected completion after the window, got %+v", res)
	}
	if h.count(EventComplete) != 1 {
		t.Errorf("complete events = %d, want 1", h.count(EventComplete))
	}
}

// TestTrunkSwayHoldReturn runs the sway, hold and return cycle.
func TestTrunkSwayHoldReturn(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDTrunkSway)

	steps := []struct {
		deg   float64
		wait  time.Duration
		phase Phase
	}{
		{0, tick, PhaseRest},
		{10, tick, PhaseSwaying},
		{16, tick, PhaseHolding},
		{10, tick, PhaseSwaying},
		{16, tick, PhaseHolding},
		{16, 2100 * time.Millisecond, PhaseReturning},
		{8, tick, PhaseReturning},
		{2, tick, PhaseRest},
	}
	for i, st := range steps {
		res := h.feed(st.wait, swayFrame(st.deg))
		if res.Phase != st.phase {
			t.Fatalf("step %d (%.0f°): phase %s, want %s", i, st.deg, res.Phase, st.phase)
		}
		if i == len(steps)-1 && !res.ShouldCount {
			t.Fatal("expected the return to count")
		}
	}
	if s := h.tr.State(); s.Reps != 1 {
		t.Errorf("reps = %d, want 1", s.Reps)
	}
}

// TestTrunkSwayGuides verifies a guide hit only counts after returning to the centre.
func TestTrunkSwayGuides(t *testing.T) {
	h := newHarness(t, nil, func(o *Options) { o.TrunkVariant = VariantGuideLines })
	h.start(IDTrunkSway)
	wait := 2100 * time.Millisecond

	steps := []struct {
		x     float64
		count bool
		phase Phase
	}{
		{0.5, false, PhaseRest},
		{0.3, true, PhaseCompletedLeft},
		{0.3, false, PhaseCompletedLeft},
		{0.7, false, PhaseCompletedLeft},
		{0.5, false, PhaseRest},
		{0.7, true, PhaseCompletedRight},
	}
	for i, st := range steps {
		res := h.feed(wait, trunkFrame(st.x))
		if res.ShouldCount != st.count || res.Phase != st.phase {
			t.Fatalf("step %d (x=%.2f): count=%v phase=%s, want count=%v phase=%s",
				i, st.x, res.ShouldCount, res.Phase, st.count, st.phase)
		}
		if i == 3 && res.Feedback == "" {
			t.Error("crossing to the other guide without centring should ask to return")
		}
	}
	if s := h.tr.State(); s.Reps != 2 {
		t.Errorf("reps = %d, want 2", s.Reps)
	}
}

// TestNeckTiltImmediate verifies one count per tilt direction until the head recentres.
func TestNeckTiltImmediate(t *testing.T) {
	h := newHarness(t, nil, func(o *Options) { o.NeckVariant = VariantImmediate })
	h.start(IDNeckTilt)
	wait := 2100 * time.Millisecond

	steps := []struct {
		d     float64
		count bool
		dir   Side
	}{
		{0.15, true, SideLeft},
		{0.15, false, SideLeft},
		{0.15, false, SideLeft},
		{-0.15, true, SideRight},
		{0, false, SideNone},
		{-0.15, true, SideRight},
		{0.05, false, SideLeft},
	}
	for i, st := range steps {
		res := h.feed(wait, earFrame(st.d))
		if res.ShouldCount != st.count || res.Direction != st.dir {
			t.Fatalf("step %d: count=%v dir=%q, want count=%v dir=%q",
				i, res.ShouldCount, res.Direction, st.count, st.dir)
		}
	}
	if s := h.tr.State(); s.Reps != 3 {
		t.Errorf("reps = %d, want 3", s.Reps)
	}
}

// TestNeckTiltHoldReturn verifies the hold cycle and that the tilt direction is remembered.
func TestNeckTiltHoldReturn(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(IDNeckTilt)

	h.feed(tick, earFrame(0))
	if res := h.feed(tick, earFrame(-0.05)); res.Phase != PhaseTilting || res.Direction != SideRight {
		t.Fatalf("expected tilting right, got %+v", res)
	}
	h.feed(tick, earFrame(-0.11))
	h.feed(2100*time.Millisecond, earFrame(-0.11))
	res := h.feed(tick, earFrame(0))
	if !res.ShouldCount {
		t.Fatalf("expected a count, got %+v", res)
	}
	if h.tr.lastDirection != SideRight {
		t.Errorf("lastDirection = %q, want right", h.tr.lastDirection)
	}
}

// TestEventsRunOutsideLock verifies callbacks may query the tracker.
func TestEventsRunOutsideLock(t *testing.T) {
	var seen State
	h := newHarness(t, nil, nil)
	h.tr.opts.Events.OnRep = func(Event) { seen = h.tr.State() }
	h.start(IDLegForward)
	h.legRep()
	if seen.Reps != 1 {
		t.Errorf("state seen from callback = %+v", seen)
	}
}

// TestThaiFeedback verifies the locale switch.
func TestThaiFeedback(t *testing.T) {
	h := newHarness(t, nil, func(o *Options) { o.Locale = LocaleThai })
	h.start(IDLegForward)
	res := h.feed(tick, legFrame(90))
	if res.Feedback != "ท่านั่งดี! เตรียมเหยียดเข่า (ครั้งที่ 1/10)" {
		t.Errorf("Feedback = %q", res.Feedback)
	}
}

// TestUnknownKind verifies dispatch on a definition without an analyzer.
func TestUnknownKind(t *testing.T) {
	cat := NewCatalog([]Definition{{ID: "wall-push", Name: "Wall push", TargetReps: 5, TargetSets: 1}})
	opts := DefaultOptions()
	opts.Clock = NewManualClock(epoch)
	tr := NewTracker(cat, opts)
	if err := tr.Start("wall-push"); err != nil {
		t.Fatal(err)
	}
	res := tr.Analyze(baseFrame())
	if res == nil || res.Status != StatusUnknown {
		t.Fatalf("got %+v, want unknown status", res)
	}
}
