package exercise

import (
	"math"
	"sync"
	"time"

	"github.com/claude/rehabreps/internal/pose"
)

// Options tune timing and counting rules for a Tracker.
type Options struct {
	Locale       Locale
	Cooldown     time.Duration
	ArmHold      time.Duration
	Hold         time.Duration
	Termination  Termination
	Window       time.Duration
	TrunkVariant Variant
	NeckVariant  Variant
	GuideOffset  float64

	// Clock defaults to SystemClock.
	Clock  Clock
	Events Events
}

// DefaultOptions returns the standard timing: a 2s cooldown after each
// counted repetition, a 1.5s arm hold and a 2s hold for the other exercises.
func DefaultOptions() Options {
	return Options{
		Locale:       LocaleEnglish,
		Cooldown:     2 * time.Second,
		ArmHold:      1500 * time.Millisecond,
		Hold:         2 * time.Second,
		Termination:  TerminateReps,
		TrunkVariant: VariantHoldReturn,
		NeckVariant:  VariantHoldReturn,
		GuideOffset:  0.15,
	}
}

// EventKind names a tracker side effect.
type EventKind string

const (
	EventReady    EventKind = "ready"
	EventRep      EventKind = "rep"
	EventSet      EventKind = "set"
	EventComplete EventKind = "complete"
)

// Event describes a ready cue, counted repetition, finished set or finished
// session.
type Event struct {
	Kind       EventKind `json:"kind"`
	Exercise   string    `json:"exercise"`
	Side       Side      `json:"side,omitempty"`
	Reps       int       `json:"reps"`
	TargetReps int       `json:"target_reps"`
	Set        int       `json:"set"`
	TargetSets int       `json:"target_sets"`
	At         time.Time `json:"at"`
}

// Events receives tracker side effects. Callbacks run after the tracker's
// lock is released, on the goroutine that called Analyze.
type Events struct {
	OnReady    func(Event)
	OnRep      func(Event)
	OnSet      func(Event)
	OnComplete func(Event)
}

func (e Events) dispatch(ev Event) {
	var fn func(Event)
	switch ev.Kind {
	case EventReady:
		fn = e.OnReady
	case EventRep:
		fn = e.OnRep
	case EventSet:
		fn = e.OnSet
	case EventComplete:
		fn = e.OnComplete
	}
	if fn != nil {
		fn(ev)
	}
}

// Result is the analysis of one frame.
type Result struct {
	Status        Status  `json:"status"`
	Exercise      string  `json:"exercise,omitempty"`
	CurrentAngle  float64 `json:"current_angle"`
	TargetAngle   float64 `json:"target_angle"`
	Accuracy      float64 `json:"accuracy"`
	Phase         Phase   `json:"phase,omitempty"`
	Feedback      string  `json:"feedback"`
	ShouldCount   bool    `json:"should_count"`
	Outcome       Outcome `json:"outcome,omitempty"`
	Reps          int     `json:"reps"`
	TargetReps    int     `json:"target_reps"`
	Set           int     `json:"set"`
	TargetSets    int     `json:"target_sets"`
	Side          Side    `json:"side,omitempty"`
	LeftCount     int     `json:"left_count,omitempty"`
	RightCount    int     `json:"right_count,omitempty"`
	Direction     Side    `json:"direction,omitempty"`
	HoldRemaining float64 `json:"hold_remaining,omitempty"`
	CoolingDown   bool    `json:"cooling_down,omitempty"`
}

// State is a snapshot of the tracker.
type State struct {
	Exercise     string  `json:"exercise"`
	ExerciseName string  `json:"exercise_name"`
	Phase        Phase   `json:"phase"`
	Reps         int     `json:"reps"`
	TargetReps   int     `json:"target_reps"`
	Set          int     `json:"set"`
	TargetSets   int     `json:"target_sets"`
	LastAngle    float64 `json:"last_angle"`
	IsActive     bool    `json:"is_active"`
	Finished     bool    `json:"finished"`
	Side         Side    `json:"side,omitempty"`
}

// Tracker runs one exercise session: it dispatches frames to the active
// exercise's analyzer, counts repetitions and sets, and keeps the angle and
// accuracy histories used for statistics.
type Tracker struct {
	catalog *Catalog
	opts    Options
	clock   Clock

	mu         sync.Mutex
	active     bool
	def        Definition
	phase      Phase
	reps       int
	totalReps  int
	set        int
	targetReps int
	targetSets int
	finished   bool

	startedAt     time.Time
	holdStart     time.Time
	cooldownUntil time.Time
	lastAngle     float64
	angles        *History
	accuracies    *History

	// bilateral arm raise
	side           Side
	leftCount      int
	rightCount     int
	readyAnnounced bool

	// trunk and neck direction memory
	moveDirection Side
	lastDirection Side

	gen      uint64
	deferred Timer
	pending  []Event
}

// NewTracker returns an idle tracker over catalog.
func NewTracker(catalog *Catalog, opts Options) *Tracker {
	def := DefaultOptions()
	if opts.Locale == "" {
		opts.Locale = def.Locale
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	if opts.ArmHold <= 0 {
		opts.ArmHold = def.ArmHold
	}
	if opts.Hold <= 0 {
		opts.Hold = def.Hold
	}
	if opts.Termination == "" {
		opts.Termination = def.Termination
	}
	if opts.TrunkVariant == "" {
		opts.TrunkVariant = def.TrunkVariant
	}
	if opts.NeckVariant == "" {
		opts.NeckVariant = def.NeckVariant
	}
	if opts.GuideOffset <= 0 {
		opts.GuideOffset = def.GuideOffset
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Tracker{
		catalog:    catalog,
		opts:       opts,
		clock:      clock,
		phase:      PhaseRest,
		angles:     NewHistory(HistoryCapacity),
		accuracies: NewHistory(HistoryCapacity),
	}
}

// Start begins a session for the exercise id, discarding any previous
// session. An unknown id leaves the tracker untouched.
func (t *Tracker) Start(id string) error {
	def, err := t.catalog.Lookup(id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.clear()
	t.active = true
	t.def = def
	t.targetReps = max(1, def.TargetReps)
	t.targetSets = max(1, def.TargetSets)
	t.set = 1
	t.side = SideLeft
	t.startedAt = t.clock.Now()
	return nil
}

// Analyze processes one frame. It returns nil when no session is active or
// the frame carries no landmarks.
func (t *Tracker) Analyze(f pose.Frame) *Result {
	t.mu.Lock()
	res := t.analyze(f)
	events := t.pending
	t.pending = nil
	t.mu.Unlock()

	for _, ev := range events {
		t.opts.Events.dispatch(ev)
	}
	return res
}

func (t *Tracker) analyze(f pose.Frame) *Result {
	if !t.active || f.Empty() {
		return nil
	}
	now := t.clock.Now()
	if t.finished {
		return t.completeResult()
	}
	if t.opts.Termination == TerminateDuration && t.opts.Window > 0 && now.Sub(t.startedAt) >= t.opts.Window {
		t.finish(now)
		return t.completeResult()
	}

	var res *Result
	switch t.def.Kind {
	case ArmRaise:
		res = t.armRaise(f, now)
	case LegExtension:
		res = t.legExtension(f, now)
	case TrunkSway:
		if t.opts.TrunkVariant == VariantGuideLines {
			res = t.trunkSwayGuides(f, now)
		} else {
			res = t.trunkSway(f, now)
		}
	case NeckTilt:
		if t.opts.NeckVariant == VariantImmediate {
			res = t.neckTiltImmediate(f, now)
		} else {
			res = t.neckTilt(f, now)
		}
	default:
		return &Result{
			Status:   StatusUnknown,
			Exercise: t.def.ID,
			Feedback: t.opts.Locale.format(msgUnsupported, t.def.ID),
		}
	}

	if res.Status == StatusOK {
		t.angles.Push(res.CurrentAngle, now)
		t.accuracies.Push(res.Accuracy, now)
		t.lastAngle = res.CurrentAngle
	}
	t.fill(res)
	return res
}

// State returns a snapshot of the current session.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := State{
		Phase:      t.phase,
		Reps:       t.reps,
		TargetReps: t.targetReps,
		Set:        t.set,
		TargetSets: t.targetSets,
		LastAngle:  t.lastAngle,
		IsActive:   t.active,
		Finished:   t.finished,
	}
	if t.active {
		s.Exercise = t.def.ID
		s.ExerciseName = t.def.Name
		if t.def.Bilateral {
			s.Side = t.side
		}
	}
	return s
}

// Stop ends the session and returns its statistics, or nil when nothing is
// active. The tracker is reset afterwards.
func (t *Tracker) Stop() *Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return nil
	}
	stats := t.statistics(t.clock.Now())
	t.clear()
	return stats
}

// Reset discards the session without producing statistics.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clear()
}

// clear returns the tracker to idle and invalidates any pending timer.
func (t *Tracker) clear() {
	t.cancelDeferred()
	t.active = false
	t.def = Definition{}
	t.phase = PhaseRest
	t.reps, t.totalReps, t.set = 0, 0, 0
	t.targetReps, t.targetSets = 0, 0
	t.finished = false
	t.startedAt = time.Time{}
	t.holdStart = time.Time{}
	t.cooldownUntil = time.Time{}
	t.lastAngle = 0
	t.angles.Clear()
	t.accuracies.Clear()
	t.resetSides()
	t.moveDirection, t.lastDirection = SideNone, SideNone
}

func (t *Tracker) resetSides() {
	t.side = SideLeft
	t.leftCount, t.rightCount = 0, 0
	t.readyAnnounced = false
}

func (t *Tracker) statistics(now time.Time) *Statistics {
	angles := t.angles.Values()
	accuracy := math.Round(mean(t.accuracies.Values()))
	completion := float64(t.reps) / float64(t.targetReps) * 100
	consistency := Consistency(angles)
	return &Statistics{
		Exercise:         t.def.ID,
		ExerciseName:     t.def.Name,
		Duration:         int(now.Sub(t.startedAt).Seconds()),
		Repetitions:      t.reps,
		TotalRepetitions: t.totalReps,
		TargetReps:       t.targetReps,
		Set:              t.set,
		TargetSets:       t.targetSets,
		CompletionRate:   completion,
		AverageAccuracy:  accuracy,
		AngleStatistics:  Describe(angles),
		Consistency:      consistency,
		Quality:          Grade(accuracy, completion, consistency),
		Timestamp:        t.startedAt,
		EndTime:          now,
	}
}

// completeRepetition counts one repetition and closes the set when the
// target is reached.
func (t *Tracker) completeRepetition(now time.Time) Outcome {
	t.reps++
	t.totalReps++
	t.phase = PhaseRest
	t.counted(now, SideNone)
	if t.reps >= t.targetReps {
		return t.completeSet(now)
	}
	return OutcomeNone
}

// completeSideRep counts one repetition of a bilateral exercise for side
// and switches to the other side.
func (t *Tracker) completeSideRep(side Side, now time.Time) Outcome {
	if side == SideLeft {
		t.leftCount++
	} else {
		t.rightCount++
	}
	total := t.leftCount + t.rightCount
	t.reps = total
	t.totalReps++
	t.counted(now, side)

	t.side = side.Opposite()
	t.phase = PhaseRest
	t.readyAnnounced = false
	if total >= t.targetReps {
		t.resetSides()
		return t.completeSet(now)
	}
	return OutcomeNone
}

// completeSet advances to the next set, or finishes the session when every
// set is done. Duration-limited sessions never finish here.
func (t *Tracker) completeSet(now time.Time) Outcome {
	if t.opts.Termination != TerminateDuration && t.set >= t.targetSets {
		t.phase = PhaseRest
		t.finish(now)
		return OutcomeComplete
	}
	t.set++
	t.reps = 0
	t.phase = PhaseRest
	t.emit(EventSet, SideNone, now)
	return OutcomeNewSet
}

func (t *Tracker) counted(now time.Time, side Side) {
	t.cooldownUntil = now.Add(t.opts.Cooldown)
	t.emit(EventRep, side, now)
}

func (t *Tracker) finish(now time.Time) {
	t.cancelDeferred()
	t.finished = true
	t.emit(EventComplete, SideNone, now)
}

func (t *Tracker) emit(kind EventKind, side Side, now time.Time) {
	t.pending = append(t.pending, Event{
		Kind:       kind,
		Exercise:   t.def.ID,
		Side:       side,
		Reps:       t.reps,
		TargetReps: t.targetReps,
		Set:        t.set,
		TargetSets: t.targetSets,
		At:         now,
	})
}

// coolingDown reports whether counting is paused after a repetition. Frames
// in this window are still measured and recorded but cause no transitions.
func (t *Tracker) coolingDown(now time.Time, res *Result) bool {
	if !now.Before(t.cooldownUntil) {
		return false
	}
	res.CoolingDown = true
	res.Feedback = t.opts.Locale.format(msgCooldown)
	return true
}

// holdRemaining returns the seconds left on a hold of d started at holdStart.
func (t *Tracker) holdRemaining(d time.Duration, now time.Time) float64 {
	left := d - now.Sub(t.holdStart)
	if left < 0 {
		return 0
	}
	return left.Seconds()
}

// scheduleLowering moves a held arm raise into lowering after the arm hold.
// A reset, stop or new start in the meantime turns the callback into a no-op.
func (t *Tracker) scheduleLowering() {
	t.cancelDeferred()
	gen := t.gen
	t.deferred = t.clock.AfterFunc(t.opts.ArmHold, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if gen != t.gen || !t.active || t.phase != PhaseHolding {
			return
		}
		t.phase = PhaseLowering
		t.deferred = nil
	})
}

func (t *Tracker) cancelDeferred() {
	t.gen++
	if t.deferred != nil {
		t.deferred.Stop()
		t.deferred = nil
	}
}

func (t *Tracker) newResult(angle, target float64) *Result {
	return &Result{
		Status:       StatusOK,
		CurrentAngle: math.Round(angle),
		TargetAngle:  target,
	}
}

func (t *Tracker) invalid(key msgKey) *Result {
	return &Result{
		Status:   StatusInvalid,
		Feedback: t.opts.Locale.format(key),
	}
}

func (t *Tracker) completeResult() *Result {
	res := &Result{
		Status:       StatusComplete,
		CurrentAngle: t.lastAngle,
		Feedback:     t.opts.Locale.format(msgComplete),
		Outcome:      OutcomeComplete,
	}
	t.fill(res)
	return res
}

// fill copies the counters and phase after the frame's transitions.
func (t *Tracker) fill(res *Result) {
	res.Exercise = t.def.ID
	res.Phase = t.phase
	res.Reps = t.reps
	res.TargetReps = t.targetReps
	res.Set = t.set
	res.TargetSets = t.targetSets
	if t.def.Bilateral {
		res.Side = t.side
		res.LeftCount = t.leftCount
		res.RightCount = t.rightCount
	}
}
