package exercise

import (
	"math"
	"testing"
	"time"

	"github.com/claude/rehabreps/internal/pose"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func vis(v float64) *float64 { return &v }

// baseFrame returns 33 visible landmarks parked at the frame centre.
func baseFrame() pose.Frame {
	lms := make([]pose.Landmark, pose.NumLandmarks)
	for i := range lms {
		lms[i] = pose.Landmark{X: 0.5, Y: 0.5, Visibility: vis(0.9)}
	}
	return pose.Frame{Landmarks: lms}
}

func set(f pose.Frame, i int, x, y float64) {
	f.Landmarks[i].X = x
	f.Landmarks[i].Y = y
}

// limb places c so that the angle a-b-c equals deg, with a directly above b.
func limb(f pose.Frame, a, b, c int, bx, by, length, deg float64) {
	set(f, a, bx, by-length)
	set(f, b, bx, by)
	rad := deg * math.Pi / 180
	set(f, c, bx+length*math.Sin(rad), by-length*math.Cos(rad))
}

// armFrame raises the arm on side to the given elevation; the other arm
// hangs straight down.
func armFrame(side Side, elevation float64) pose.Frame {
	f := baseFrame()
	left, right := 0.0, 0.0
	if side == SideLeft {
		left = elevation
	} else {
		right = elevation
	}
	limb(f, pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist, 0.6, 0.45, 0.15, 180-left)
	limb(f, pose.RightShoulder, pose.RightElbow, pose.RightWrist, 0.4, 0.45, 0.15, 180-right)
	return f
}

// legFrame bends both knees to deg.
func legFrame(deg float64) pose.Frame {
	f := baseFrame()
	limb(f, pose.LeftHip, pose.LeftKnee, pose.LeftAnkle, 0.55, 0.7, 0.2, deg)
	limb(f, pose.RightHip, pose.RightKnee, pose.RightAnkle, 0.45, 0.7, 0.2, deg)
	return f
}

// trunkFrame puts the shoulder centre at x with the hips centred.
func trunkFrame(x float64) pose.Frame {
	f := baseFrame()
	set(f, pose.LeftShoulder, x+0.1, 0.3)
	set(f, pose.RightShoulder, x-0.1, 0.3)
	set(f, pose.LeftHip, 0.6, 0.6)
	set(f, pose.RightHip, 0.4, 0.6)
	return f
}

// swayFrame produces a trunk sway proxy angle of deg.
func swayFrame(deg float64) pose.Frame {
	return trunkFrame(0.5 + deg/swayScale)
}

// earFrame raises the left ear by d relative to the right ear.
func earFrame(d float64) pose.Frame {
	f := baseFrame()
	set(f, pose.LeftEar, 0.55, 0.2-d/2)
	set(f, pose.RightEar, 0.45, 0.2+d/2)
	return f
}

type harness struct {
	t      *testing.T
	clock  *ManualClock
	tr     *Tracker
	events []Event
}

func newHarness(t *testing.T, targets map[string]Targets, mutate func(*Options)) *harness {
	t.Helper()
	cat := DefaultCatalog()
	if targets != nil {
		var err error
		cat, err = cat.WithTargets(targets)
		if err != nil {
			t.Fatalf("WithTargets: %v", err)
		}
	}
	h := &harness{t: t, clock: NewManualClock(epoch)}
	opts := DefaultOptions()
	opts.Clock = h.clock
	record := func(ev Event) { h.events = append(h.events, ev) }
	opts.Events = Events{OnReady: record, OnRep: record, OnSet: record, OnComplete: record}
	if mutate != nil {
		mutate(&opts)
	}
	h.tr = NewTracker(cat, opts)
	return h
}

func (h *harness) start(id string) {
	h.t.Helper()
	if err := h.tr.Start(id); err != nil {
		h.t.Fatalf("Start(%q): %v", id, err)
	}
}

// feed advances the clock by step and analyzes f.
func (h *harness) feed(step time.Duration, f pose.Frame) *Result {
	h.t.Helper()
	h.clock.Advance(step)
	res := h.tr.Analyze(f)
	if res == nil {
		h.t.Fatal("Analyze returned nil for an active session")
	}
	return res
}

func (h *harness) count(kind EventKind) int {
	n := 0
	for _, ev := range h.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

const tick = 100 * time.Millisecond

// legRep drives one full knee extension and waits out the cooldown.
func (h *harness) legRep() *Result {
	h.t.Helper()
	h.feed(tick, legFrame(90))
	h.feed(tick, legFrame(120))
	h.feed(tick, legFrame(170))
	h.feed(2100*time.Millisecond, legFrame(170))
	res := h.feed(tick, legFrame(100))
	h.clock.Advance(2100 * time.Millisecond)
	return res
}
