package exercise

import (
	"math"
	"time"

	"github.com/claude/rehabreps/internal/pose"
)

// Neck tilt thresholds. The angle is a proxy: the vertical offset between
// the ears, scaled and capped.
const (
	tiltRest          = 2.0
	tiltTarget        = 15.0
	tiltCap           = 30.0
	tiltScale         = 150.0
	tiltDisplayTarget = 20.0
	tiltTolerance     = 5.0

	tiltImmediateCap     = 45.0
	tiltImmediateScale   = 200.0
	tiltImmediateCountAt = 20.0
	tiltImmediateResetAt = 5.0
)

var neckLandmarks = []int{pose.LeftEar, pose.RightEar}

type tiltMeasure struct {
	diff      float64
	direction Side
}

// measureNeckTilt returns the ear height difference and the tilt direction.
// A higher left ear (smaller y) is a tilt to the left.
func measureNeckTilt(f pose.Frame) (tiltMeasure, bool) {
	if !pose.Validate(f, neckLandmarks) {
		return tiltMeasure{}, false
	}
	left, right := f.At(pose.LeftEar), f.At(pose.RightEar)
	m := tiltMeasure{diff: math.Abs(left.Y - right.Y)}
	switch {
	case left.Y < right.Y:
		m.direction = SideLeft
	case left.Y > right.Y:
		m.direction = SideRight
	}
	return m, true
}

func (t *Tracker) neckTilt(f pose.Frame, now time.Time) *Result {
	m, ok := measureNeckTilt(f)
	if !ok {
		return t.invalid(msgInvalidHead)
	}
	angle := math.Min(tiltCap, m.diff*tiltScale)

	res := t.newResult(angle, tiltDisplayTarget)
	res.Accuracy = Accuracy(angle, tiltDisplayTarget, tiltTolerance)
	res.Direction = m.direction
	if t.coolingDown(now, res) {
		return res
	}

	prev := t.phase
	tiltCycle.step(t, angle, now, res)
	if prev == PhaseRest && t.phase == PhaseTilting {
		t.moveDirection = m.direction
	}
	if res.ShouldCount {
		t.lastDirection = t.moveDirection
	}
	return res
}

// neckTiltImmediate counts as soon as the tilt passes the threshold. A tilt
// counts if the head was centred before or it goes the other way from the
// last counted tilt; coming back near the centre clears the memory.
func (t *Tracker) neckTiltImmediate(f pose.Frame, now time.Time) *Result {
	m, ok := measureNeckTilt(f)
	if !ok {
		return t.invalid(msgInvalidHead)
	}
	loc := t.opts.Locale
	angle := math.Min(tiltImmediateCap, m.diff*tiltImmediateScale)

	res := t.newResult(angle, tiltImmediateCountAt)
	res.Accuracy = Accuracy(angle, tiltImmediateCountAt, tiltTolerance)
	res.Direction = m.direction
	if t.coolingDown(now, res) {
		return res
	}

	switch {
	case angle > tiltImmediateCountAt:
		dir := m.direction
		if t.phase == PhaseRest || t.lastDirection != dir {
			res.Outcome = t.completeRepetition(now)
			res.ShouldCount = true
			if !t.finished {
				t.phase = completedPhase(dir)
			}
			t.lastDirection = dir
			res.Feedback = loc.format(msgTiltHit, loc.side(dir))
		} else {
			res.Feedback = loc.format(msgTiltReturn, loc.side(dir))
		}
	case angle <= tiltImmediateResetAt:
		t.phase = PhaseRest
		t.lastDirection = SideNone
		res.Feedback = loc.format(msgTiltCentre)
	default:
		res.Feedback = loc.format(msgTilting)
	}
	return res
}
