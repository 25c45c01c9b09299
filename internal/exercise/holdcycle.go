package exercise

import (
	"math"
	"time"
)

// holdCycle is the rest, move, hold, return cycle shared by trunk sway and
// neck tilt.
type holdCycle struct {
	enterAbove float64
	target     float64
	holdFloor  float64
	countAt    float64
	moving     Phase

	ready, move, keep, holdStart, reach msgKey
}

var swayCycle = holdCycle{
	enterAbove: swayRest + 3,
	target:     swayTarget,
	holdFloor:  swayTarget - 3,
	countAt:    swayRest + 1,
	moving:     PhaseSwaying,
	ready:      msgSwayReady,
	move:       msgSwaying,
	keep:       msgSwayKeep,
	holdStart:  msgSwayHoldStart,
	reach:      msgSwayReach,
}

var tiltCycle = holdCycle{
	enterAbove: tiltRest + 2,
	target:     tiltTarget,
	holdFloor:  tiltTarget - 2,
	countAt:    tiltRest + 1,
	moving:     PhaseTilting,
	ready:      msgTiltReady,
	move:       msgTilting,
	keep:       msgTiltKeep,
	holdStart:  msgTiltHoldStart,
	reach:      msgTiltReach,
}

// step advances the cycle for one measured angle.
func (c holdCycle) step(t *Tracker, angle float64, now time.Time, res *Result) {
	loc := t.opts.Locale
	switch t.phase {
	case PhaseRest:
		if angle > c.enterAbove {
			t.phase = c.moving
			res.Feedback = loc.format(c.move)
		} else {
			res.Feedback = loc.format(c.ready, t.reps+1, t.targetReps)
		}

	case c.moving:
		if angle >= c.target {
			t.phase = PhaseHolding
			t.holdStart = now
			res.Feedback = loc.format(c.holdStart, int(t.opts.Hold.Seconds()))
		} else {
			res.Feedback = loc.format(c.keep, int(c.target), int(math.Round(angle)))
		}

	case PhaseHolding:
		switch {
		case now.Sub(t.holdStart) >= t.opts.Hold:
			t.phase = PhaseReturning
			res.Feedback = loc.format(msgUpright)
		case angle >= c.holdFloor:
			res.HoldRemaining = t.holdRemaining(t.opts.Hold, now)
			res.Feedback = loc.format(msgHoldRemaining, int(math.Ceil(res.HoldRemaining)))
		default:
			t.phase = c.moving
			res.Feedback = loc.format(c.reach)
		}

	case PhaseReturning:
		if angle <= c.countAt {
			n := t.reps + 1
			res.Outcome = t.completeRepetition(now)
			res.ShouldCount = true
			res.Feedback = loc.format(msgRepDone, n, t.targetReps)
		} else {
			res.Feedback = loc.format(msgReturnSlowly)
		}

	default:
		// Left over from another variant; start a fresh cycle.
		t.phase = PhaseRest
		res.Feedback = loc.format(c.ready, t.reps+1, t.targetReps)
	}
}
