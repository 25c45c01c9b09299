package exercise

import (
	"math"
	"time"

	"github.com/claude/rehabreps/internal/pose"
)

// Seated knee extension thresholds, in degrees of knee angle.
const (
	legSitting       = 90.0
	legExtendAt      = legSitting + 20
	legExtension     = 165.0
	legHoldFloor     = legExtension - 5
	legCountAt       = legSitting + 15
	legDisplayTarget = 170.0
	legTolerance     = 10.0
)

var legLandmarks = []int{
	pose.LeftHip, pose.RightHip,
	pose.LeftKnee, pose.RightKnee,
	pose.LeftAnkle, pose.RightAnkle,
}

// measureLegExtension returns the straighter of the two knees.
func measureLegExtension(f pose.Frame) (float64, bool) {
	if !pose.Validate(f, legLandmarks) {
		return 0, false
	}
	left := f.JointAngle(pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	right := f.JointAngle(pose.RightHip, pose.RightKnee, pose.RightAnkle)
	return math.Max(left, right), true
}

func (t *Tracker) legExtension(f pose.Frame, now time.Time) *Result {
	angle, ok := measureLegExtension(f)
	if !ok {
		return t.invalid(msgInvalidLeg)
	}

	loc := t.opts.Locale
	res := t.newResult(angle, legDisplayTarget)
	res.Accuracy = Accuracy(angle, legDisplayTarget, legTolerance)
	if t.coolingDown(now, res) {
		return res
	}

	switch t.phase {
	case PhaseRest:
		switch {
		case angle > legExtendAt:
			t.phase = PhaseExtending
			res.Feedback = loc.format(msgLegExtending)
		case angle >= legSitting-10 && angle <= legSitting+10:
			res.Feedback = loc.format(msgLegReady, t.reps+1, t.targetReps)
		default:
			res.Feedback = loc.format(msgLegSit)
		}

	case PhaseExtending:
		if angle >= legExtension {
			t.phase = PhaseHolding
			t.holdStart = now
			res.Feedback = loc.format(msgLegHoldStart, int(t.opts.Hold.Seconds()))
		} else {
			res.Feedback = loc.format(msgLegKeepExtending, int(legExtension), int(math.Round(angle)))
		}

	case PhaseHolding:
		switch {
		case now.Sub(t.holdStart) >= t.opts.Hold:
			t.phase = PhaseFlexing
			res.Feedback = loc.format(msgLegFlex)
		case angle >= legHoldFloor:
			res.HoldRemaining = t.holdRemaining(t.opts.Hold, now)
			res.Feedback = loc.format(msgHoldRemaining, int(math.Ceil(res.HoldRemaining)))
		default:
			t.phase = PhaseExtending
			res.Feedback = loc.format(msgLegReextend)
		}

	case PhaseFlexing:
		if angle <= legCountAt {
			n := t.reps + 1
			res.Outcome = t.completeRepetition(now)
			res.ShouldCount = true
			res.Feedback = loc.format(msgRepDone, n, t.targetReps)
		} else {
			res.Feedback = loc.format(msgLegReturn)
		}
	}
	return res
}
