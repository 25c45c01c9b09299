package exercise

import (
	"math"
	"time"

	"github.com/claude/rehabreps/internal/pose"
)

// Forward arm raise thresholds, in degrees of elevation.
const (
	armRest      = 10.0
	armTarget    = 50.0
	armThreshold = 3.0
	armHoldRatio = 0.95
	armCountAt   = armRest + 5
)

var armLandmarks = []int{
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftElbow, pose.RightElbow,
	pose.LeftWrist, pose.RightWrist,
}

// measureArmRaise returns the elevation of the arm on side: 0 with the arm
// straight down, growing as it is raised forward.
func measureArmRaise(f pose.Frame, side Side) (float64, bool) {
	if !pose.Validate(f, armLandmarks) {
		return 0, false
	}
	shoulder, elbow, wrist := pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist
	if side == SideRight {
		shoulder, elbow, wrist = pose.RightShoulder, pose.RightElbow, pose.RightWrist
	}
	return math.Max(0, 180-f.JointAngle(shoulder, elbow, wrist)), true
}

func (t *Tracker) armRaise(f pose.Frame, now time.Time) *Result {
	angle, ok := measureArmRaise(f, t.side)
	if !ok {
		return t.invalid(msgInvalidArm)
	}

	loc := t.opts.Locale
	side := loc.side(t.side)
	total := t.leftCount + t.rightCount

	res := t.newResult(angle, armTarget)
	res.Accuracy = armAccuracy(t.phase, angle)
	if t.coolingDown(now, res) {
		return res
	}

	switch t.phase {
	case PhaseRest:
		if !t.readyAnnounced {
			t.readyAnnounced = true
			t.emit(EventReady, t.side, now)
		}
		if angle > armRest+armThreshold {
			t.phase = PhaseRaising
			res.Feedback = loc.format(msgArmRaising, side)
		} else {
			res.Feedback = loc.format(msgArmReady, side, total+1, t.targetReps)
		}

	case PhaseRaising:
		if angle >= armTarget*armHoldRatio {
			t.phase = PhaseHolding
			t.holdStart = now
			t.scheduleLowering()
			res.Feedback = loc.format(msgArmHoldStart, side)
		} else {
			progress := int(math.Round(angle / armTarget * 100))
			res.Feedback = loc.format(msgArmKeepRaising, side, progress)
		}

	case PhaseHolding:
		remaining := t.holdRemaining(t.opts.ArmHold, now)
		res.HoldRemaining = remaining
		if secs := int(math.Ceil(remaining)); secs > 0 {
			res.Feedback = loc.format(msgArmHolding, side, secs)
		} else {
			res.Feedback = loc.format(msgArmLower, side)
		}

	case PhaseLowering:
		if angle <= armCountAt {
			res.Outcome = t.completeSideRep(t.side, now)
			res.ShouldCount = true
			res.Feedback = loc.format(msgArmDone, side, total+1, t.targetReps)
		} else {
			res.Feedback = loc.format(msgArmLower, side)
		}
	}
	return res
}
