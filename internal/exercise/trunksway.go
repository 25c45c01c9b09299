package exercise

import (
	"math"
	"time"

	"github.com/claude/rehabreps/internal/pose"
)

// Trunk sway thresholds. The angle is a proxy: the horizontal offset between
// the shoulder and hip centres, scaled by 100 and capped.
const (
	swayRest          = 2.0
	swayTarget        = 15.0
	swayCap           = 30.0
	swayScale         = 100.0
	swayDisplayTarget = 20.0
	swayTolerance     = 8.0
	guideCentre       = 0.5
)

var trunkLandmarks = []int{
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftHip, pose.RightHip,
}

type swayMeasure struct {
	angle     float64
	shoulderX float64
}

func measureTrunkSway(f pose.Frame) (swayMeasure, bool) {
	if !pose.Validate(f, trunkLandmarks) {
		return swayMeasure{}, false
	}
	shoulders := f.Midpoint(pose.LeftShoulder, pose.RightShoulder)
	hips := f.Midpoint(pose.LeftHip, pose.RightHip)
	return swayMeasure{
		angle:     math.Min(swayCap, math.Abs(shoulders.X-hips.X)*swayScale),
		shoulderX: shoulders.X,
	}, true
}

func (t *Tracker) trunkSway(f pose.Frame, now time.Time) *Result {
	m, ok := measureTrunkSway(f)
	if !ok {
		return t.invalid(msgInvalidTrunk)
	}
	res := t.newResult(m.angle, swayDisplayTarget)
	res.Accuracy = Accuracy(m.angle, swayDisplayTarget, swayTolerance)
	if t.coolingDown(now, res) {
		return res
	}
	swayCycle.step(t, m.angle, now, res)
	return res
}

// trunkSwayGuides counts a lean as soon as the shoulder centre crosses a
// guide line at the frame centre plus or minus the guide offset. Leaning to
// the same side again only counts after coming back between the lines.
func (t *Tracker) trunkSwayGuides(f pose.Frame, now time.Time) *Result {
	m, ok := measureTrunkSway(f)
	if !ok {
		return t.invalid(msgInvalidTrunk)
	}

	loc := t.opts.Locale
	offset := t.opts.GuideOffset
	dist := math.Abs(m.shoulderX - guideCentre)

	res := t.newResult(m.angle, math.Round(offset*swayScale))
	res.Accuracy = math.Round(math.Min(100, dist/offset*100))

	var dir Side
	switch {
	case m.shoulderX <= guideCentre-offset:
		dir = SideLeft
	case m.shoulderX >= guideCentre+offset:
		dir = SideRight
	}
	res.Direction = dir

	if t.coolingDown(now, res) {
		return res
	}

	// A guide hit only counts after a return to the centre band.
	if dir != SideNone {
		if t.phase == PhaseRest {
			res.Outcome = t.completeRepetition(now)
			res.ShouldCount = true
			if !t.finished {
				t.phase = completedPhase(dir)
			}
			t.lastDirection = dir
			res.Feedback = loc.format(msgGuideHit, loc.side(dir))
		} else {
			res.Feedback = loc.format(msgGuideReturn, loc.side(dir))
		}
		return res
	}

	switch t.phase {
	case PhaseCompletedLeft, PhaseCompletedRight:
		t.phase = PhaseRest
		t.lastDirection = SideNone
		res.Feedback = loc.format(msgGuideReady)
	default:
		if m.shoulderX < guideCentre {
			res.Feedback = loc.format(msgGuideLeanMore, loc.side(SideLeft), int(res.Accuracy))
		} else if m.shoulderX > guideCentre {
			res.Feedback = loc.format(msgGuideLeanMore, loc.side(SideRight), int(res.Accuracy))
		} else {
			res.Feedback = loc.format(msgGuideReach)
		}
	}
	return res
}
