package exercise

import "math"

// Accuracy scores how close current is to target on a 0-100 scale. The score
// is 100 at the target and falls linearly to 0 at three tolerances away.
func Accuracy(current, target, tolerance float64) float64 {
	if tolerance <= 0 {
		if current == target {
			return 100
		}
		return 0
	}
	dist := math.Abs(current - target)
	score := 100 * (1 - dist/(3*tolerance))
	return math.Round(math.Max(0, score))
}

// armAccuracy ramps from 50 at rest toward 95 at the target while raising
// and back while lowering, following the phase the frame arrived in.
func armAccuracy(phase Phase, angle float64) float64 {
	span := armTarget - armRest
	acc := 50.0
	switch phase {
	case PhaseRaising:
		acc = math.Min(95, 50+(angle-armRest)/span*45)
	case PhaseLowering:
		acc = math.Min(95, 50+(armTarget-angle)/span*45)
	case PhaseHolding:
		acc = 95
	}
	return math.Max(0, math.Round(acc))
}
