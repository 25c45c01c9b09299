package exercise

// Phase is a named stage within one repetition's motion cycle.
type Phase string

const (
	PhaseRest           Phase = "rest"
	PhaseRaising        Phase = "raising"
	PhaseHolding        Phase = "holding"
	PhaseLowering       Phase = "lowering"
	PhaseExtending      Phase = "extending"
	PhaseFlexing        Phase = "flexing"
	PhaseSwaying        Phase = "swaying"
	PhaseTilting        Phase = "tilting"
	PhaseReturning      Phase = "returning"
	PhaseCompletedLeft  Phase = "completed-left"
	PhaseCompletedRight Phase = "completed-right"
)

// completedPhase returns the terminal phase for an immediate count toward side.
func completedPhase(s Side) Phase {
	if s == SideLeft {
		return PhaseCompletedLeft
	}
	return PhaseCompletedRight
}

// Status classifies an analysis result.
type Status string

const (
	StatusOK       Status = "ok"
	StatusInvalid  Status = "invalid"
	StatusUnknown  Status = "unknown"
	StatusComplete Status = "complete"
)

// Outcome is what a counted repetition did to the set.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeNewSet   Outcome = "new_set"
	OutcomeComplete Outcome = "complete"
)

// Side is a body side for bilateral and direction-tracking exercises.
type Side string

const (
	SideNone  Side = ""
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	}
	return SideNone
}

// Variant selects between the counting rules available for an exercise.
type Variant string

const (
	// VariantHoldReturn counts after reaching the target, holding, and
	// returning to the rest position.
	VariantHoldReturn Variant = "hold_return"
	// VariantGuideLines counts as soon as the shoulder centre crosses a guide
	// line (trunk sway only).
	VariantGuideLines Variant = "guide_lines"
	// VariantImmediate counts as soon as the tilt passes the threshold, with
	// direction memory instead of a hold (neck tilt only).
	VariantImmediate Variant = "immediate"
)

// Termination selects how a session ends.
type Termination string

const (
	TerminateReps     Termination = "reps"
	TerminateDuration Termination = "duration"
)
