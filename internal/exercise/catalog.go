// Package exercise turns a stream of pose frames into phase transitions,
// repetition counts and accuracy scores for the supported rehabilitation
// exercises.
package exercise

import (
	"errors"
	"fmt"
	"sort"

	"github.com/claude/rehabreps/internal/pose"
)

// ErrUnknownExercise is returned when an exercise id is not in the catalog.
var ErrUnknownExercise = errors.New("unknown exercise")

// Kind identifies one of the supported exercise families.
type Kind int

const (
	ArmRaise Kind = iota + 1
	LegExtension
	TrunkSway
	NeckTilt
)

// Exercise identifiers as used by clients and storage.
const (
	IDArmRaiseForward = "arm-raise-forward"
	IDLegForward      = "leg-forward"
	IDTrunkSway       = "trunk-sway"
	IDNeckTilt        = "neck-tilt"
)

func (k Kind) String() string {
	switch k {
	case ArmRaise:
		return IDArmRaiseForward
	case LegExtension:
		return IDLegForward
	case TrunkSway:
		return IDTrunkSway
	case NeckTilt:
		return IDNeckTilt
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Phases lists the phases a kind moves through, in cycle order.
func (k Kind) Phases() []Phase {
	switch k {
	case ArmRaise:
		return []Phase{PhaseRest, PhaseRaising, PhaseHolding, PhaseLowering}
	case LegExtension:
		return []Phase{PhaseRest, PhaseExtending, PhaseHolding, PhaseFlexing}
	case TrunkSway:
		return []Phase{PhaseRest, PhaseSwaying, PhaseHolding, PhaseReturning, PhaseCompletedLeft, PhaseCompletedRight}
	case NeckTilt:
		return []Phase{PhaseRest, PhaseTilting, PhaseHolding, PhaseReturning, PhaseCompletedLeft, PhaseCompletedRight}
	}
	return nil
}

// Definition is the static configuration of one exercise.
type Definition struct {
	ID               string     `json:"id"`
	Kind             Kind       `json:"-"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Landmarks        []int      `json:"landmarks"`
	TargetReps       int        `json:"target_reps"`
	TargetSets       int        `json:"target_sets"`
	TargetAngleRange [2]float64 `json:"target_angle_range"`
	PrimaryJoints    []string   `json:"primary_joints"`
	Difficulty       string     `json:"difficulty"`
	Bilateral        bool       `json:"bilateral"`
}

// Catalog is an immutable set of exercise definitions keyed by id.
type Catalog struct {
	defs map[string]Definition
}

// DefaultCatalog returns the built-in exercises.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultDefinitions())
}

// NewCatalog builds a catalog from the given definitions.
func NewCatalog(defs []Definition) *Catalog {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		c.defs[d.ID] = d
	}
	return c
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id string) (Definition, error) {
	d, ok := c.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownExercise, id)
	}
	return d, nil
}

// All returns every definition sorted by id.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WithTargets returns a copy of the catalog where the given exercises use
// different rep/set targets. Zero values keep the default.
func (c *Catalog) WithTargets(targets map[string]Targets) (*Catalog, error) {
	defs := c.All()
	for id := range targets {
		if _, ok := c.defs[id]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, id)
		}
	}
	for i, d := range defs {
		t, ok := targets[d.ID]
		if !ok {
			continue
		}
		if t.Reps > 0 {
			defs[i].TargetReps = t.Reps
		}
		if t.Sets > 0 {
			defs[i].TargetSets = t.Sets
		}
	}
	return NewCatalog(defs), nil
}

// Targets overrides rep/set goals for one exercise.
type Targets struct {
	Reps int `yaml:"reps" json:"reps"`
	Sets int `yaml:"sets" json:"sets"`
}

func defaultDefinitions() []Definition {
	return []Definition{
		{
			ID:          IDArmRaiseForward,
			Kind:        ArmRaise,
			Name:        "Forward arm raise",
			Description: "Raise each arm forward, alternating sides",
			Landmarks: []int{
				pose.LeftShoulder, pose.RightShoulder,
				pose.LeftElbow, pose.RightElbow,
				pose.LeftWrist, pose.RightWrist,
			},
			TargetReps:       10,
			TargetSets:       2,
			TargetAngleRange: [2]float64{0, 90},
			PrimaryJoints:    []string{"shoulder", "elbow"},
			Difficulty:       "easy",
			Bilateral:        true,
		},
		{
			ID:          IDLegForward,
			Kind:        LegExtension,
			Name:        "Seated knee extension",
			Description: "Straighten the knee from a seated position",
			Landmarks: []int{
				pose.LeftHip, pose.RightHip,
				pose.LeftKnee, pose.RightKnee,
				pose.LeftAnkle, pose.RightAnkle,
			},
			TargetReps:       10,
			TargetSets:       2,
			TargetAngleRange: [2]float64{90, 170},
			PrimaryJoints:    []string{"knee", "hip"},
			Difficulty:       "medium",
		},
		{
			ID:          IDTrunkSway,
			Kind:        TrunkSway,
			Name:        "Trunk sway",
			Description: "Lean the trunk left and right, alternating sides",
			Landmarks: []int{
				pose.LeftShoulder, pose.RightShoulder,
				pose.LeftHip, pose.RightHip,
			},
			TargetReps:       10,
			TargetSets:       2,
			TargetAngleRange: [2]float64{0, 30},
			PrimaryJoints:    []string{"trunk"},
			Difficulty:       "easy",
		},
		{
			ID:               IDNeckTilt,
			Kind:             NeckTilt,
			Name:             "Neck tilt",
			Description:      "Tilt the head left and right, alternating sides",
			Landmarks:        []int{pose.LeftEar, pose.RightEar},
			TargetReps:       10,
			TargetSets:       2,
			TargetAngleRange: [2]float64{0, 30},
			PrimaryJoints:    []string{"neck"},
			Difficulty:       "easy",
		},
	}
}
