// Package pose holds the body landmark model consumed by the exercise analyzers
// and the geometry helpers computed on top of it.
package pose

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Body landmark indices following the MediaPipe Pose 33-point topology.
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// MinVisibility is the confidence below which a landmark is not usable.
const MinVisibility = 0.5

// Point is a 2D point in normalized image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Landmark is a single tracked body keypoint. Z and Visibility are optional
// because not every producer reports them. A landmark decoded from JSON
// without both coordinates, or from null, is missing and never usable.
type Landmark struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          *float64 `json:"z,omitempty"`
	Visibility *float64 `json:"visibility,omitempty"`

	missing bool
}

// Point drops the depth coordinate.
func (l Landmark) Point() Point {
	return Point{X: l.X, Y: l.Y}
}

// Missing reports whether the producer sent no position for the landmark.
func (l Landmark) Missing() bool {
	return l.missing
}

// Usable reports whether the landmark is present with finite coordinates
// and, when visibility is reported, at least MinVisibility confidence.
func (l Landmark) Usable() bool {
	if l.missing {
		return false
	}
	if math.IsNaN(l.X) || math.IsNaN(l.Y) || math.IsInf(l.X, 0) || math.IsInf(l.Y, 0) {
		return false
	}
	if l.Visibility != nil && *l.Visibility < MinVisibility {
		return false
	}
	return true
}

type landmarkJSON struct {
	X          *float64 `json:"x"`
	Y          *float64 `json:"y"`
	Z          *float64 `json:"z,omitempty"`
	Visibility *float64 `json:"visibility,omitempty"`
}

func (l *Landmark) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = Landmark{missing: true}
		return nil
	}
	var raw landmarkJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = Landmark{Z: raw.Z, Visibility: raw.Visibility, missing: raw.X == nil || raw.Y == nil}
	if raw.X != nil {
		l.X = *raw.X
	}
	if raw.Y != nil {
		l.Y = *raw.Y
	}
	return nil
}

// MarshalJSON writes missing landmarks as null so they stay missing when
// decoded again.
func (l Landmark) MarshalJSON() ([]byte, error) {
	if l.missing {
		return []byte("null"), nil
	}
	return json.Marshal(landmarkJSON{X: &l.X, Y: &l.Y, Z: l.Z, Visibility: l.Visibility})
}

// Frame is one detection result: the landmark array plus its capture time.
type Frame struct {
	Landmarks []Landmark `json:"landmarks"`
	Timestamp time.Time  `json:"timestamp"`
}

// Empty reports whether the frame carries no landmarks at all.
func (f Frame) Empty() bool {
	return len(f.Landmarks) == 0
}

// At returns the point for landmark index i. Callers validate first.
func (f Frame) At(i int) Point {
	return f.Landmarks[i].Point()
}

// Midpoint returns the point halfway between landmarks i and j.
func (f Frame) Midpoint(i, j int) Point {
	a, b := f.At(i), f.At(j)
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}
