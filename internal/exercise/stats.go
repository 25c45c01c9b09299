package exercise

import (
	"math"
	"time"
)

// Consistency window and normalisation.
const (
	consistencyWindow  = 10
	consistencyMinimum = 5
	consistencyMaxStd  = 20.0
)

// Quality grades for a finished session.
const (
	QualityExcellent        = "excellent"
	QualityGood             = "good"
	QualityFair             = "fair"
	QualityNeedsImprovement = "needs_improvement"
)

// AngleStats summarises a series of angles.
type AngleStats struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Statistics is the summary produced when a session stops.
type Statistics struct {
	Exercise         string     `json:"exercise"`
	ExerciseName     string     `json:"exercise_name"`
	Duration         int        `json:"duration"`
	Repetitions      int        `json:"repetitions"`
	TotalRepetitions int        `json:"total_repetitions"`
	TargetReps       int        `json:"target_reps"`
	Set              int        `json:"set"`
	TargetSets       int        `json:"target_sets"`
	CompletionRate   float64    `json:"completion_rate"`
	AverageAccuracy  float64    `json:"average_accuracy"`
	AngleStatistics  AngleStats `json:"angle_statistics"`
	Consistency      float64    `json:"consistency"`
	Quality          string     `json:"quality"`
	Timestamp        time.Time  `json:"timestamp"`
	EndTime          time.Time  `json:"end_time"`
}

// Describe computes mean, population standard deviation and range.
func Describe(values []float64) AngleStats {
	if len(values) == 0 {
		return AngleStats{}
	}
	s := AngleStats{Min: values[0], Max: values[0], Count: len(values)}
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - s.Mean
		sq += d * d
	}
	s.Std = math.Sqrt(sq / float64(len(values)))
	return s
}

// Consistency rates the steadiness of the last ten angles: 100 for no
// spread, 0 once the standard deviation reaches 20 degrees. Fewer than five
// samples score 0.
func Consistency(angles []float64) float64 {
	if len(angles) < consistencyMinimum {
		return 0
	}
	if len(angles) > consistencyWindow {
		angles = angles[len(angles)-consistencyWindow:]
	}
	std := Describe(angles).Std
	return math.Round(math.Max(0, 100-std/consistencyMaxStd*100))
}

// Grade combines accuracy, completion and consistency into a quality label.
func Grade(accuracy, completion, consistency float64) string {
	score := 0.4*accuracy + 0.4*math.Min(100, completion) + 0.2*consistency
	switch {
	case score >= 85:
		return QualityExcellent
	case score >= 70:
		return QualityGood
	case score >= 50:
		return QualityFair
	}
	return QualityNeedsImprovement
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
