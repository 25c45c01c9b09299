package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/claude/rehabreps/internal/exercise"
)

// Session sources.
const (
	SourceLive   = "live"
	SourceReplay = "replay"
)

// PatientRow is a row of the patients table.
type PatientRow struct {
	ID          int       `json:"id"`
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// SessionRow is a finished exercise session ready for insertion into the
// exercise_sessions table.
type SessionRow struct {
	ID               uuid.UUID `json:"id"`
	PatientID        int       `json:"-"`
	Patient          string    `json:"patient"`
	Exercise         string    `json:"exercise"`
	ExerciseName     string    `json:"exercise_name"`
	Source           string    `json:"source"`
	Recording        string    `json:"recording,omitempty"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	DurationSec      int       `json:"duration_sec"`
	Repetitions      int       `json:"repetitions"`
	TotalRepetitions int       `json:"total_repetitions"`
	TargetReps       int       `json:"target_reps"`
	SetNumber        int       `json:"set"`
	TargetSets       int       `json:"target_sets"`
	CompletionRate   float64   `json:"completion_rate"`
	AverageAccuracy  float64   `json:"average_accuracy"`
	Consistency      float64   `json:"consistency"`
	Quality          string    `json:"quality"`
	AngleMean        float64   `json:"angle_mean"`
	AngleStd         float64   `json:"angle_std"`
	AngleMin         float64   `json:"angle_min"`
	AngleMax         float64   `json:"angle_max"`
	AngleSamples     int       `json:"angle_samples"`
}

// NewSessionRow flattens session statistics into a row.
func NewSessionRow(id uuid.UUID, patient, source string, s exercise.Statistics) SessionRow {
	return SessionRow{
		ID:               id,
		Patient:          patient,
		Exercise:         s.Exercise,
		ExerciseName:     s.ExerciseName,
		Source:           source,
		StartTime:        s.Timestamp,
		EndTime:          s.EndTime,
		DurationSec:      s.Duration,
		Repetitions:      s.Repetitions,
		TotalRepetitions: s.TotalRepetitions,
		TargetReps:       s.TargetReps,
		SetNumber:        s.Set,
		TargetSets:       s.TargetSets,
		CompletionRate:   s.CompletionRate,
		AverageAccuracy:  s.AverageAccuracy,
		Consistency:      s.Consistency,
		Quality:          s.Quality,
		AngleMean:        s.AngleStatistics.Mean,
		AngleStd:         s.AngleStatistics.Std,
		AngleMin:         s.AngleStatistics.Min,
		AngleMax:         s.AngleStatistics.Max,
		AngleSamples:     s.AngleStatistics.Count,
	}
}

// ProgressRow aggregates a patient's sessions over one period.
type ProgressRow struct {
	Period         string  `json:"period"`
	Exercise       string  `json:"exercise"`
	Sessions       int     `json:"sessions"`
	Repetitions    int     `json:"repetitions"`
	AvgAccuracy    float64 `json:"avg_accuracy"`
	AvgConsistency float64 `json:"avg_consistency"`
	AvgCompletion  float64 `json:"avg_completion"`
	BestQuality    string  `json:"best_quality"`
}

// SessionImport is the body of POST /api/v1/sessions/import. Recording
// identifies the source file so repeated uploads are idempotent.
type SessionImport struct {
	Patient    string              `json:"patient"`
	Recording  string              `json:"recording"`
	Statistics exercise.Statistics `json:"statistics"`
}
