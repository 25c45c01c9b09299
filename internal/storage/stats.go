package storage

import (
	"context"
	"fmt"
	"time"
)

// PatientStats holds aggregate statistics about a patient's stored sessions.
type PatientStats struct {
	Patient          string         `json:"patient"`
	TotalSessions    int64          `json:"total_sessions"`
	TotalRepetitions int64          `json:"total_repetitions"`
	EarliestSession  *time.Time     `json:"earliest_session"`
	LatestSession    *time.Time     `json:"latest_session"`
	ByExercise       []ExerciseStat `json:"by_exercise"`
}

// ExerciseStat holds summary stats for a single exercise.
type ExerciseStat struct {
	Exercise        string    `json:"exercise"`
	Sessions        int64     `json:"sessions"`
	Repetitions     int64     `json:"repetitions"`
	AvgAccuracy     float64   `json:"avg_accuracy"`
	TotalDuration   float64   `json:"total_duration_sec"`
	LastPerformedAt time.Time `json:"last_performed_at"`
}

// GetPatientStats returns aggregate statistics for a patient's stored sessions.
func (db *DB) GetPatientStats(ctx context.Context, patient string) (*PatientStats, error) {
	stats := &PatientStats{Patient: patient}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(s.total_repetitions), 0), MIN(s.start_time), MAX(s.start_time)
		 FROM exercise_sessions s
		 JOIN patients p ON p.id = s.patient_id
		 WHERE p.login = $1`, patient,
	).Scan(&stats.TotalSessions, &stats.TotalRepetitions, &stats.EarliestSession, &stats.LatestSession)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT s.exercise, COUNT(*), COALESCE(SUM(s.total_repetitions), 0),
		        AVG(s.average_accuracy), COALESCE(SUM(s.duration_sec), 0), MAX(s.start_time)
		 FROM exercise_sessions s
		 JOIN patients p ON p.id = s.patient_id
		 WHERE p.login = $1
		 GROUP BY s.exercise
		 ORDER BY COUNT(*) DESC`, patient)
	if err != nil {
		return nil, fmt.Errorf("querying sessions by exercise: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExerciseStat
		if err := rows.Scan(&s.Exercise, &s.Sessions, &s.Repetitions, &s.AvgAccuracy, &s.TotalDuration, &s.LastPerformedAt); err != nil {
			return nil, fmt.Errorf("scanning exercise stat: %w", err)
		}
		s.AvgAccuracy = round1(s.AvgAccuracy)
		stats.ByExercise = append(stats.ByExercise, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
