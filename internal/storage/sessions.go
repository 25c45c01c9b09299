package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/rehabreps/internal/models"
)

const sessionColumns = `s.id, p.login, s.exercise, s.exercise_name, s.source, COALESCE(s.recording, ''),
	s.start_time, s.end_time, s.duration_sec, s.repetitions, s.total_repetitions,
	s.target_reps, s.set_number, s.target_sets, s.completion_rate, s.average_accuracy,
	s.consistency, s.quality, s.angle_mean, s.angle_std, s.angle_min, s.angle_max, s.angle_samples`

// SaveSession records a finished session, creating the patient if needed.
// Saving the same session id twice is a no-op.
func (db *DB) SaveSession(ctx context.Context, row models.SessionRow) error {
	_, err := db.InsertSession(ctx, row)
	return err
}

// InsertSession inserts a session row. Returns true if inserted, false if a
// row with the same id or recording already exists.
func (db *DB) InsertSession(ctx context.Context, row models.SessionRow) (bool, error) {
	patientID, err := db.GetOrCreatePatient(ctx, row.Patient, "")
	if err != nil {
		return false, err
	}
	row.PatientID = patientID

	var recording *string
	if row.Recording != "" {
		recording = &row.Recording
	}

	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO exercise_sessions (id, patient_id, exercise, exercise_name, source, recording,
		 start_time, end_time, duration_sec, repetitions, total_repetitions, target_reps,
		 set_number, target_sets, completion_rate, average_accuracy, consistency, quality,
		 angle_mean, angle_std, angle_min, angle_max, angle_samples)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		 ON CONFLICT DO NOTHING`,
		row.ID, row.PatientID, row.Exercise, row.ExerciseName, row.Source, recording,
		row.StartTime, row.EndTime, row.DurationSec, row.Repetitions, row.TotalRepetitions, row.TargetReps,
		row.SetNumber, row.TargetSets, row.CompletionRate, row.AverageAccuracy, row.Consistency, row.Quality,
		row.AngleMean, row.AngleStd, row.AngleMin, row.AngleMax, row.AngleSamples)
	if err != nil {
		return false, fmt.Errorf("inserting session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SessionQuery selects stored sessions for one patient.
type SessionQuery struct {
	Patient  string
	Exercise string // empty means all exercises
	Start    time.Time
	End      time.Time
	Limit    int
}

// QuerySessions returns a patient's sessions that started in [Start, End),
// newest first.
func (db *DB) QuerySessions(ctx context.Context, q SessionQuery) ([]models.SessionRow, error) {
	if q.Limit <= 0 {
		q.Limit = 500
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exercise_sessions s
		 JOIN patients p ON p.id = s.patient_id
		 WHERE p.login = $1 AND s.start_time >= $2 AND s.start_time < $3
		   AND ($4 = '' OR s.exercise = $4)
		 ORDER BY s.start_time DESC
		 LIMIT $5`,
		q.Patient, q.Start, q.End, q.Exercise, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionRow
	for rows.Next() {
		var r models.SessionRow
		if err := rows.Scan(&r.ID, &r.Patient, &r.Exercise, &r.ExerciseName, &r.Source, &r.Recording,
			&r.StartTime, &r.EndTime, &r.DurationSec, &r.Repetitions, &r.TotalRepetitions,
			&r.TargetReps, &r.SetNumber, &r.TargetSets, &r.CompletionRate, &r.AverageAccuracy,
			&r.Consistency, &r.Quality, &r.AngleMean, &r.AngleStd, &r.AngleMin, &r.AngleMax, &r.AngleSamples); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
