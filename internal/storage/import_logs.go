package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Import log statuses.
const (
	ImportRunning   = "running"
	ImportSuccess   = "success"
	ImportDuplicate = "duplicate"
	ImportError     = "error"
)

// ImportLog represents a single session import's outcome.
type ImportLog struct {
	ID           int64            `json:"id"`
	PatientID    int              `json:"patient_id"`
	CreatedAt    time.Time        `json:"created_at"`
	Source       string           `json:"source"`
	Recording    string           `json:"recording"`
	Status       string           `json:"status"`
	Repetitions  int              `json:"repetitions"`
	DurationMs   *int             `json:"duration_ms"`
	ErrorMessage *string          `json:"error_message"`
	Metadata     *json.RawMessage `json:"metadata"`
}

// InsertImportLog creates a new import log entry and returns its ID.
func (db *DB) InsertImportLog(ctx context.Context, log ImportLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (patient_id, source, recording, status, repetitions, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING id`,
		log.PatientID, log.Source, log.Recording, log.Status, log.Repetitions,
		log.DurationMs, log.ErrorMessage, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return id, nil
}

// UpdateImportLog updates an existing import log entry (typically from "running" to a final status).
func (db *DB) UpdateImportLog(ctx context.Context, id int64, log ImportLog) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE import_logs SET
		 status = $2, repetitions = $3, duration_ms = $4, error_message = $5, metadata = $6
		 WHERE id = $1`,
		id, log.Status, log.Repetitions, log.DurationMs, log.ErrorMessage, log.Metadata,
	)
	if err != nil {
		return fmt.Errorf("updating import log %d: %w", id, err)
	}
	return nil
}

// QueryImportLogs returns the most recent import logs for a patient.
func (db *DB) QueryImportLogs(ctx context.Context, patientID, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, patient_id, created_at, source, recording, status, repetitions,
		 duration_ms, error_message, metadata
		 FROM import_logs
		 WHERE patient_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []ImportLog
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.PatientID, &l.CreatedAt, &l.Source, &l.Recording, &l.Status,
			&l.Repetitions, &l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
