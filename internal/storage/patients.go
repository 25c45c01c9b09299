package storage

import (
	"context"
	"fmt"

	"github.com/claude/rehabreps/internal/models"
)

// GetOrCreatePatient finds or creates a patient by login (a tailnet login
// name or the patient field of an API request). Returns the patient ID.
// Updates last_seen and display_name on each call.
func (db *DB) GetOrCreatePatient(ctx context.Context, login, displayName string) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO patients (login, display_name)
		VALUES ($1, $2)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = NOW(), display_name = COALESCE(NULLIF($2, ''), patients.display_name)
		RETURNING id
	`, login, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting patient %q: %w", login, err)
	}
	return id, nil
}

// ListPatients returns every known patient, most recently seen first.
func (db *DB) ListPatients(ctx context.Context) ([]models.PatientRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, login, display_name, created_at, last_seen
		 FROM patients
		 ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying patients: %w", err)
	}
	defer rows.Close()

	var result []models.PatientRow
	for rows.Next() {
		var p models.PatientRow
		if err := rows.Scan(&p.ID, &p.Login, &p.DisplayName, &p.CreatedAt, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scanning patient: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
