package mcp

import (
	"context"
	"time"

	"github.com/claude/rehabreps/internal/exercise"
	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both Local (database
// plus catalog) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListExercises(ctx context.Context) ([]exercise.Definition, error)
	ListPatients(ctx context.Context) ([]models.PatientRow, error)
	QuerySessions(ctx context.Context, q storage.SessionQuery) ([]models.SessionRow, error)
	GetProgress(ctx context.Context, patient string, start, end time.Time, agg string) ([]models.ProgressRow, error)
	GetPatientStats(ctx context.Context, patient string) (*storage.PatientStats, error)
}

// Local serves MCP requests from the server's own database and catalog.
type Local struct {
	*storage.DB
	Catalog *exercise.Catalog
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = Local{}

// ListExercises returns the catalog.
func (l Local) ListExercises(context.Context) ([]exercise.Definition, error) {
	return l.Catalog.All(), nil
}
