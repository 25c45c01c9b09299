package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const patientKey contextKey = iota

// PatientFromContext extracts the patient login injected by the transport
// layer, or "" when none was set.
func PatientFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(patientKey).(string); ok {
		return p
	}
	return ""
}

// WithPatient returns a context with the given patient login.
func WithPatient(ctx context.Context, patient string) context.Context {
	return context.WithValue(ctx, patientKey, patient)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RehabReps", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RehabReps stroke rehabilitation server. Look up the exercise catalog, "+
			"a patient's recorded exercise sessions and their progress over time. Tools take a patient "+
			"login; when omitted, the authenticated user is used."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolListPatients, Handler: h.listPatients},
		server.ServerTool{Tool: toolGetSessions, Handler: h.getSessions},
		server.ServerTool{Tool: toolGetProgress, Handler: h.getProgress},
		server.ServerTool{Tool: toolGetPatientStats, Handler: h.getPatientStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
		server.ServerResource{Resource: resPatients, Handler: h.patients},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resExerciseCatalog = mcp.NewResource(
	"rehabreps://exercise_catalog",
	"Exercise Catalog",
	mcp.WithResourceDescription("Supported rehabilitation exercises with targets, angle ranges and required landmarks"),
	mcp.WithMIMEType("application/json"),
)

var resRecentSessions = mcp.NewResource(
	"rehabreps://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("The authenticated patient's exercise sessions from the last 14 days"),
	mcp.WithMIMEType("application/json"),
)

var resPatients = mcp.NewResource(
	"rehabreps://patients",
	"Patients",
	mcp.WithResourceDescription("Known patients, most recently active first"),
	mcp.WithMIMEType("application/json"),
)
