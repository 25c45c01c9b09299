package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"

	rehabmcp "github.com/claude/rehabreps/internal/mcp"
	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/session"
	"github.com/claude/rehabreps/internal/storage"
)

// Store is the persistence the HTTP API reads and writes. *storage.DB
// satisfies it.
type Store interface {
	GetOrCreatePatient(ctx context.Context, login, displayName string) (int, error)
	ListPatients(ctx context.Context) ([]models.PatientRow, error)
	InsertSession(ctx context.Context, row models.SessionRow) (bool, error)
	QuerySessions(ctx context.Context, q storage.SessionQuery) ([]models.SessionRow, error)
	GetProgress(ctx context.Context, patient string, start, end time.Time, agg string) ([]models.ProgressRow, error)
	GetPatientStats(ctx context.Context, patient string) (*storage.PatientStats, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
	QueryImportLogs(ctx context.Context, patientID, limit int) ([]storage.ImportLog, error)
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	sessions *session.Manager
	store    Store
	hub      *Hub
	log      *slog.Logger
	apiKey   string
	identity func(http.Handler) http.Handler
	router   chi.Router
}

// New creates a new Server with all routes configured. Requests are
// attributed to the local dev user until SetTailscale is called.
func New(sessions *session.Manager, store Store, hub *Hub, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		sessions: sessions,
		store:    store,
		hub:      hub,
		log:      log,
		apiKey:   apiKey,
		identity: DevIdentity,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches caller identity to the tailnet peer's login.
func (s *Server) SetTailscale(lc WhoIser) {
	s.identity = TailscaleIdentity(lc, s.log)
}

// SetMCP mounts the streamable MCP endpoint at /mcp. Tool calls are scoped to
// the caller's identity.
func (s *Server) SetMCP(m *mcpserver.MCPServer) {
	h := mcpserver.NewStreamableHTTPServer(m,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return rehabmcp.WithPatient(ctx, userInfoFromContext(r).Login)
		}),
	)
	s.router.Handle("/mcp", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.identity(next).ServeHTTP(w, r)
		})
	})

	// Live session endpoints that change state (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/sessions", s.handleStartSession)
		r.Post("/api/v1/sessions/import", s.handleImportSession)
		r.Post("/api/v1/sessions/{id}/frames", s.handleFrame)
		r.Post("/api/v1/sessions/{id}/stop", s.handleStopSession)
		r.Post("/api/v1/sessions/{id}/reset", s.handleResetSession)
		r.Get("/api/v1/sessions/{id}/stream", s.handleStream)
	})

	// Read-only endpoints (no API key; tsnet handles access)
	s.router.Get("/api/v1/me", s.handleMe)
	s.router.Get("/api/v1/exercises", s.handleListExercises)
	s.router.Get("/api/v1/sessions", s.handleListSessions)
	s.router.Get("/api/v1/sessions/{id}", s.handleGetSession)
	s.router.Get("/api/v1/history", s.handleHistory)
	s.router.Get("/api/v1/progress", s.handleProgress)
	s.router.Get("/api/v1/stats", s.handleStats)
	s.router.Get("/api/v1/patients", s.handlePatients)
	s.router.Get("/api/v1/imports", s.handleImportLogs)
}
