package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/storage"
)

// importNamespace derives stable session ids from recording names so a
// re-uploaded recording maps to the same row.
var importNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://rehabreps/recordings"))

// patientParam returns the patient query parameter, defaulting to the caller.
func patientParam(r *http.Request) string {
	if p := r.URL.Query().Get("patient"); p != "" {
		return p
	}
	return userInfoFromContext(r).Login
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "storage not configured"})
		return false
	}
	return true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	q := storage.SessionQuery{
		Patient:  patientParam(r),
		Exercise: r.URL.Query().Get("exercise"),
		Start:    start,
		End:      end,
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			q.Limit = parsed
		}
	}

	sessions, err := s.store.QuerySessions(r.Context(), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sessions == nil {
		sessions = []models.SessionRow{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	agg := r.URL.Query().Get("agg")
	if agg == "" {
		agg = storage.AggDaily
	}
	if !storage.ValidAgg(agg) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agg must be daily, weekly or monthly"})
		return
	}

	rows, err := s.store.GetProgress(r.Context(), patientParam(r), start, end, agg)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []models.ProgressRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	stats, err := s.store.GetPatientStats(r.Context(), patientParam(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePatients(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	patients, err := s.store.ListPatients(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if patients == nil {
		patients = []models.PatientRow{}
	}
	writeJSON(w, http.StatusOK, patients)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	pid, err := s.store.GetOrCreatePatient(r.Context(), patientParam(r), "")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.store.QueryImportLogs(r.Context(), pid, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

type importResponse struct {
	ID       uuid.UUID `json:"id"`
	Inserted bool      `json:"inserted"`
}

// handleImportSession stores statistics computed offline by the replay tool.
func (s *Server) handleImportSession(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var req models.SessionImport
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Patient == "" {
		req.Patient = userInfoFromContext(r).Login
	}
	def, err := s.sessions.Catalog().Lookup(req.Statistics.Exercise)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Statistics.ExerciseName == "" {
		req.Statistics.ExerciseName = def.Name
	}

	id := uuid.New()
	if req.Recording != "" {
		id = uuid.NewSHA1(importNamespace, []byte(req.Patient+"/"+req.Recording))
	}
	row := models.NewSessionRow(id, req.Patient, models.SourceReplay, req.Statistics)
	row.Recording = req.Recording

	logID := s.beginImportLog(r.Context(), row)
	start := time.Now()
	inserted, err := s.store.InsertSession(r.Context(), row)
	s.finishImportLog(logID, row, inserted, err, int(time.Since(start).Milliseconds()))
	if err != nil {
		s.log.Error("import session", "recording", req.Recording, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, importResponse{ID: id, Inserted: inserted})
}

// beginImportLog records a running import and returns its log id, or 0 when
// it could not be recorded.
func (s *Server) beginImportLog(ctx context.Context, row models.SessionRow) int64 {
	pid, err := s.store.GetOrCreatePatient(ctx, row.Patient, "")
	if err != nil {
		s.log.Error("failed to log import", "recording", row.Recording, "error", err)
		return 0
	}
	id, err := s.store.InsertImportLog(ctx, storage.ImportLog{
		PatientID:   pid,
		Source:      row.Source,
		Recording:   row.Recording,
		Status:      storage.ImportRunning,
		Repetitions: row.TotalRepetitions,
	})
	if err != nil {
		s.log.Error("failed to log import", "recording", row.Recording, "error", err)
		return 0
	}
	return id
}

// finishImportLog moves an import log entry to its final status.
func (s *Server) finishImportLog(id int64, row models.SessionRow, inserted bool, importErr error, durationMs int) {
	if id == 0 {
		return
	}
	entry := storage.ImportLog{
		Status:      storage.ImportSuccess,
		Repetitions: row.TotalRepetitions,
		DurationMs:  &durationMs,
	}
	switch {
	case importErr != nil:
		entry.Status = storage.ImportError
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	case !inserted:
		entry.Status = storage.ImportDuplicate
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()
	if err := s.store.UpdateImportLog(ctx, id, entry); err != nil {
		s.log.Error("failed to update import log", "id", id, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for import logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}

