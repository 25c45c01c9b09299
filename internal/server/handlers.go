package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/rehabreps/internal/exercise"
	"github.com/claude/rehabreps/internal/pose"
	"github.com/claude/rehabreps/internal/session"
)

type startRequest struct {
	Exercise string `json:"exercise"`
	Patient  string `json:"patient"`
}

type stopResponse struct {
	Statistics *exercise.Statistics `json:"statistics"`
	Persisted  bool                 `json:"persisted"`
	Error      string               `json:"error,omitempty"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Catalog().All())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Exercise == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise is required"})
		return
	}

	user := userInfoFromContext(r)
	if req.Patient == "" {
		req.Patient = user.Login
	}
	if s.store != nil && req.Patient == user.Login {
		if _, err := s.store.GetOrCreatePatient(r.Context(), user.Login, user.DisplayName); err != nil {
			s.log.Warn("patient upsert failed", "patient", user.Login, "error", err)
		}
	}

	info, err := s.sessions.Start(r.Context(), req.Exercise, req.Patient)
	if errors.Is(err, exercise.ErrUnknownExercise) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.log.Error("start session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	var f pose.Frame
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	up, err := s.sessions.Analyze(r.Context(), chi.URLParam(r, "id"), f)
	if errors.Is(err, session.ErrNotFound) {
		writeSessionError(w, err)
		return
	}
	if err != nil {
		// The frame was analyzed; only persisting the finished session failed.
		s.log.Error("finishing session", "session", chi.URLParam(r, "id"), "error", err)
	}
	writeJSON(w, http.StatusOK, up)
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, err := s.sessions.Stop(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		writeSessionError(w, err)
		return
	}
	resp := stopResponse{Statistics: stats, Persisted: err == nil}
	if err != nil {
		s.log.Error("stop session", "session", id, "error", err)
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 7 days
		end = time.Now()
		start = end.AddDate(0, 0, -7)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
