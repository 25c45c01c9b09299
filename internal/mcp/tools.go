package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/rehabreps/internal/storage"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	return timeRange(startStr, endStr, 7)
}

// timeRange parses start/end, defaulting end to now and start to days before end.
func timeRange(startStr, endStr string, days int) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -days)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// patientArg returns the patient argument, falling back to the
// authenticated patient.
func patientArg(ctx context.Context, req mcp.CallToolRequest) string {
	if p := req.GetString("patient", ""); p != "" {
		return p
	}
	return PatientFromContext(ctx)
}

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List the supported rehabilitation exercises with their ids, default rep/set targets, target angle ranges and primary joints."),
)

var toolListPatients = mcp.NewTool("list_patients",
	mcp.WithDescription("List known patients with their login, display name and when they were last active."),
)

var toolGetSessions = mcp.NewTool("get_sessions",
	mcp.WithDescription("Query a patient's recorded exercise sessions. Each session includes repetitions, completion rate, average accuracy, movement consistency, quality grade and joint angle statistics."),
	mcp.WithString("patient", mcp.Description("Patient login. Defaults to the authenticated user.")),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise id (e.g. 'arm-raise-forward', 'leg-forward')")),
)

var toolGetProgress = mcp.NewTool("get_progress",
	mcp.WithDescription("Per-period progress for a patient: sessions, repetitions, average accuracy, consistency and completion, and the best quality grade, per exercise."),
	mcp.WithString("patient", mcp.Description("Patient login. Defaults to the authenticated user.")),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("agg", mcp.Description("Aggregation period. Defaults to 'daily'."), mcp.Enum(storage.AggDaily, storage.AggWeekly, storage.AggMonthly)),
)

var toolGetPatientStats = mcp.NewTool("get_patient_stats",
	mcp.WithDescription("All-time totals for a patient: sessions, repetitions, first and last session, and per-exercise counts and accuracy."),
	mcp.WithString("patient", mcp.Description("Patient login. Defaults to the authenticated user.")),
)

// --- Tool handlers ---

func (h *handlers) listExercises(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defs, err := h.ds.ListExercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(defs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listPatients(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patients, err := h.ds.ListPatients(ctx)
	if err != nil {
		h.log.Error("mcp list_patients", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(patients)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patient := patientArg(ctx, req)
	if patient == "" {
		return mcp.NewToolResultError("patient parameter is required"), nil
	}

	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	sessions, err := h.ds.QuerySessions(ctx, storage.SessionQuery{
		Patient:  patient,
		Exercise: req.GetString("exercise", ""),
		Start:    start,
		End:      end,
	})
	if err != nil {
		h.log.Error("mcp get_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sessions)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patient := patientArg(ctx, req)
	if patient == "" {
		return mcp.NewToolResultError("patient parameter is required"), nil
	}

	start, end, err := timeRange(req.GetString("start", ""), req.GetString("end", ""), 30)
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	agg := req.GetString("agg", storage.AggDaily)
	if !storage.ValidAgg(agg) {
		return mcp.NewToolResultError("agg must be daily, weekly or monthly"), nil
	}

	rows, err := h.ds.GetProgress(ctx, patient, start, end, agg)
	if err != nil {
		h.log.Error("mcp get_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPatientStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patient := patientArg(ctx, req)
	if patient == "" {
		return mcp.NewToolResultError("patient parameter is required"), nil
	}

	stats, err := h.ds.GetPatientStats(ctx, patient)
	if err != nil {
		h.log.Error("mcp get_patient_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(stats)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
