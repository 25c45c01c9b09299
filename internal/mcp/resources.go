package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/rehabreps/internal/storage"
)

func (h *handlers) exerciseCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	defs, err := h.ds.ListExercises(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, defs)
}

func (h *handlers) recentSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	patient := PatientFromContext(ctx)
	if patient == "" {
		return nil, fmt.Errorf("recent_sessions: no authenticated patient")
	}
	end := time.Now()
	start := end.AddDate(0, 0, -14)

	sessions, err := h.ds.QuerySessions(ctx, storage.SessionQuery{Patient: patient, Start: start, End: end})
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, sessions)
}

func (h *handlers) patients(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	patients, err := h.ds.ListPatients(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, patients)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
