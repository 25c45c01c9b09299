package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/rehabreps/internal/exercise"
	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/storage"
)

// HTTPClient implements DataSource by calling the RehabReps REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]exercise.Definition, error) {
	body, err := c.get(ctx, "/api/v1/exercises", nil)
	if err != nil {
		return nil, err
	}

	var defs []exercise.Definition
	if err := json.Unmarshal(body, &defs); err != nil {
		return nil, fmt.Errorf("httpclient: decode exercises: %w", err)
	}
	return defs, nil
}

func (c *HTTPClient) ListPatients(ctx context.Context) ([]models.PatientRow, error) {
	body, err := c.get(ctx, "/api/v1/patients", nil)
	if err != nil {
		return nil, err
	}

	var patients []models.PatientRow
	if err := json.Unmarshal(body, &patients); err != nil {
		return nil, fmt.Errorf("httpclient: decode patients: %w", err)
	}
	return patients, nil
}

func (c *HTTPClient) QuerySessions(ctx context.Context, q storage.SessionQuery) ([]models.SessionRow, error) {
	params := timeParams(q.Start, q.End)
	params.Set("patient", q.Patient)
	if q.Exercise != "" {
		params.Set("exercise", q.Exercise)
	}
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprint(q.Limit))
	}

	body, err := c.get(ctx, "/api/v1/history", params)
	if err != nil {
		return nil, err
	}

	var sessions []models.SessionRow
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, fmt.Errorf("httpclient: decode sessions: %w", err)
	}
	return sessions, nil
}

func (c *HTTPClient) GetProgress(ctx context.Context, patient string, start, end time.Time, agg string) ([]models.ProgressRow, error) {
	params := timeParams(start, end)
	params.Set("patient", patient)
	params.Set("agg", agg)

	body, err := c.get(ctx, "/api/v1/progress", params)
	if err != nil {
		return nil, err
	}

	var rows []models.ProgressRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode progress: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) GetPatientStats(ctx context.Context, patient string) (*storage.PatientStats, error) {
	params := url.Values{}
	params.Set("patient", patient)

	body, err := c.get(ctx, "/api/v1/stats", params)
	if err != nil {
		return nil, err
	}

	var stats storage.PatientStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("httpclient: decode patient stats: %w", err)
	}
	return &stats, nil
}
