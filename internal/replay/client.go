package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/claude/rehabreps/internal/models"
)

const maxAttempts = 3

// ImportResult is the server's answer to an import.
type ImportResult struct {
	ID       string `json:"id"`
	Inserted bool   `json:"inserted"`
}

// Client sends replayed sessions to the RehabReps server over HTTP.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a new HTTP client for the RehabReps server.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		backoff: time.Second,
	}
}

// SendImport POSTs a session summary to the server's import endpoint.
// Retries up to 3 times with exponential backoff; client errors are not
// retried.
func (c *Client) SendImport(ctx context.Context, imp models.SessionImport) (*ImportResult, error) {
	data, err := json.Marshal(imp)
	if err != nil {
		return nil, fmt.Errorf("marshaling import: %w", err)
	}

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff << (attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/v1/sessions/import", bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var res ImportResult
			if err := json.Unmarshal(body, &res); err != nil {
				return nil, fmt.Errorf("decoding import response: %w", err)
			}
			return &res, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, fmt.Errorf("import rejected (status %d): %s", resp.StatusCode, body)
		}
		lastErr = fmt.Errorf("import failed (status %d): %s", resp.StatusCode, body)
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}
