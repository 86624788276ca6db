// Package analysis implements the HTTP client for the session analysis
// collaborator. Sessions are submitted one at a time; the caller decides
// which sessions are eligible and records successes durably.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/trailmark-ai/trailmark-go/internal/domain/history"
	"github.com/trailmark-ai/trailmark-go/internal/infrastructure/observability/logging"
)

// SessionPayload is the wire format the analysis collaborator expects.
type SessionPayload struct {
	SessionIdentifier string        `json:"session_identifier"`
	StartTime         string        `json:"start_time"`
	EndTime           string        `json:"end_time"`
	Items             []ItemPayload `json:"items"`
	DurationMinutes   int           `json:"duration_minutes"`
}

// ItemPayload is one visit inside a submitted session.
type ItemPayload struct {
	URL              string `json:"url"`
	Title            string `json:"title"`
	VisitTime        string `json:"visit_time"`
	URLHostname      string `json:"url_hostname"`
	URLPathnameClean string `json:"url_pathname_clean"`
	URLSearchQuery   string `json:"url_search_query"`
}

// Client posts derived sessions to the analysis endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logging.ChanneledLogger
}

// NewClient creates an analysis client for the configured endpoint.
func NewClient(endpoint string, timeout time.Duration, logger *logging.ChanneledLogger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BuildPayload converts a session into the collaborator's wire format.
func BuildPayload(session *history.Session) SessionPayload {
	identifier := session.SessionID
	if identifier == "" {
		identifier = history.Identifier(session)
	}

	items := make([]ItemPayload, len(session.Items))
	for i, record := range session.Items {
		items[i] = ItemPayload{
			URL:              record.URL,
			Title:            record.Title,
			VisitTime:        record.VisitTime().Format(time.RFC3339),
			URLHostname:      record.Hostname,
			URLPathnameClean: record.CleanedPath,
			URLSearchQuery:   record.SearchQuery,
		}
	}

	return SessionPayload{
		SessionIdentifier: identifier,
		StartTime:         session.StartTime().Format(time.RFC3339),
		EndTime:           session.EndTime().Format(time.RFC3339),
		Items:             items,
		DurationMinutes:   session.DurationMinutes(),
	}
}

// Submit posts one session for analysis. When force is set the collaborator
// reprocesses the session even if it has seen the identifier before.
func (c *Client) Submit(ctx context.Context, session *history.Session, force bool) error {
	start := time.Now()
	payload := BuildPayload(session)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal session payload: %w", err)
	}

	target := c.endpoint
	if force {
		parsed, err := url.Parse(c.endpoint)
		if err != nil {
			return fmt.Errorf("invalid analysis endpoint %q: %w", c.endpoint, err)
		}
		query := parsed.Query()
		query.Set("force", "true")
		parsed.RawQuery = query.Encode()
		target = parsed.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	c.logger.Dispatch().Debug("Submitting session for analysis",
		"sessionId", payload.SessionIdentifier,
		"items", len(payload.Items),
		"force", force)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Dispatch().Error("Analysis submission failed",
			"error", err.Error(),
			"sessionId", payload.SessionIdentifier)
		return fmt.Errorf("failed to submit session %s: %w", payload.SessionIdentifier, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Dispatch().Error("Analysis collaborator rejected session",
			"status", resp.StatusCode,
			"sessionId", payload.SessionIdentifier)
		return fmt.Errorf("analysis collaborator returned status %d for session %s", resp.StatusCode, payload.SessionIdentifier)
	}

	c.logger.Dispatch().Info("Session submitted for analysis",
		"sessionId", payload.SessionIdentifier,
		"items", len(payload.Items),
		"duration", time.Since(start))
	return nil
}
