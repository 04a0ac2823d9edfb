// Package callback notifies the control plane that a run has completed.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client posts run-completion notifications to the control plane, using a
// shared-secret header rather than a per-user bearer token — this is a
// service-to-service call, not a user-facing request.
type Client struct {
	backendURL string
	apiKey     string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

// NewClient constructs a completion-callback Client.
func NewClient(backendURL, apiKey string, timeout time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		backendURL: backendURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Completion is the payload POSTed to the control plane when a run finishes.
type Completion struct {
	Success         bool               `json:"success"`
	Metrics         map[string]interface{} `json:"metrics"`
	ArtifactURLs    map[string]string  `json:"artifact_urls"`
	DurationSeconds float64            `json:"duration_seconds"`
}

// addAuthHeader injects the shared service secret into the outbound request.
func (c *Client) addAuthHeader(req *http.Request) {
	req.Header.Set("X-Internal-Key", c.apiKey)
}

// NotifyComplete sends the completion callback for runID. Failures are
// logged and swallowed: the job runner must proceed regardless of whether
// the control plane could be reached, and callbacks are never retried.
func (c *Client) NotifyComplete(ctx context.Context, runID string, completion Completion) {
	body, err := json.Marshal(completion)
	if err != nil {
		c.log.Errorw("failed to marshal completion payload", "run_id", runID, "error", err)
		return
	}

	url := fmt.Sprintf("%s/api/internal/runs/%s/complete", c.backendURL, runID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.log.Errorw("failed to build completion request", "run_id", runID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Errorw("failed to notify backend", "run_id", runID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Errorw("backend rejected completion callback", "run_id", runID, "status", resp.StatusCode)
		return
	}

	c.log.Infow("backend notified", "run_id", runID)
}
