package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/logger"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/utils"
)

// evaluateRequest is the wire form of one pipeline submission.
type evaluateRequest struct {
	Params models.ParameterVector `json:"params"`
}

// evaluateResponse is the pipeline's reply. A failed run reports its stage
// and reason instead of an objective.
type evaluateResponse struct {
	Status    string  `json:"status"`
	Objective float64 `json:"objective"`
	Stage     string  `json:"stage,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// PipelineError reports a failure inside the external pipeline (geometry,
// meshing or solve stage).
type PipelineError struct {
	Stage  string
	Reason string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %s", e.Stage, e.Reason)
}

// HTTPClient drives the pipeline service over HTTP. Transport errors and
// 5xx responses are retried with backoff; a pipeline-reported failure is
// returned immediately, since resubmitting the same degenerate geometry
// cannot succeed.
type HTTPClient struct {
	baseURL    string
	client     *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
}

// NewHTTPClient creates a pipeline client. The overall evaluation deadline
// comes from the caller's context; ResponseHeaderTimeout is left open
// because the pipeline legitimately streams nothing until the solve ends.
func NewHTTPClient(baseURL string, maxRetries int, backoff utils.BackoffStrategy) *HTTPClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 2

	if backoff == nil {
		backoff = utils.NewExponentialBackoff(500*time.Millisecond, 30*time.Second, 2.0, nil)
	}
	return &HTTPClient{
		baseURL:    baseURL,
		client:     &http.Client{Transport: transport},
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Name returns the evaluator name.
func (c *HTTPClient) Name() string {
	return "http"
}

// Evaluate submits the design and blocks until the pipeline reports an
// objective, a failure, or ctx expires.
func (c *HTTPClient) Evaluate(ctx context.Context, p models.ParameterVector) (float64, error) {
	body, err := json.Marshal(evaluateRequest{Params: p})
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying pipeline submission", "attempt", attempt, "delay", delay.String())
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(delay):
			}
		}

		objective, retryable, err := c.submit(ctx, body)
		if err == nil {
			return objective, nil
		}
		if !retryable {
			return 0, err
		}
		lastErr = err
	}
	return 0, fmt.Errorf("pipeline unreachable after %d attempts: %w", c.maxRetries+1, lastErr)
}

// submit performs one round trip. retryable reports whether the failure is
// transport-level rather than a definitive pipeline verdict.
func (c *HTTPClient) submit(ctx context.Context, body []byte) (objective float64, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return 0, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, true, fmt.Errorf("submit to pipeline: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 500 {
		return 0, true, fmt.Errorf("pipeline returned %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, false, fmt.Errorf("pipeline rejected request: %s", resp.Status)
	}

	var reply evaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return 0, true, fmt.Errorf("decode pipeline response: %w", err)
	}

	if reply.Status != "success" {
		stage := reply.Stage
		if stage == "" {
			stage = "unknown stage"
		}
		return 0, false, &PipelineError{Stage: stage, Reason: reply.Reason}
	}
	return reply.Objective, false, nil
}
