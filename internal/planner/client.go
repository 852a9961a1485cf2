// Package planner is a thin client for the external planning/inspection
// service. The service is best-effort enrichment: every failure maps to
// ErrUnavailable and callers are expected to continue without it.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Mtzions/Agentbackend/internal/core/config"
	"github.com/Mtzions/Agentbackend/internal/core/task"
	"github.com/rs/zerolog"
)

// ErrUnavailable is returned when the planning service is unreachable,
// misconfigured, or returns unparsable content.
var ErrUnavailable = errors.New("planning service unavailable")

// Client talks to the planning/inspection service over HTTP JSON.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a client from config. The configured timeout bounds every
// request; it is the only network I/O in the system.
func New(cfg config.PlannerConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// ProposeTasks asks the service to turn a natural-language goal into a
// structured task list.
func (c *Client) ProposeTasks(ctx context.Context, goal string) ([]task.Spec, error) {
	var out struct {
		Tasks []task.Spec `json:"tasks"`
	}
	if err := c.post(ctx, "/v1/plan", map[string]any{"goal": goal}, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// InspectRepo asks the service for current repository-inspection data.
func (c *Client) InspectRepo(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.post(ctx, "/v1/inspect", map[string]any{}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: no base URL configured", ErrUnavailable)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Debug().Err(err).Msg("close planner response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	return nil
}
