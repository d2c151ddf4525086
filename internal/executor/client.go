// Package executor implements the Code Executor Client (spec §4.5, §6.2):
// an HTTP client to the remote Jupyter-kernel endpoint, including the
// empty-output retry quirk (P7).
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smilemakc/noteflow/internal/config"
	"github.com/smilemakc/noteflow/pkg/models"
)

// executeRequest is the wire request body for POST <kernel_base>/execute.
type executeRequest struct {
	Code       string `json:"code"`
	NotebookID string `json:"notebook_id"`
}

// executeResponse is the wire response body.
type executeResponse struct {
	Status  string          `json:"status"`
	Outputs []models.Output `json:"outputs"`
}

// Client is the Code Executor Client, grounded on the teacher's
// builtin.HTTPExecutor (pkg/executor/builtin/http.go): a bounded
// *http.Client with a configurable timeout.
type Client struct {
	baseURL         string
	notebookID      string
	httpClient      *http.Client
	emptyOutputWait time.Duration
	sleep           func(time.Duration)
}

// NewClient builds a Code Executor Client from configuration. The sleep
// function defaults to time.Sleep; tests inject a no-op or instrumented
// clock so the empty-output retry never blocks on a real 100ms wait.
func NewClient(cfg config.ExecutorConfig) *Client {
	return &Client{
		baseURL:         cfg.BaseURL,
		notebookID:      cfg.NotebookID,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		emptyOutputWait: cfg.EmptyOutputWait,
		sleep:           time.Sleep,
	}
}

// WithSleep overrides the retry-wait function (test hook).
func (c *Client) WithSleep(fn func(time.Duration)) *Client {
	c.sleep = fn
	return c
}

// Execute runs code against the kernel and returns its outputs. Per P7, if
// the first call succeeds with status "ok" but zero outputs, it sleeps
// emptyOutputWait and retries exactly once, returning whatever the retry
// yields. A non-ok status is not an error: it is surfaced as a single
// error-kind output so the caller (the exec action handler) can append it
// to the cell like any other output (spec §7 error kind 1: "other
// [Executor] failures captured as error outputs, engine continues").
func (c *Client) Execute(ctx context.Context, code string) ([]models.Output, error) {
	resp, err := c.doExecute(ctx, code)
	if err != nil {
		return []models.Output{{Type: models.OutputKindError, Content: err.Error()}}, nil
	}

	if resp.Status == "ok" && len(resp.Outputs) == 0 {
		c.sleep(c.emptyOutputWait)
		retry, err := c.doExecute(ctx, code)
		if err != nil {
			return []models.Output{{Type: models.OutputKindError, Content: err.Error()}}, nil
		}
		return outputsOrError(retry), nil
	}

	return outputsOrError(resp), nil
}

func outputsOrError(resp *executeResponse) []models.Output {
	if resp.Status != "ok" {
		return []models.Output{{Type: models.OutputKindError, Content: fmt.Sprintf("executor status %q", resp.Status)}}
	}
	return resp.Outputs
}

func (c *Client) doExecute(ctx context.Context, code string) (*executeResponse, error) {
	body, err := json.Marshal(executeRequest{Code: code, NotebookID: c.notebookID})
	if err != nil {
		return nil, fmt.Errorf("marshal execute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read execute response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("executor HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var out executeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal execute response: %w", err)
	}
	return &out, nil
}
