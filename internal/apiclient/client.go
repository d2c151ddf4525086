// Package apiclient implements the Workflow API Client (spec §4.6, §6.1):
// the Planning and Generating HTTP calls, including NDJSON-streamed
// Generator responses.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/smilemakc/noteflow/internal/auth"
	"github.com/smilemakc/noteflow/internal/config"
	"github.com/smilemakc/noteflow/pkg/models"
)

// Minter mints the bearer token attached to outbound requests.
type Minter interface {
	Mint(runID string) (string, error)
}

// Client calls the Planner and Generator APIs.
type Client struct {
	plannerURL      string
	generatorURL    string
	plannerTimeout  time.Duration
	generatorClient *http.Client
	plannerClient   *http.Client
	minter          Minter
	validate        *validator.Validate
}

// NewClient builds a Workflow API Client. minter may be nil, in which case
// no Authorization header is attached (matches auth.TokenMinter.Mint
// returning "" when unconfigured).
func NewClient(plannerCfg config.PlannerConfig, generatorCfg config.GeneratorConfig, minter *auth.TokenMinter) *Client {
	var m Minter
	if minter != nil {
		m = minter
	}
	return &Client{
		plannerURL:      plannerCfg.BaseURL,
		generatorURL:    generatorCfg.BaseURL,
		plannerTimeout:  plannerCfg.Timeout,
		plannerClient:   &http.Client{Timeout: plannerCfg.Timeout},
		generatorClient: &http.Client{Timeout: generatorCfg.Timeout},
		minter:          m,
		validate:        validator.New(),
	}
}

// Plan calls POST <planner_base>/planning. Per spec §7 error kind 1, a
// transport failure is retried exactly once (Planning calls are
// idempotent) before being returned to the caller, who treats it as a
// Transport error and raises FAIL.
func (c *Client) Plan(ctx context.Context, runID string, req models.APIRequest) (*models.PlannerResponse, error) {
	resp, err := c.doPlan(ctx, runID, req)
	if err != nil {
		resp, err = c.doPlan(ctx, runID, req)
	}
	return resp, err
}

func (c *Client) doPlan(ctx context.Context, runID string, req models.APIRequest) (*models.PlannerResponse, error) {
	body, err := c.post(ctx, c.plannerClient, c.plannerURL+"/planning", runID, req)
	if err != nil {
		return nil, err
	}

	var out models.PlannerResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode planner response: %w: %w", ErrContractInvalid, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return nil, fmt.Errorf("validate planner response: %w: %w", ErrContractInvalid, err)
	}
	return &out, nil
}

// Generate calls POST <generator_base>/generating and returns the full
// ordered action stream. Per spec §7 error kind 1, Generator calls are
// never retried (actions are not idempotent): a transport failure is
// returned immediately. NDJSON streaming is parsed with a line-buffered
// bufio.Reader so no single action line is bounded by a token-size limit
// (grounded on the pack's SSE line reader); a non-streaming
// `{"actions":[...]}` body is accepted as a fallback. Per P8, a malformed
// JSON line is skipped, not fatal — every other well-formed line still
// yields its action, in order.
func (c *Client) Generate(ctx context.Context, runID string, req models.APIRequest) ([]models.Action, error) {
	httpReq, err := c.newRequest(ctx, c.generatorURL+"/generating", runID, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.generatorClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generator request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("generator HTTP %d: %s", resp.StatusCode, string(raw))
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "ndjson") || strings.Contains(contentType, "stream") {
		return c.parseStreaming(resp.Body)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generator response: %w", err)
	}

	var batch models.GeneratorBatch
	if err := json.Unmarshal(raw, &batch); err == nil && batch.Actions != nil {
		return batch.Actions, nil
	}
	// Fall back to line-by-line parsing: some deployments omit the
	// streaming content type but still emit NDJSON.
	return c.parseStreaming(bytes.NewReader(raw))
}

func (c *Client) parseStreaming(r io.Reader) ([]models.Action, error) {
	reader := newLineReader(r)
	var actions []models.Action
	for {
		line, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return actions, fmt.Errorf("read generator stream: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var ndjsonLine models.GeneratorLine
		if err := json.Unmarshal([]byte(line), &ndjsonLine); err != nil {
			continue
		}
		if err := c.validate.Struct(ndjsonLine.Action); err != nil {
			continue
		}
		actions = append(actions, ndjsonLine.Action)
	}
	return actions, nil
}

func (c *Client) post(ctx context.Context, client *http.Client, url, runID string, req models.APIRequest) ([]byte, error) {
	httpReq, err := c.newRequest(ctx, url, runID, req)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", url, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s HTTP %d: %s", url, resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, url, runID string, req models.APIRequest) (*http.Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson, application/json")

	if c.minter != nil {
		token, err := c.minter.Mint(runID)
		if err != nil {
			return nil, fmt.Errorf("mint bearer token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return httpReq, nil
}
