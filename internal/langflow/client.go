// Package langflow fetches project summaries from a hosted workflow run endpoint.
package langflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/michaelbrown/boarman/internal/apperr"
)

const (
	defaultTimeout = 60 * time.Second
	opSummary      = "project summary"
)

// runRequest selects chat input/output modes with no component tweaks.
type runRequest struct {
	InputValue string         `json:"input_value,omitempty"`
	InputType  string         `json:"input_type"`
	OutputType string         `json:"output_type"`
	Tweaks     map[string]any `json:"tweaks"`
}

// Client posts to a single workflow run URL.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the workflow at runURL.
func NewClient(runURL, token string) *Client {
	return &Client{
		url:        runURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// FetchSummary runs the workflow and returns its raw JSON output. input may be
// empty, in which case the workflow runs with its configured default input.
func (c *Client) FetchSummary(ctx context.Context, input string) (json.RawMessage, error) {
	if c.token == "" {
		return nil, apperr.Auth(opSummary, "LangChain API token not found in environment variables")
	}
	if c.url == "" {
		return nil, apperr.Upstreamf(opSummary, "no workflow URL configured")
	}

	body, err := json.Marshal(runRequest{
		InputValue: input,
		InputType:  "chat",
		OutputType: "chat",
		Tweaks:     map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Upstream(opSummary, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream(opSummary, fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstreamf(opSummary, "workflow API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if !json.Valid(data) {
		return nil, apperr.Upstreamf(opSummary, "workflow returned invalid JSON")
	}
	return json.RawMessage(data), nil
}
