package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tendant/paged-content-pipeline/pkg/pipeline"
)

// Client is an HTTP client for triggering derivation jobs
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new derivation client
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewWithHTTPClient creates a new derivation client with a custom HTTP client
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Derive triggers a derivation job
func (c *Client) Derive(ctx context.Context, req pipeline.DeriveRequest) (*pipeline.DeriveResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/derive", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var deriveResp pipeline.DeriveResponse
	if err := json.NewDecoder(resp.Body).Decode(&deriveResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &deriveResp, nil
}

// Highlights fetches search highlights for a page's HOCR datastream
func (c *Client) Highlights(ctx context.Context, pid, term string) (*pipeline.Highlights, error) {
	u := fmt.Sprintf("%s/v1/highlights?pid=%s&term=%s", c.baseURL, url.QueryEscape(pid), url.QueryEscape(term))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var highlights pipeline.Highlights
	if err := json.NewDecoder(resp.Body).Decode(&highlights); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &highlights, nil
}
