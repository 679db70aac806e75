// Package client provides a Go client library for the Warden API server.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

// Client communicates with the Warden API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Warden API client pointing at the given base URL
// (e.g. "http://localhost:7411").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// Chat turns can run several tool invocations, so the client
		// waits much longer than a plain read would need.
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

// doRequest builds and executes an HTTP request.
// If body is non-nil it is JSON-encoded and sent as the request body.
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// doJSON executes a request, checks for a 2xx status, and JSON-decodes
// the response body into target (when target is non-nil).
func (c *Client) doJSON(method, path string, body interface{}, target interface{}) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if target != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// Healthz checks whether the API server is healthy.
func (c *Client) Healthz() error {
	resp, err := c.doRequest(http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("healthz failed (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Chat
// ---------------------------------------------------------------------------

// Chat sends a user message and blocks until the agent produces its
// final answer for the turn.
func (c *Client) Chat(message string) (*v1alpha1.ChatResponse, error) {
	var out v1alpha1.ChatResponse
	req := &v1alpha1.ChatRequest{Message: message}
	if err := c.doJSON(http.MethodPost, "/api/v1alpha1/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

// Memory returns the full event log in sequence order.
func (c *Client) Memory() ([]v1alpha1.Event, error) {
	var out []v1alpha1.Event
	if err := c.doJSON(http.MethodGet, "/api/v1alpha1/memory", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MemoryByCategory returns the events recorded under one category.
func (c *Client) MemoryByCategory(category v1alpha1.Category) ([]v1alpha1.Event, error) {
	var out []v1alpha1.Event
	path := fmt.Sprintf("/api/v1alpha1/memory/category/%s", category)
	if err := c.doJSON(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns the per-category tool invocation counts.
func (c *Client) Stats() (*v1alpha1.StatsResponse, error) {
	var out v1alpha1.StatsResponse
	if err := c.doJSON(http.MethodGet, "/api/v1alpha1/memory/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearMemory wipes the event log and resets sequence numbering.
func (c *Client) ClearMemory() (*v1alpha1.ClearResponse, error) {
	var out v1alpha1.ClearResponse
	if err := c.doJSON(http.MethodDelete, "/api/v1alpha1/memory", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Tools
// ---------------------------------------------------------------------------

// Tools returns the server's registered tool inventory.
func (c *Client) Tools() ([]v1alpha1.ToolInfo, error) {
	var out []v1alpha1.ToolInfo
	if err := c.doJSON(http.MethodGet, "/api/v1alpha1/tools", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
