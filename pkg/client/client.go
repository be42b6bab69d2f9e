// Package client provides a Go client library for the agentcheck API server.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	v1alpha1 "github.com/klubi/agentcheck/pkg/apis/v1alpha1"
)

// Client communicates with the agentcheck API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client pointing at the given base URL
// (e.g. "http://127.0.0.1:7118").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Body)
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
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
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
	return c.doJSON(http.MethodGet, "/healthz", nil, nil)
}

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

// ListProfiles returns the profiles the server can run.
func (c *Client) ListProfiles() ([]v1alpha1.AgentProfile, error) {
	var out []v1alpha1.AgentProfile
	if err := c.doJSON(http.MethodGet, "/api/v1alpha1/profiles", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// CheckRuns
// ---------------------------------------------------------------------------

// ListCheckRuns returns stored runs, optionally narrowed to one profile.
func (c *Client) ListCheckRuns(profile string) ([]v1alpha1.CheckRun, error) {
	path := "/api/v1alpha1/checkruns"
	if profile != "" {
		path += "?profile=" + url.QueryEscape(profile)
	}
	var out []v1alpha1.CheckRun
	if err := c.doJSON(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCheckRun retrieves a run by name.
func (c *Client) GetCheckRun(name string) (*v1alpha1.CheckRun, error) {
	var out v1alpha1.CheckRun
	path := fmt.Sprintf("/api/v1alpha1/checkruns/%s", url.PathEscape(name))
	if err := c.doJSON(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckRun asks the server to run a profile now and returns the result.
func (c *Client) CreateCheckRun(profile string) (*v1alpha1.CheckRun, error) {
	var out v1alpha1.CheckRun
	body := map[string]string{"profile": profile}
	if err := c.doJSON(http.MethodPost, "/api/v1alpha1/checkruns", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
