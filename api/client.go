package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"procinfo/models"
	"procinfo/query"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidFilter     = "invalid_filter"
	CodeEnumerationFailed = "enumeration_failed"
	CodeInternal          = "internal"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status       string              `json:"status"`
	Version      string              `json:"version"`
	Host         models.HostInfo     `json:"host"`
	Capabilities models.Capabilities `json:"capabilities"`
}

// APIError is returned by Client for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d): %s [%s]", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client talks to the REST endpoints of a procinfo server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a client for baseURL. The timeout must cover the
// settle delay of the slowest query.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Processes runs a filtered query.
func (c *Client) Processes(ctx context.Context, f query.Filter) ([]models.ProcessMetrics, error) {
	url := c.baseURL + "/api/processes"
	if qs := f.Values().Encode(); qs != "" {
		url += "?" + qs
	}

	var procs []models.ProcessMetrics
	if err := c.get(ctx, url, &procs); err != nil {
		return nil, err
	}
	if procs == nil {
		procs = []models.ProcessMetrics{}
	}
	return procs, nil
}

// Health fetches /healthz.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.get(ctx, c.baseURL+"/healthz", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiResp ErrorResponse
		if err := json.Unmarshal(body, &apiResp); err == nil && apiResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: apiResp.Error, Code: apiResp.Code}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
