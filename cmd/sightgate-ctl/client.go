package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client wraps HTTP client for gateway API operations
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new gateway API client
func NewClient(server, token string) *Client {
	// Ensure server has protocol prefix
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}

	return &Client{
		baseURL: strings.TrimSuffix(server, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// request makes an HTTP request to the gateway API
func (c *Client) request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			if errResp.Message != "" {
				return fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Message)
			}
			if errResp.Error != "" {
				return fmt.Errorf("API error (%d): %s", resp.StatusCode, errResp.Error)
			}
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// SubmitRequest is the body of a sighting submission
type SubmitRequest struct {
	SightingValue   string `json:"sighting_value"`
	SightingDesc    string `json:"sighting_desc,omitempty"`
	SightingTitle   string `json:"sighting_title,omitempty"`
	SightingTags    string `json:"sighting_tags,omitempty"`
	ConfidenceLevel string `json:"confidence_level,omitempty"`
	SightingType    string `json:"sighting_type,omitempty"`
	Index           string `json:"index,omitempty"`
	Host            string `json:"host,omitempty"`
	Source          string `json:"source,omitempty"`
	Sourcetype      string `json:"sourcetype,omitempty"`
	Time            string `json:"time,omitempty"`
	Field           string `json:"field,omitempty"`
}

// SubmitResponse is the gateway's response to a submission
type SubmitResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	SubmissionID   string `json:"submission_id"`
	EntityID       string `json:"entity_id"`
	EntityURL      string `json:"entity_url"`
	UpstreamStatus int    `json:"upstream_status"`
}

// Submit submits a sighting to the gateway
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	if err := c.request(ctx, http.MethodPost, "/api/v1/sightings", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JournalEntry is one recorded submission
type JournalEntry struct {
	ID             string `json:"id"`
	SightingValue  string `json:"sighting_value"`
	SightingTitle  string `json:"sighting_title"`
	SightingType   string `json:"sighting_type"`
	Outcome        string `json:"outcome"`
	UpstreamStatus int    `json:"upstream_status"`
	EntityID       string `json:"entity_id"`
	Error          string `json:"error"`
	Duration       int64  `json:"duration"`
	CreatedAt      string `json:"created_at"`
}

// JournalListResponse is the journal listing shape
type JournalListResponse struct {
	Entries []JournalEntry `json:"entries"`
}

// JournalList lists recent submissions, newest first
func (c *Client) JournalList(ctx context.Context, limit int) (*JournalListResponse, error) {
	path := "/api/v1/journal"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var resp JournalListResponse
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JournalGet returns a single journal entry by submission ID
func (c *Client) JournalGet(ctx context.Context, id string) (*JournalEntry, error) {
	var entry JournalEntry
	if err := c.request(ctx, http.MethodGet, "/api/v1/journal/"+url.PathEscape(id), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// JournalDocument returns a download link for the archived entity document
func (c *Client) JournalDocument(ctx context.Context, id string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.request(ctx, http.MethodGet, "/api/v1/journal/"+url.PathEscape(id)+"/document", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// CredentialsCheckResponse reports which credential roles resolve
type CredentialsCheckResponse struct {
	Primary bool     `json:"primary"`
	Proxy   bool     `json:"proxy"`
	Errors  []string `json:"errors"`
}

// CredentialsCheck resolves stored credentials without submitting
func (c *Client) CredentialsCheck(ctx context.Context) (*CredentialsCheckResponse, error) {
	var resp CredentialsCheckResponse
	if err := c.request(ctx, http.MethodGet, "/api/v1/credentials/check", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is a health probe result
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// Health checks process liveness
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.request(ctx, http.MethodGet, "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ready checks readiness to accept submissions
func (c *Client) Ready(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.request(ctx, http.MethodGet, "/readyz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
