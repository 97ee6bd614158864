// Package eiq delivers sighting entity documents to the EclecticIQ
// Intelligence Center API.
package eiq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sightgate/sightgate/internal/sighting"
	"github.com/sightgate/sightgate/pkg/tracing"
)

const entitiesPath = "/entities"

// defaultTimeout bounds a single delivery, matching the integration's
// historical request timeout.
const defaultTimeout = 50 * time.Second

// Config holds configuration for the platform client.
type Config struct {
	// PlatformURL is the API base, e.g. "https://ic.example.com/api/v2".
	PlatformURL string
	// Timeout bounds a single delivery (default: 50s).
	Timeout time.Duration
	// Proxy configures the outbound proxy, password excluded.
	Proxy ProxyConfig
	// EnableTracing wraps the transport with the tracing RoundTripper.
	EnableTracing bool
}

// Client creates sighting entities in the intelligence platform. One
// synchronous delivery per submission: no retry, no de-duplication of
// concurrent submissions.
type Client struct {
	baseURL string
	timeout time.Duration
	proxy   ProxyConfig
	tracing bool
	logger  zerolog.Logger
}

// NewClient creates a platform client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.PlatformURL == "" {
		return nil, fmt.Errorf("platform URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.PlatformURL, "/"),
		timeout: timeout,
		proxy:   cfg.Proxy,
		tracing: cfg.EnableTracing,
		logger:  logger.With().Str("component", "eiq_client").Logger(),
	}, nil
}

// CreateEntityRequest carries the per-submission inputs of a delivery.
type CreateEntityRequest struct {
	// APIKey is the resolved primary credential.
	APIKey string
	// ProxyPassword is the resolved proxy credential; used only when the
	// proxy is enabled in configuration.
	ProxyPassword string
	// Entity is the document to deliver.
	Entity sighting.Entity
}

// CreateResult is a successful delivery outcome.
type CreateResult struct {
	// StatusCode is the upstream HTTP status.
	StatusCode int
	// EntityID is the identifier the platform assigned to the sighting.
	EntityID string
}

// createEntityResponse is the subset of the platform response surfaced to
// callers.
type createEntityResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// CreateEntity delivers a sighting entity document. Failures are returned as
// *TransportError and are not retried.
func (c *Client) CreateEntity(ctx context.Context, req CreateEntityRequest) (*CreateResult, error) {
	body, err := json.Marshal(req.Entity)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+entitiesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create platform request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	client, err := c.httpClient(req.ProxyPassword)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Msg("platform request failed")
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		terr := &TransportError{StatusCode: resp.StatusCode, Body: string(respBody)}
		// Platform-side failures are logged louder than request rejections.
		if resp.StatusCode >= 500 {
			c.logger.Error().Int("status", resp.StatusCode).Str("body", string(respBody)).
				Msg("platform returned server error")
		} else {
			c.logger.Warn().Int("status", resp.StatusCode).Str("body", string(respBody)).
				Msg("platform rejected sighting")
		}
		return nil, terr
	}

	var decoded createEntityResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode platform response: %w", err)
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("entity_id", decoded.Data.ID).
		Msg("sighting entity created")

	return &CreateResult{
		StatusCode: resp.StatusCode,
		EntityID:   decoded.Data.ID,
	}, nil
}

// EntityURL returns a link to a created entity, surfaced to users in the
// success message.
func (c *Client) EntityURL(entityID string) string {
	return fmt.Sprintf("%s%s/%s", c.baseURL, entitiesPath, entityID)
}

// httpClient builds the per-delivery HTTP client. The proxy password is a
// per-submission secret, so the transport cannot be shared across calls when
// the proxy is enabled.
func (c *Client) httpClient(proxyPassword string) (*http.Client, error) {
	var transport http.RoundTripper

	if c.proxy.IsEnabled() {
		proxyURL, err := buildProxyURL(c.proxy, proxyPassword)
		if err != nil {
			return nil, err
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	if c.tracing {
		transport = tracing.RoundTripper(transport)
	}

	return &http.Client{
		Timeout:   c.timeout,
		Transport: transport,
	}, nil
}
