package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const passwordsEndpoint = "services/storage/passwords"

// StoreConfig configures the platform secret-store client.
type StoreConfig struct {
	// BaseURL is the management URL of the host platform, e.g.
	// "https://localhost:8089".
	BaseURL string
	// Token is the bearer token used to authenticate against the store.
	Token string
	// Timeout bounds a single listing call.
	Timeout time.Duration
}

// StoreClient lists stored secrets from the host platform's password store.
// It only consumes the listing shape; the store implementation is owned by
// the platform.
type StoreClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewStoreClient creates a secret-store client.
func NewStoreClient(cfg StoreConfig) (*StoreClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("secret store base URL is required")
	}
	if cfg.Token == "" {
		return nil, errors.New("secret store token is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &StoreClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// storedPasswordList is the JSON listing shape of the password store.
type storedPasswordList struct {
	Entry []struct {
		ACL struct {
			App string `json:"app"`
		} `json:"acl"`
		Content struct {
			Realm         string `json:"realm"`
			ClearPassword string `json:"clear_password"`
		} `json:"content"`
	} `json:"entry"`
}

// List fetches all stored password entries, in the store's listing order.
func (c *StoreClient) List(ctx context.Context) ([]SecretRecord, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, passwordsEndpoint)
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid secret store url: %w", err)
	}
	query := reqURL.Query()
	query.Set("output_mode", "json")
	query.Set("count", "0")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create secret store request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("secret store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("secret store returned status %d", resp.StatusCode)
	}

	var listing storedPasswordList
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode secret store response: %w", err)
	}

	records := make([]SecretRecord, 0, len(listing.Entry))
	for _, entry := range listing.Entry {
		records = append(records, SecretRecord{
			AppScope:      entry.ACL.App,
			Realm:         entry.Content.Realm,
			ClearPassword: entry.Content.ClearPassword,
		})
	}

	return records, nil
}
