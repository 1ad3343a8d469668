// File: internal/infra/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"billing-sync/internal/config"
	"billing-sync/internal/domain"
	"billing-sync/internal/domain/model"
	"billing-sync/internal/domain/ports/repository"
)

var _ repository.SubscriptionStore = (*Client)(nil)

// Client talks to the authoritative subscription store over its internal
// REST API. Upsert is idempotent on the backend side, keyed by user id.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg *config.BackendConfig) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", cfg.BaseURL)
	}
	return &Client{
		baseURL: u.String(),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) subscriptionURL(userID string) string {
	return c.baseURL + "/api/internal/subscriptions/" + url.PathEscape(userID)
}

func (c *Client) Upsert(ctx context.Context, rec *model.SubscriptionRecord) error {
	if rec == nil || rec.UserID == "" {
		return domain.ErrInvalidArgument
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.subscriptionURL(rec.UserID), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend upsert http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Find(ctx context.Context, userID string) (*model.SubscriptionRecord, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.subscriptionURL(userID), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("backend find http %d", resp.StatusCode)
	}
	var rec model.SubscriptionRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, errors.Join(errors.New("decode subscription record"), err)
	}
	return &rec, nil
}
