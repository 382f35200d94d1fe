package helius

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Default provisioning client configuration values.
const (
	DefaultBaseURL     = "https://api.helius.xyz"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// DefaultRate paces webhook mutations; the provisioning API throttles
	// aggressively.
	DefaultRate = rate.Limit(1)
)

// Webhook is one provisioned webhook as the API reports it.
type Webhook struct {
	WebhookID        string   `json:"webhookID"`
	WebhookURL       string   `json:"webhookURL"`
	AccountAddresses []string `json:"accountAddresses"`
	TransactionTypes []string `json:"transactionTypes"`
	WebhookType      string   `json:"webhookType,omitempty"`
}

// WebhookConfig describes one webhook to provision.
type WebhookConfig struct {
	Name             string
	WebhookURL       string
	AccountAddresses []string
	TransactionTypes []string
}

// Client provisions webhooks against the Helius API. It is an explicit
// value holding its own base URL and credentials; no process-wide session
// state. Mutations are paced by a rate limiter and retried with bounded
// exponential backoff instead of fixed sleeps.
type Client struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithRateLimit sets the mutation pacing rate.
func WithRateLimit(limit rate.Limit) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, 1)
	}
}

// WithMaxRetries sets maximum retry attempts for retryable statuses.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// NewClient creates a provisioning client for the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: DefaultHTTPTimeout},
		limiter:     rate.NewLimiter(DefaultRate, 1),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateWebhook provisions one webhook and returns its API record.
func (c *Client) CreateWebhook(ctx context.Context, cfg WebhookConfig) (*Webhook, error) {
	body := map[string]any{
		"webhookURL":       cfg.WebhookURL,
		"accountAddresses": cfg.AccountAddresses,
		"transactionTypes": cfg.TransactionTypes,
		"webhookType":      "enhanced",
	}
	var created Webhook
	if err := c.do(ctx, http.MethodPost, "/v1/webhooks", body, &created); err != nil {
		return nil, fmt.Errorf("create webhook %q: %w", cfg.Name, err)
	}
	return &created, nil
}

// ListWebhooks returns all provisioned webhooks.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var webhooks []Webhook
	if err := c.do(ctx, http.MethodGet, "/v1/webhooks", nil, &webhooks); err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	return webhooks, nil
}

// DeleteWebhook removes a webhook by ID.
func (c *Client) DeleteWebhook(ctx context.Context, webhookID string) error {
	if err := c.do(ctx, http.MethodDelete, "/v1/webhooks/"+webhookID, nil, nil); err != nil {
		return fmt.Errorf("delete webhook %s: %w", webhookID, err)
	}
	return nil
}

// EnsureWebhooks creates every config whose webhook URL is not already
// provisioned. Returns the webhooks created in config order.
func (c *Client) EnsureWebhooks(ctx context.Context, configs []WebhookConfig) ([]*Webhook, error) {
	existing, err := c.ListWebhooks(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, w := range existing {
		known[w.WebhookURL] = true
	}

	var created []*Webhook
	for _, cfg := range configs {
		if known[cfg.WebhookURL] {
			continue
		}
		w, err := c.CreateWebhook(ctx, cfg)
		if err != nil {
			return created, err
		}
		created = append(created, w)
	}
	return created, nil
}

// do executes one API call with pacing and retry on throttling or server
// errors. out is decoded from the response body when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	delay := c.retryDelay
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if out == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 256))
			continue
		default:
			return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 256))
		}
	}
	return fmt.Errorf("retries exhausted: %w", lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
