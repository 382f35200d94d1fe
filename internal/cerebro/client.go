// Package cerebro talks to the external AI decision gateway: a thin HTTP
// client plus the bounded-concurrency router that forwards qualifying
// profiles under latency and failure constraints.
package cerebro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"token-sniper/internal/domain"
	"token-sniper/internal/observability"
)

// Default client configuration values.
const (
	DefaultTimeout    = 5 * time.Second
	DefaultDecidePath = "/api/v1/agent/decide"
)

// Gateway is the opaque AI decision collaborator.
type Gateway interface {
	// Decide requests a verdict for one profile. Blocking, bounded by ctx.
	Decide(ctx context.Context, profile *domain.TokenProfile) (*domain.AgentDecision, error)
}

// Client implements Gateway over HTTP with a circuit breaker. It is an
// explicit value holding its own configuration; no process-wide singleton.
type Client struct {
	baseURL    string
	decidePath string
	authToken  string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithAuthToken sets the bearer token sent to the gateway.
func WithAuthToken(token string) ClientOption {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithDecidePath overrides the decision endpoint path.
func WithDecidePath(path string) ClientOption {
	return func(c *Client) {
		c.decidePath = path
	}
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		decidePath: DefaultDecidePath,
		client:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "cerebro",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return c
}

// decideRequest is the wire shape of a single-profile decision request.
type decideRequest struct {
	TokenProfile *domain.TokenProfile `json:"token_profile"`
	Source       string               `json:"source"`
	Timestamp    int64                `json:"timestamp"`
}

// Decide posts one profile to the gateway and returns its verdict.
// LatencyMS falls back to the measured round trip when the gateway omits it.
func (c *Client) Decide(ctx context.Context, profile *domain.TokenProfile) (*domain.AgentDecision, error) {
	body, err := json.Marshal(decideRequest{
		TokenProfile: profile,
		Source:       "sniper_engine",
		Timestamp:    time.Now().Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal decide request: %w", err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.decidePath, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build decide request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.authToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.authToken)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}

		var dec domain.AgentDecision
		if err := json.NewDecoder(resp.Body).Decode(&dec); err != nil {
			return nil, fmt.Errorf("decode decision: %w", err)
		}
		return &dec, nil
	})
	if err != nil {
		// Unwrap breaker's sentinel into the caller's context error when the
		// request itself was cancelled, so timeout mapping stays correct.
		if ctx.Err() != nil {
			observability.RecordGatewayError("timeout")
			return nil, ctx.Err()
		}
		observability.RecordGatewayError("upstream")
		return nil, err
	}

	observability.RecordGatewayLatency(time.Since(start).Seconds())
	dec := result.(*domain.AgentDecision)
	if dec.LatencyMS == 0 {
		dec.LatencyMS = time.Since(start).Milliseconds()
	}
	return dec, nil
}

// Health probes the gateway liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway health returned status %d", resp.StatusCode)
	}
	return nil
}
