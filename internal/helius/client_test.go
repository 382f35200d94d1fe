package helius

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newFastClient(baseURL string) *Client {
	return NewClient("test-key",
		WithBaseURL(baseURL),
		WithRateLimit(rate.Inf),
		WithRetryDelay(time.Millisecond),
	)
}

func TestCreateWebhook(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/webhooks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(Webhook{WebhookID: "wh-1", WebhookURL: gotBody["webhookURL"].(string)})
	}))
	defer srv.Close()

	c := newFastClient(srv.URL)
	created, err := c.CreateWebhook(context.Background(), WebhookConfig{
		Name:             "swaps",
		WebhookURL:       "https://sniper.example.com/webhooks/helius/swaps",
		AccountAddresses: []string{"addr-1"},
		TransactionTypes: []string{"SWAP"},
	})
	if err != nil {
		t.Fatalf("CreateWebhook failed: %v", err)
	}

	if created.WebhookID != "wh-1" {
		t.Errorf("expected webhook ID wh-1, got %q", created.WebhookID)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody["webhookType"] != "enhanced" {
		t.Errorf("expected enhanced webhook type, got %v", gotBody["webhookType"])
	}
}

func TestDo_RetriesOnThrottle(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]Webhook{})
	}))
	defer srv.Close()

	c := newFastClient(srv.URL)
	if _, err := c.ListWebhooks(context.Background()); err != nil {
		t.Fatalf("expected retry to recover from 429s, got %v", err)
	}
	if hits != 3 {
		t.Errorf("expected 3 attempts, got %d", hits)
	}
}

func TestDo_ClientErrorIsNotRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newFastClient(srv.URL)
	if _, err := c.ListWebhooks(context.Background()); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if hits != 1 {
		t.Errorf("expected a 400 to fail immediately, got %d attempts", hits)
	}
}

func TestDo_RetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithRateLimit(rate.Inf),
		WithRetryDelay(time.Millisecond),
		WithMaxRetries(2),
	)
	if _, err := c.ListWebhooks(context.Background()); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
}

func TestEnsureWebhooks_SkipsExistingByURL(t *testing.T) {
	var created []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]Webhook{
				{WebhookID: "wh-old", WebhookURL: "https://s.example.com/webhooks/helius/swaps"},
			})
		case http.MethodPost:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			url := body["webhookURL"].(string)
			created = append(created, url)
			json.NewEncoder(w).Encode(Webhook{WebhookID: "wh-new", WebhookURL: url})
		}
	}))
	defer srv.Close()

	c := newFastClient(srv.URL)
	webhooks, err := c.EnsureWebhooks(context.Background(), []WebhookConfig{
		{Name: "swaps", WebhookURL: "https://s.example.com/webhooks/helius/swaps"},
		{Name: "mints", WebhookURL: "https://s.example.com/webhooks/helius/mints"},
	})
	if err != nil {
		t.Fatalf("EnsureWebhooks failed: %v", err)
	}

	if len(webhooks) != 1 {
		t.Fatalf("expected 1 created webhook, got %d", len(webhooks))
	}
	if len(created) != 1 || created[0] != "https://s.example.com/webhooks/helius/mints" {
		t.Errorf("expected only the mints webhook created, got %v", created)
	}
}
