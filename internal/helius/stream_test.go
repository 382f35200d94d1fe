package helius

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"token-sniper/internal/collector"
	"token-sniper/internal/config"
	"token-sniper/internal/domain"
)

const (
	streamTestAddress = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8" // Raydium AMM
	streamTestMint    = "So11111111111111111111111111111111111111112"
)

const streamNotification = `{
	"jsonrpc": "2.0",
	"method": "transactionNotification",
	"params": {
		"result": {
			"transaction": {"signature": "sig-ws-1", "timestamp": 1700000000, "type": "SWAP"},
			"tokenTransfers": [
				{"fromUserAccount": "buyer", "toUserAccount": "seller", "tokenAmount": 180000, "mint": "` + streamTestMint + `"}
			],
			"accountData": [{"account": "` + streamTestAddress + `"}]
		}
	}
}`

// newStreamServer runs a WebSocket endpoint that confirms the subscription
// and pushes one canned notification.
func newStreamServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req subscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method != "transactionSubscribe" {
			t.Errorf("expected transactionSubscribe, got %q", req.Method)
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"result":42}`))
		conn.WriteMessage(websocket.TextMessage, []byte(streamNotification))

		// hold the connection open until the client disconnects
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestStream_DeliversEventsTaggedWithWatchedAddress(t *testing.T) {
	srv := newStreamServer(t)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	stream := NewStream(wsURL, []string{streamTestAddress}, "stream", nil, log.New(io.Discard, "", 0))
	events, err := stream.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer stream.Close()

	var event domain.RawEvent
	select {
	case event = <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a stream event")
	}

	if event.Address != streamTestAddress {
		t.Fatalf("expected event tagged with subscribed address, got %q", event.Address)
	}
	if event.Mint != streamTestMint || event.TxType != domain.TxTypeSwap {
		t.Errorf("unexpected event: mint=%q type=%q", event.Mint, event.TxType)
	}
	if event.Channel != "stream" {
		t.Errorf("expected channel stream, got %q", event.Channel)
	}
	if event.Amount != 180_000 {
		t.Errorf("expected amount 180000, got %f", event.Amount)
	}

	// The event must survive an active watch filter keyed on the
	// subscribed address, end to end into the collector.
	cfg := config.Default()
	cfg.Watch = []config.WatchEntry{{
		Address:          streamTestAddress,
		TransactionTypes: []string{domain.TxTypeSwap},
		Channel:          "stream",
	}}
	col := collector.New(cfg, log.New(io.Discard, "", 0))
	deltas := col.Collect(event)
	if len(deltas) == 0 {
		t.Fatal("expected the watched stream event to produce observations")
	}
}

func TestStream_MatchAddress(t *testing.T) {
	stream := NewStream("ws://unused", []string{streamTestAddress, "otherAddr"}, "stream", nil, log.New(io.Discard, "", 0))

	// watched account named in accountData wins
	got := stream.matchAddress(Event{
		AccountData: []AccountData{{Account: "unrelated"}, {Account: streamTestAddress}},
	})
	if got != streamTestAddress {
		t.Errorf("expected accountData match, got %q", got)
	}

	// watched account on either side of a token transfer
	got = stream.matchAddress(Event{
		TokenTransfers: []TokenTransfer{{FromUserAccount: "x", ToUserAccount: "otherAddr"}},
	})
	if got != "otherAddr" {
		t.Errorf("expected transfer-side match, got %q", got)
	}

	// no watched account in the parsed subset: first subscription
	got = stream.matchAddress(Event{})
	if got != streamTestAddress {
		t.Errorf("expected first subscription fallback, got %q", got)
	}
}
