package helius

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"token-sniper/internal/domain"
)

// StreamConfig configures WebSocket stream behavior.
type StreamConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is the maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the event channel capacity.
	Buffer int
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            256,
	}
}

// Stream subscribes to Helius enhanced transactions over WebSocket and
// delivers collector events. It is the push alternative to webhook
// deliveries for deployments that cannot expose an inbound endpoint.
type Stream struct {
	endpoint  string
	addresses []string
	watched   map[string]bool
	channel   string
	config    StreamConfig
	logger    *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	events chan domain.RawEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewStream creates a stream for the given watched addresses. Events are
// tagged with the channel name, mirroring webhook channel routing.
func NewStream(endpoint string, addresses []string, channel string, config *StreamConfig, logger *log.Logger) *Stream {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}
	watched := make(map[string]bool, len(addresses))
	for _, addr := range addresses {
		watched[addr] = true
	}
	return &Stream{
		endpoint:  endpoint,
		addresses: addresses,
		watched:   watched,
		channel:   channel,
		config:    cfg,
		logger:    logger,
		events:    make(chan domain.RawEvent, cfg.Buffer),
		done:      make(chan struct{}),
	}
}

// Subscribe connects and starts delivering events. The returned channel is
// closed when the stream shuts down.
func (s *Stream) Subscribe(ctx context.Context) (<-chan domain.RawEvent, error) {
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	if err := s.sendSubscribe(); err != nil {
		s.closeConn()
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop(ctx)

	s.wg.Add(1)
	go s.pingLoop()

	return s.events, nil
}

// Close shuts the stream down and waits for its goroutines.
func (s *Stream) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	s.closeConn()
	s.wg.Wait()
	close(s.events)
}

func (s *Stream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

func (s *Stream) closeConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()
}

// subscribeRequest is the transactionSubscribe JSON-RPC request.
type subscribeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

func (s *Stream) sendSubscribe() error {
	req := subscribeRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  "transactionSubscribe",
		Params: []any{
			map[string]any{"accountInclude": s.addresses, "failed": false},
			map[string]any{"commitment": "confirmed", "encoding": "jsonParsed"},
		},
	}
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return s.conn.WriteJSON(req)
}

// notification is the transactionNotification envelope. The result carries
// the enhanced transaction in the same shape as webhook events.
type notification struct {
	Method string `json:"method"`
	Params struct {
		Result Event `json:"result"`
	} `json:"params"`
}

// readLoop reads notifications and reconnects with backoff on failure.
func (s *Stream) readLoop(ctx context.Context) {
	defer s.wg.Done()

	delay := s.config.ReconnectDelay
	for {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || ctx.Err() != nil {
				return
			}
			s.logger.Printf("Stream read error, reconnecting in %v: %v", delay, err)
			select {
			case <-s.done:
				return
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}
			if err := s.connect(ctx); err != nil {
				s.logger.Printf("Stream reconnect failed: %v", err)
				continue
			}
			if err := s.sendSubscribe(); err != nil {
				s.logger.Printf("Stream resubscribe failed: %v", err)
				continue
			}
			delay = s.config.ReconnectDelay
			continue
		}

		var note notification
		if err := json.Unmarshal(message, &note); err != nil || note.Method != "transactionNotification" {
			continue // subscription confirmations and unknown frames
		}
		// Events must carry the subscribed address they fired for, or the
		// collector's watch filter would discard every stream delivery.
		payload := WebhookPayload{
			AccountAddresses: []string{s.matchAddress(note.Params.Result)},
			Events:           []Event{note.Params.Result},
		}
		for _, event := range payload.RawEvents(s.channel) {
			select {
			case s.events <- event:
			default:
				// Slow consumer: drop rather than block the read loop.
				s.logger.Printf("Stream buffer full, dropping event for mint %s", event.Mint)
			}
		}
	}
}

// matchAddress resolves which subscribed address a notification concerns by
// scanning the accounts the transaction touched. Filtering is server-side,
// so when the parsed subset does not name a watched account the first
// subscription is the best remaining attribution.
func (s *Stream) matchAddress(event Event) string {
	for _, ad := range event.AccountData {
		if s.watched[ad.Account] {
			return ad.Account
		}
	}
	for _, tt := range event.TokenTransfers {
		if s.watched[tt.FromUserAccount] {
			return tt.FromUserAccount
		}
		if s.watched[tt.ToUserAccount] {
			return tt.ToUserAccount
		}
	}
	if len(s.addresses) > 0 {
		return s.addresses[0]
	}
	return ""
}

// pingLoop keeps the connection alive.
func (s *Stream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}
