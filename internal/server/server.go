// Package server exposes the HTTP surface: webhook intake, batch analysis,
// status, and self-test endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"token-sniper/internal/config"
	"token-sniper/internal/domain"
	"token-sniper/internal/helius"
	"token-sniper/internal/observability"
	"token-sniper/internal/reporting"
	"token-sniper/internal/sniper"
)

// maxWebhookBody caps a single delivery; Helius batches stay well under this.
const maxWebhookBody = 8 << 20

// Server handles HTTP traffic for the sniper engine.
type Server struct {
	addr        string
	corsOrigins []string
	engine      *sniper.Engine
	cfg         *config.Config
	logger      *log.Logger
	httpServer  *http.Server
}

// Options configures the Server.
type Options struct {
	Addr        string
	CORSOrigins []string // default "*"
	Engine      *sniper.Engine
	Config      *config.Config
	Logger      *log.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		addr:        opts.Addr,
		corsOrigins: origins,
		engine:      opts.Engine,
		cfg:         opts.Config,
		logger:      logger,
	}
}

// Routes builds the request router. Exposed separately so tests can drive
// handlers through httptest without binding a port.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/webhooks/helius/{channel}", s.handleWebhook).Methods("POST")
	router.HandleFunc("/test/sniper", s.handleSelfTest).Methods("GET")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.Handle("/metrics", observability.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/analyze/tokens", s.handleAnalyze).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         3600,
	})
	return c.Handler(router)
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP server listening on %s", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// handleWebhook ingests one provider delivery. The channel path segment
// names the webhook that fired; it is recorded on every resulting event.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	payload, err := helius.ParsePayload(body)
	if err != nil {
		s.logger.Printf("Webhook %s: malformed payload: %v", channel, err)
		writeError(w, http.StatusBadRequest, "malformed payload")
		return
	}

	snapshots := s.engine.HandleDelivery(channel, payload)

	writeJSON(w, http.StatusOK, struct {
		Channel   string                 `json:"channel"`
		Processed int                    `json:"processed"`
		Profiles  []*domain.TokenProfile `json:"profiles,omitempty"`
	}{
		Channel:   channel,
		Processed: len(snapshots),
		Profiles:  snapshots,
	})
}

// analyzeRequest is the batch analysis envelope.
type analyzeRequest struct {
	TokenProfiles []*domain.TokenProfile `json:"token_profiles"`
	Source        string                 `json:"source"`
	Timestamp     int64                  `json:"timestamp"`
}

// handleAnalyze runs a submitted batch through validation and the AI
// gateway. Per-item failures surface as error-shaped decisions inside a
// 200 response; only a malformed envelope earns a 4xx.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed envelope: "+err.Error())
		return
	}
	if len(req.TokenProfiles) == 0 {
		writeError(w, http.StatusBadRequest, "token_profiles must not be empty")
		return
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	report := s.engine.AnalyzeBatch(r.Context(), req.TokenProfiles, source)

	writeJSON(w, http.StatusOK, struct {
		BatchID   string              `json:"batch_id"`
		Summary   reporting.Summary   `json:"summary"`
		Decisions []domain.AIDecision `json:"ai_decisions"`
		Dropped   interface{}         `json:"dropped_profiles,omitempty"`
	}{
		BatchID:   report.BatchID,
		Summary:   report.Summary,
		Decisions: report.Decisions,
		Dropped:   nonEmptyDrops(report),
	})
}

func nonEmptyDrops(report *reporting.BatchReport) interface{} {
	if len(report.Dropped) == 0 {
		return nil
	}
	return report.Dropped
}

func (s *Server) handleSelfTest(w http.ResponseWriter, r *http.Request) {
	results := s.engine.SelfTest(s.cfg)
	status := "passed"
	for _, res := range results {
		if res.Status != "passed" {
			status = "failed"
		}
	}
	writeJSON(w, http.StatusOK, struct {
		Status      string              `json:"status"`
		TestResults []sniper.TestResult `json:"test_results"`
		EngineStats sniper.Stats        `json:"engine_stats"`
	}{
		Status:      status,
		TestResults: results,
		EngineStats: s.engine.Stats(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Stats     sniper.Stats `json:"stats"`
		Timestamp time.Time    `json:"timestamp"`
	}{
		Stats:     s.engine.Stats(),
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}
