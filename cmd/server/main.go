// Package main runs the sniper service: webhook intake, signal scoring,
// AI-gateway routing, and the operational HTTP surface, all in one process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"token-sniper/internal/cerebro"
	"token-sniper/internal/collector"
	"token-sniper/internal/config"
	"token-sniper/internal/decision"
	"token-sniper/internal/helius"
	"token-sniper/internal/profile"
	"token-sniper/internal/reporting"
	"token-sniper/internal/server"
	"token-sniper/internal/sniper"
	"token-sniper/internal/storage"
	"token-sniper/internal/storage/memory"
	"token-sniper/internal/storage/migrations"
	pgstore "token-sniper/internal/storage/postgres"
	"token-sniper/internal/weighting"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", os.Getenv("SNIPER_CONFIG"), "Path to YAML configuration file")
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	cerebroURL := flag.String("cerebro-url", os.Getenv("CEREBRO_URL"), "AI gateway base URL")
	cerebroToken := flag.String("cerebro-token", os.Getenv("CEREBRO_AUTH_TOKEN"), "AI gateway bearer token")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for the decision journal")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("HELIUS_WS_ENDPOINT"), "Helius WebSocket endpoint (optional, supplements webhooks)")
	wsChannel := flag.String("ws-channel", "stream", "Channel label for WebSocket-sourced events")
	flushInterval := flag.Duration("flush-interval", 5*time.Second, "Staged dispatch flush interval")
	sweepInterval := flag.Duration("sweep-interval", 1*time.Minute, "Window eviction and debounce sweep interval")
	corsOrigins := flag.String("cors-origins", "*", "Comma-separated allowed CORS origins")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *cerebroURL == "" {
		logger.Fatal("--cerebro-url is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Printf("Loaded config: %d weights, %d watch entries", len(cfg.Weights), len(cfg.Watch))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create decision journal store
	decisionStore, cleanup, err := createDecisionStore(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create decision store: %v", err)
	}
	defer cleanup()

	// AI gateway client and router
	clientOpts := []cerebro.ClientOption{cerebro.WithTimeout(cfg.RequestTimeout)}
	if *cerebroToken != "" {
		clientOpts = append(clientOpts, cerebro.WithAuthToken(*cerebroToken))
	}
	gateway := cerebro.NewClient(*cerebroURL, clientOpts...)
	router := cerebro.NewRouter(cerebro.RouterOptions{
		Gateway:      gateway,
		Concurrency:  cfg.Concurrency,
		Timeout:      cfg.RequestTimeout,
		QueueCeiling: cfg.QueueCeiling,
		Logger:       log.New(os.Stdout, "[router] ", log.LstdFlags|log.Lshortfile),
	})

	// Pipeline components
	engine := sniper.New(sniper.Options{
		Collector: collector.New(cfg, log.New(os.Stdout, "[collector] ", log.LstdFlags|log.Lshortfile)),
		Weighter:  weighting.New(cfg.Weights),
		Aggregator: profile.New(profile.Options{
			Classifier: decision.NewClassifier(cfg.Scoring),
			TopN:       cfg.TopSignals,
			TTL:        cfg.ProfileTTL,
			Logger:     log.New(os.Stdout, "[profile] ", log.LstdFlags|log.Lshortfile),
		}),
		Router:        router,
		Reporter:      reporting.NewReporter(),
		DecisionStore: decisionStore,
		FlushInterval: *flushInterval,
		SweepInterval: *sweepInterval,
		Logger:        log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile),
	})

	srv := server.New(server.Options{
		Addr:        *listenAddr,
		CORSOrigins: splitCSV(*corsOrigins),
		Engine:      engine,
		Config:      cfg,
		Logger:      logger,
	})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return engine.Run(gctx) })
	if *wsEndpoint != "" {
		g.Go(func() error { return runStream(gctx, *wsEndpoint, *wsChannel, cfg, engine) })
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// loadConfig reads the YAML config, falling back to built-in defaults when
// no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// createDecisionStore wires the decision journal to memory or PostgreSQL.
func createDecisionStore(ctx context.Context, postgresDSN string, useMemory bool) (storage.DecisionStore, func(), error) {
	if useMemory {
		return memory.NewDecisionStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	return pgstore.NewDecisionStore(pool), func() { pool.Close() }, nil
}

// runStream feeds WebSocket transaction notifications into the engine.
// Reconnects are handled inside the stream; this loop only drains events.
func runStream(ctx context.Context, endpoint, channel string, cfg *config.Config, engine *sniper.Engine) error {
	addresses := make([]string, 0, len(cfg.Watch))
	seen := make(map[string]bool)
	for _, entry := range cfg.Watch {
		if !seen[entry.Address] {
			seen[entry.Address] = true
			addresses = append(addresses, entry.Address)
		}
	}
	if len(addresses) == 0 {
		return nil // nothing to subscribe to, webhook intake carries the load
	}

	stream := helius.NewStream(endpoint, addresses, channel, nil,
		log.New(os.Stdout, "[stream] ", log.LstdFlags|log.Lshortfile))
	events, err := stream.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			engine.Ingest(event)
		}
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads .env from the working directory without overriding
// variables already set in the environment.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
