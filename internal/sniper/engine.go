// Package sniper wires the signal pipeline together: provider events in,
// scored profiles out, qualifying profiles routed to the AI gateway.
package sniper

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"token-sniper/internal/cerebro"
	"token-sniper/internal/collector"
	"token-sniper/internal/domain"
	"token-sniper/internal/helius"
	"token-sniper/internal/observability"
	"token-sniper/internal/profile"
	"token-sniper/internal/reporting"
	"token-sniper/internal/storage"
	"token-sniper/internal/weighting"
)

// Engine runs the scoring pipeline. All mutation funnels through the
// collector and aggregator, which handle their own locking; the engine
// itself only guards its pending dispatch set.
type Engine struct {
	collector  *collector.Collector
	weighter   *weighting.Weighter
	aggregator *profile.Aggregator
	router     *cerebro.Router
	reporter   *reporting.Reporter
	decisions  storage.DecisionStore
	logger     *log.Logger

	flushInterval time.Duration
	sweepInterval time.Duration

	// Performance tracking, mirrored in /test/sniper engine stats.
	tokensProcessed atomic.Uint64
	tokensPassed    atomic.Uint64

	// pending holds the latest qualifying snapshot per mint until the next
	// dispatch flush.
	pendingMu sync.Mutex
	pending   map[string]*domain.TokenProfile
	order     []string
}

// Options configures the Engine.
type Options struct {
	Collector     *collector.Collector
	Weighter      *weighting.Weighter
	Aggregator    *profile.Aggregator
	Router        *cerebro.Router
	Reporter      *reporting.Reporter
	DecisionStore storage.DecisionStore
	FlushInterval time.Duration // pending dispatch interval, default 5s
	SweepInterval time.Duration // eviction/debounce sweep interval, default 1m
	Logger        *log.Logger
}

// New creates an Engine.
func New(opts Options) *Engine {
	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = 5 * time.Second
	}
	sweepInterval := opts.SweepInterval
	if sweepInterval == 0 {
		sweepInterval = 1 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		collector:     opts.Collector,
		weighter:      opts.Weighter,
		aggregator:    opts.Aggregator,
		router:        opts.Router,
		reporter:      opts.Reporter,
		decisions:     opts.DecisionStore,
		flushInterval: flushInterval,
		sweepInterval: sweepInterval,
		logger:        logger,
		pending:       make(map[string]*domain.TokenProfile),
	}
}

// HandleDelivery runs every event of one webhook delivery through the
// pipeline and returns the profile snapshots it produced.
func (e *Engine) HandleDelivery(channel string, payload *helius.WebhookPayload) []*domain.TokenProfile {
	observability.RecordWebhookDelivery(channel)
	var snapshots []*domain.TokenProfile
	for _, event := range payload.RawEvents(channel) {
		snapshots = append(snapshots, e.Ingest(event)...)
	}
	return snapshots
}

// Ingest runs one provider event through collect → weigh → aggregate →
// classify and stages qualifying snapshots for dispatch.
func (e *Engine) Ingest(event domain.RawEvent) []*domain.TokenProfile {
	deltas := e.collector.Collect(event)
	if len(deltas) == 0 {
		observability.RecordEventDiscarded("unwatched")
		return nil
	}
	observability.RecordEventAccepted()

	var snapshots []*domain.TokenProfile
	for _, delta := range deltas {
		sig := e.weighter.Apply(delta.Obs)
		observability.RecordSignalEmitted(sig.SignalType.String(), delta.Merged)

		snapshot := e.aggregator.Add(delta.Obs.Mint, sig, delta.Merged)
		observability.RecordProfileScored(snapshot.RecommendedAction.String())
		e.tokensProcessed.Add(1)

		switch snapshot.RecommendedAction {
		case domain.ActionSendToCerebro:
			e.tokensPassed.Add(1)
			e.stage(snapshot)
		case domain.ActionExecute:
			e.tokensPassed.Add(1)
			// Autonomous execution path: record and retire immediately, no
			// gateway round trip needed at this score and risk.
			e.logger.Printf("Execute recommended for mint %s (score %.3f, risk %s)",
				snapshot.Mint, snapshot.WeightedScore, snapshot.RiskLevel)
			e.aggregator.Retire(snapshot.Mint)
		}
		snapshots = append(snapshots, snapshot)
	}
	observability.UpdateOpenWindows(e.aggregator.Len())
	return snapshots
}

// stage keeps the latest qualifying snapshot per mint for the next flush.
func (e *Engine) stage(snapshot *domain.TokenProfile) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	if _, seen := e.pending[snapshot.Mint]; !seen {
		e.order = append(e.order, snapshot.Mint)
	}
	e.pending[snapshot.Mint] = snapshot
}

// FlushPending dispatches staged profiles to the AI gateway. Returns nil
// when nothing is staged.
func (e *Engine) FlushPending(ctx context.Context) *reporting.BatchReport {
	e.pendingMu.Lock()
	if len(e.pending) == 0 {
		e.pendingMu.Unlock()
		return nil
	}
	profiles := make([]*domain.TokenProfile, 0, len(e.order))
	for _, mint := range e.order {
		profiles = append(profiles, e.pending[mint])
	}
	e.pending = make(map[string]*domain.TokenProfile)
	e.order = nil
	e.pendingMu.Unlock()

	return e.AnalyzeBatch(ctx, profiles, "sniper_engine")
}

// AnalyzeBatch validates, routes, and reports one batch of profiles.
// Invalid entries become error-shaped decisions at their positions; shed
// profiles are recorded as dropped; the decision log preserves submission
// order. Failures are isolated per item: the batch itself always succeeds.
func (e *Engine) AnalyzeBatch(ctx context.Context, profiles []*domain.TokenProfile, source string) *reporting.BatchReport {
	valid := make([]*domain.TokenProfile, 0, len(profiles))
	invalid := make(map[int]string)
	for i, p := range profiles {
		if err := p.Validate(); err != nil {
			invalid[i] = domain.DecisionErrValidation
			continue
		}
		valid = append(valid, normalizeProfile(p))
	}

	result := e.router.Route(ctx, valid)
	observability.RecordRouted(len(result.Decisions), len(result.Dropped))

	// Drops are keyed by position within the routed batch, not by mint: a
	// batch may carry the same mint twice with only one instance shed.
	droppedIdx := make(map[int]bool, len(result.Dropped))
	for _, drop := range result.Dropped {
		droppedIdx[drop.Index] = true
	}

	// Reassemble in submission order: validation errors at their original
	// positions, dropped entries excluded, routed decisions in sequence.
	decisions := make([]domain.AIDecision, 0, len(profiles))
	next := 0
	routedIdx := 0
	for i, p := range profiles {
		if reason, ok := invalid[i]; ok {
			mint := ""
			if p != nil {
				mint = p.Mint
			}
			decisions = append(decisions, domain.NewAIDecisionError(mint, reason))
			continue
		}
		idx := routedIdx
		routedIdx++
		if droppedIdx[idx] {
			continue
		}
		decisions = append(decisions, result.Decisions[next])
		next++
	}

	report := e.reporter.Report(source, len(profiles), decisions, result.Dropped)
	observability.RecordBatch(report.Summary.Succeeded, report.Summary.Failed)
	e.journal(ctx, report)
	e.retireTerminal(report)
	return report
}

// journal persists the batch to the decision store. Journal failures are
// logged, never propagated: the journal is bookkeeping, not the pipeline.
func (e *Engine) journal(ctx context.Context, report *reporting.BatchReport) {
	if e.decisions == nil {
		return
	}
	records := domain.RecordsForBatch(report.BatchID, report.Source, report.Decisions, time.Now().UnixMilli())
	if err := e.decisions.InsertBatch(ctx, records); err != nil {
		e.logger.Printf("Journal batch %s failed: %v", report.BatchID, err)
	}
}

// retireTerminal retires windows whose gateway verdict is terminal.
func (e *Engine) retireTerminal(report *reporting.BatchReport) {
	for i := range report.Decisions {
		d := &report.Decisions[i]
		if !d.Succeeded() {
			continue
		}
		switch d.Decision.Action {
		case "Execute", "Buy", "Sell", "Avoid", "Ignore":
			e.aggregator.Retire(d.Mint)
		}
	}
}

// Run drives the background loops: pending dispatch, TTL eviction, and
// debounce sweeping. Blocks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Printf("Engine started, flush interval: %v, sweep interval: %v", e.flushInterval, e.sweepInterval)

	flushTicker := time.NewTicker(e.flushInterval)
	defer flushTicker.Stop()
	sweepTicker := time.NewTicker(e.sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush so staged work is not lost on shutdown.
			if report := e.FlushPending(context.WithoutCancel(ctx)); report != nil {
				e.logger.Printf("Final flush: %d decisions", len(report.Decisions))
			}
			return ctx.Err()
		case <-flushTicker.C:
			if report := e.FlushPending(ctx); report != nil {
				e.logger.Printf("Dispatched batch %s: %d succeeded, %d failed, %d dropped",
					report.BatchID, report.Summary.Succeeded, report.Summary.Failed, report.Summary.Dropped)
			}
		case <-sweepTicker.C:
			now := time.Now()
			e.collector.Sweep(now)
			if n := e.aggregator.Evict(now); n > 0 {
				observability.RecordEviction(n)
				e.logger.Printf("Evicted %d token windows", n)
			}
			observability.UpdateOpenWindows(e.aggregator.Len())
		}
	}
}

// normalizeProfile recomputes the derived signal fields and top-signal
// ranking of a wire-submitted profile. Aggregate scores are left as
// submitted; only per-signal drift is corrected.
func normalizeProfile(p *domain.TokenProfile) *domain.TokenProfile {
	normalized := *p
	normalized.Signals = make([]domain.Signal, len(p.Signals))
	for i, sig := range p.Signals {
		normalized.Signals[i] = weighting.Normalize(sig)
	}
	if len(normalized.Signals) > 0 {
		topN := len(p.TopSignals)
		if topN == 0 {
			topN = 3
		}
		normalized.TopSignals = profile.TopSignals(normalized.Signals, topN)
	}
	return &normalized
}
