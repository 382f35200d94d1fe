package sniper

import "token-sniper/internal/reporting"

// Stats is a point-in-time view of engine throughput.
type Stats struct {
	TokensProcessed uint64            `json:"tokens_processed"`
	TokensPassed    uint64            `json:"tokens_passed"`
	PassRate        float64           `json:"pass_rate"`
	OpenWindows     int               `json:"open_windows"`
	PendingDispatch int               `json:"pending_dispatch"`
	Batches         int               `json:"batches"`
	Totals          reporting.Summary `json:"totals"`
}

// Stats returns current engine counters. Counters are monotonic since
// process start; pass rate is passed over processed.
func (e *Engine) Stats() Stats {
	processed := e.tokensProcessed.Load()
	passed := e.tokensPassed.Load()
	rate := 0.0
	if processed > 0 {
		rate = float64(passed) / float64(processed)
	}
	e.pendingMu.Lock()
	pending := len(e.pending)
	e.pendingMu.Unlock()
	totals, batches := e.reporter.Totals()
	return Stats{
		TokensProcessed: processed,
		TokensPassed:    passed,
		PassRate:        rate,
		OpenWindows:     e.aggregator.Len(),
		PendingDispatch: pending,
		Batches:         batches,
		Totals:          totals,
	}
}
