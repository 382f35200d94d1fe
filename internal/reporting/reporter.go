// Package reporting aggregates AI decisions and drops into batch summaries.
// Read-only with respect to upstream state: it never mutates profiles.
package reporting

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"token-sniper/internal/cerebro"
	"token-sniper/internal/domain"
)

// Summary is the per-batch outcome breakdown.
type Summary struct {
	Submitted int   `json:"submitted"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	Dropped   int   `json:"dropped"`
	Timestamp int64 `json:"timestamp"` // Unix seconds
}

// BatchReport is one analyze batch: its summary plus the ordered decision
// log, aligned with the submission order.
type BatchReport struct {
	BatchID   string              `json:"batch_id"`
	Source    string              `json:"source,omitempty"`
	Summary   Summary             `json:"summary"`
	Decisions []domain.AIDecision `json:"ai_decisions"`
	Dropped   []cerebro.Drop      `json:"dropped_profiles,omitempty"`
}

// Reporter builds batch reports and keeps running totals. Safe for
// concurrent use.
type Reporter struct {
	clock func() time.Time

	mu      sync.Mutex
	batches int
	totals  Summary
	last    *BatchReport
}

// NewReporter creates a Reporter.
func NewReporter() *Reporter {
	return &Reporter{clock: time.Now}
}

// Report summarizes one batch. decisions is the full ordered log including
// validation-rejected entries; drops are the profiles shed before dispatch.
// submitted is the original submission count (decisions + drops).
func (r *Reporter) Report(source string, submitted int, decisions []domain.AIDecision, drops []cerebro.Drop) *BatchReport {
	summary := Summary{
		Submitted: submitted,
		Dropped:   len(drops),
		Timestamp: r.clock().Unix(),
	}
	for i := range decisions {
		if decisions[i].Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	report := &BatchReport{
		BatchID:   uuid.NewString(),
		Source:    source,
		Summary:   summary,
		Decisions: decisions,
		Dropped:   drops,
	}

	r.mu.Lock()
	r.batches++
	r.totals.Submitted += summary.Submitted
	r.totals.Succeeded += summary.Succeeded
	r.totals.Failed += summary.Failed
	r.totals.Dropped += summary.Dropped
	r.totals.Timestamp = summary.Timestamp
	r.last = report
	r.mu.Unlock()

	return report
}

// Totals returns the running totals across all batches and the batch count.
func (r *Reporter) Totals() (Summary, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totals, r.batches
}

// Last returns the most recent batch report, nil if none yet.
func (r *Reporter) Last() *BatchReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
