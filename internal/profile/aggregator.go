// Package profile maintains the per-mint accumulation arena and produces
// scored TokenProfile snapshots.
package profile

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"token-sniper/internal/decision"
	"token-sniper/internal/domain"
)

// window is the accumulation buffer for one mint. Mutated under its own
// lock only, so different mints aggregate fully in parallel.
type window struct {
	mu       sync.Mutex
	signals  []domain.Signal
	lastSeen int64 // Unix ms of last applied signal
	retired  bool  // terminal action reported and acted upon
}

// Aggregator accumulates weighted signals per mint and recomputes the
// derived scores on every mutation. Snapshots handed out are deep copies
// and immutable from the caller's perspective.
type Aggregator struct {
	classifier *decision.Classifier
	topN       int
	ttl        time.Duration
	logger     *log.Logger

	// clock is swappable for eviction tests.
	clock func() time.Time

	mu      sync.RWMutex
	windows map[string]*window
}

// Options configures the Aggregator.
type Options struct {
	Classifier *decision.Classifier
	TopN       int           // default 3
	TTL        time.Duration // inactivity eviction window, default 15m
	Logger     *log.Logger
	Clock      func() time.Time
}

// New creates an Aggregator.
func New(opts Options) *Aggregator {
	topN := opts.TopN
	if topN == 0 {
		topN = 3
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{
		classifier: opts.Classifier,
		topN:       topN,
		ttl:        ttl,
		logger:     logger,
		clock:      clock,
		windows:    make(map[string]*window),
	}
}

// Add applies one weighted signal to its mint's window and returns the
// resulting profile snapshot. merged marks a debounce update: the prior
// signal with the same (type, source) is replaced in place instead of
// appended, so redundant provider deliveries are not double-counted.
// A retired window (terminal action already acted upon) starts fresh.
func (a *Aggregator) Add(mint string, sig domain.Signal, merged bool) *domain.TokenProfile {
	w := a.getOrCreate(mint)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.retired {
		w.signals = w.signals[:0]
		w.retired = false
	}

	if merged {
		replaced := false
		for i := len(w.signals) - 1; i >= 0; i-- {
			if w.signals[i].SignalType == sig.SignalType && w.signals[i].Source == sig.Source {
				w.signals[i] = sig
				replaced = true
				break
			}
		}
		if !replaced {
			w.signals = append(w.signals, sig)
		}
	} else {
		w.signals = append(w.signals, sig)
	}
	w.lastSeen = a.clock().UnixMilli()

	return a.snapshotLocked(mint, w)
}

func (a *Aggregator) getOrCreate(mint string) *window {
	a.mu.RLock()
	w, ok := a.windows[mint]
	a.mu.RUnlock()
	if ok {
		return w
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if w, ok := a.windows[mint]; ok {
		return w
	}
	w = &window{}
	a.windows[mint] = w
	return w
}

// Snapshot returns the current profile for a mint, or nil if no window is open.
func (a *Aggregator) Snapshot(mint string) *domain.TokenProfile {
	a.mu.RLock()
	w, ok := a.windows[mint]
	a.mu.RUnlock()
	if !ok {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.signals) == 0 {
		return nil
	}
	return a.snapshotLocked(mint, w)
}

// Snapshots returns profiles for every open window, in no particular order.
func (a *Aggregator) Snapshots() []*domain.TokenProfile {
	a.mu.RLock()
	mints := make([]string, 0, len(a.windows))
	for mint := range a.windows {
		mints = append(mints, mint)
	}
	a.mu.RUnlock()

	out := make([]*domain.TokenProfile, 0, len(mints))
	for _, mint := range mints {
		if p := a.Snapshot(mint); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of open windows.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.windows)
}

// Retire marks a mint's window as acted upon after a terminal action was
// reported. The next eviction sweep drops it; an in-flight AI request for
// the mint is unaffected since it holds its own snapshot.
func (a *Aggregator) Retire(mint string) {
	a.mu.RLock()
	w, ok := a.windows[mint]
	a.mu.RUnlock()
	if !ok {
		return
	}
	w.mu.Lock()
	w.retired = true
	w.mu.Unlock()
}

// Evict drops windows that have been inactive longer than the TTL or were
// retired. Returns the number of windows dropped.
func (a *Aggregator) Evict(now time.Time) int {
	cutoff := now.Add(-a.ttl).UnixMilli()

	a.mu.Lock()
	defer a.mu.Unlock()
	evicted := 0
	for mint, w := range a.windows {
		w.mu.Lock()
		stale := w.retired || w.lastSeen < cutoff
		w.mu.Unlock()
		if stale {
			delete(a.windows, mint)
			evicted++
		}
	}
	return evicted
}

// RunJanitor evicts on an interval until the context is cancelled.
func (a *Aggregator) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Evict(a.clock()); n > 0 {
				a.logger.Printf("Evicted %d inactive token windows", n)
			}
		}
	}
}

// snapshotLocked builds an immutable profile snapshot. Caller holds w.mu.
func (a *Aggregator) snapshotLocked(mint string, w *window) *domain.TokenProfile {
	signals := make([]domain.Signal, len(w.signals))
	copy(signals, w.signals)

	potential, risk, riskConfidence := Scores(signals)
	weighted := potential * (1 - risk)
	riskLevel := a.classifier.RiskLevelFor(risk)
	action := a.classifier.Classify(weighted, risk, riskLevel)

	return &domain.TokenProfile{
		Mint:              mint,
		Score:             weighted,
		Signals:           signals,
		TopSignals:        TopSignals(signals, a.topN),
		PotentialScore:    potential,
		RiskScore:         risk,
		WeightedScore:     weighted,
		RiskConfidence:    riskConfidence,
		RiskLevel:         riskLevel,
		RecommendedAction: action,
		AnalysisTimestamp: a.clock().Unix(),
	}
}

// Scores computes the confidence-weighted potential and risk aggregates.
// riskConfidence is the count of risk-type signals observed: a risk score of
// 0 with riskConfidence 0 means "no risk evidence", not "no risk".
func Scores(signals []domain.Signal) (potential, risk float64, riskConfidence int) {
	var potSum, potWeight, riskSum, riskWeight float64
	for _, s := range signals {
		switch {
		case s.SignalType.IsPositive():
			potSum += s.WeightedStrength * s.Confidence
			potWeight += s.Confidence
		case s.SignalType.IsRisk():
			riskSum += s.WeightedStrength * s.Confidence
			riskWeight += s.Confidence
			riskConfidence++
		}
	}
	if potWeight > 0 {
		potential = domain.Clamp01(potSum / potWeight)
	}
	if riskWeight > 0 {
		risk = domain.Clamp01(riskSum / riskWeight)
	}
	return potential, risk, riskConfidence
}

// TopSignals returns the n signals with the highest weighted strength.
// Ties break by higher confidence, then earlier observation time. Input
// order is left untouched; the result is a fresh slice.
func TopSignals(signals []domain.Signal, n int) []domain.Signal {
	if n <= 0 || len(signals) == 0 {
		return nil
	}
	sorted := make([]domain.Signal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].WeightedStrength != sorted[j].WeightedStrength {
			return sorted[i].WeightedStrength > sorted[j].WeightedStrength
		}
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		return sorted[i].ObservedAt < sorted[j].ObservedAt
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
