// Package collector turns provider push events into raw signal observations.
// It filters against the watch configuration, maps transaction types to
// signal candidates, and debounces redundant provider deliveries.
package collector

import (
	"log"
	"sync"
	"time"

	"token-sniper/internal/config"
	"token-sniper/internal/domain"
)

// Strength normalization scales: an amount at or above the scale saturates
// the signal at strength 1.0. Deployment knobs, not invariants.
const (
	swapAmountScale      = 50_000.0
	volumeSpikeFloor     = 10_000.0
	volumeSpikeScale     = 100_000.0
	liquidityAmountScale = 50_000.0
	highLiquidityFloor   = 20_000.0
	highLiquidityScale   = 100_000.0
	whaleTransferFloor   = 25_000.0
	whaleTransferScale   = 250_000.0
	mintAmountScale      = 1_000_000.0
	burnAmountScale      = 500_000.0
)

// Delta is one collector output. Merged marks a debounce update: the
// aggregator must replace the prior signal for the same (mint, type, source)
// instead of appending a second one.
type Delta struct {
	Obs    domain.Observation
	Merged bool
}

// debounceKey identifies observations subject to debounce merging.
type debounceKey struct {
	Mint       string
	SignalType domain.SignalType
	Source     string
}

type debounceEntry struct {
	observedAt int64 // Unix ms of first observation in the window
	strength   float64
}

// Collector ingests provider events and produces signal observations.
// Safe for concurrent use; the debounce map is the only shared state.
type Collector struct {
	watch    map[config.WatchKey]config.WatchEntry
	debounce time.Duration
	logger   *log.Logger

	mu   sync.Mutex
	seen map[debounceKey]debounceEntry
}

// New creates a collector from the loaded configuration.
// An empty watch list accepts every known transaction type; that mode is
// meant for deployments where the provider-side webhook filter is the
// authoritative watch configuration.
func New(cfg *config.Config, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.Default()
	}
	return &Collector{
		watch:    cfg.WatchSet(),
		debounce: cfg.Debounce,
		logger:   logger,
		seen:     make(map[debounceKey]debounceEntry),
	}
}

// Collect resolves one provider event into zero or more observation deltas.
// Events off the watch list, with invalid mints, or with unmapped
// transaction types are discarded. No external calls.
func (c *Collector) Collect(e domain.RawEvent) []Delta {
	if len(c.watch) > 0 {
		if _, ok := c.watch[config.WatchKey{Address: e.Address, TxType: e.TxType}]; !ok {
			return nil
		}
	}
	if domain.ValidateMint(e.Mint) != nil {
		return nil
	}

	observations := mapEvent(e)
	if len(observations) == 0 {
		return nil
	}

	deltas := make([]Delta, 0, len(observations))
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, obs := range observations {
		key := debounceKey{Mint: obs.Mint, SignalType: obs.SignalType, Source: obs.Source}
		prior, ok := c.seen[key]
		if ok && obs.ObservedAt-prior.observedAt < c.debounce.Milliseconds() {
			// Redundant delivery inside the debounce window: keep the max
			// strength, emit a merge only when it actually grew.
			if obs.Strength <= prior.strength {
				continue
			}
			prior.strength = obs.Strength
			c.seen[key] = prior
			obs.ObservedAt = prior.observedAt
			deltas = append(deltas, Delta{Obs: obs, Merged: true})
			continue
		}
		c.seen[key] = debounceEntry{observedAt: obs.ObservedAt, strength: obs.Strength}
		deltas = append(deltas, Delta{Obs: obs})
	}
	return deltas
}

// Sweep drops debounce entries older than the window. Called periodically so
// the map stays bounded under sustained event volume.
func (c *Collector) Sweep(now time.Time) {
	cutoff := now.Add(-c.debounce).UnixMilli()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.seen {
		if entry.observedAt < cutoff {
			delete(c.seen, key)
		}
	}
}

// normalize maps an amount to [0,1] against a saturation scale.
func normalize(amount, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	return domain.Clamp01(amount / scale)
}

// mapEvent resolves a provider transaction type to signal candidates.
// One event may yield more than one observation (a large swap is both swap
// activity and a volume spike).
func mapEvent(e domain.RawEvent) []domain.Observation {
	var out []domain.Observation
	add := func(typ domain.SignalType, strength, confidence float64, source string) {
		out = append(out, domain.Observation{
			Mint:       e.Mint,
			SignalType: typ,
			Strength:   domain.Clamp01(strength),
			Confidence: confidence,
			Source:     source,
			ObservedAt: e.ObservedAt,
		})
	}

	switch e.TxType {
	case domain.TxTypeSwap:
		add(domain.SignalSwapActivity, normalize(e.Amount, swapAmountScale), 0.8, "swap_analysis")
		if e.Amount >= volumeSpikeFloor {
			add(domain.SignalVolumeSpike, normalize(e.Amount, volumeSpikeScale), 0.9, "volume_analysis")
		}
	case domain.TxTypeAddLiquidity:
		add(domain.SignalLiquidityAdd, normalize(e.Amount, liquidityAmountScale), 0.85, "liquidity_analysis")
		if e.Amount >= highLiquidityFloor {
			add(domain.SignalHighLiquidity, normalize(e.Amount, highLiquidityScale), 0.95, "liquidity_analysis")
		}
	case domain.TxTypeRemoveLiquidity:
		add(domain.SignalLiquidityRemove, normalize(e.Amount, liquidityAmountScale), 0.9, "liquidity_analysis")
	case domain.TxTypeMint:
		add(domain.SignalMintEvent, normalize(e.Amount, mintAmountScale), 0.6, "mint_watch")
	case domain.TxTypeBurn:
		add(domain.SignalBurnEvent, normalize(e.Amount, burnAmountScale), 0.7, "burn_watch")
	case domain.TxTypeTransfer:
		if e.Amount >= whaleTransferFloor {
			add(domain.SignalWhaleActivity, normalize(e.Amount, whaleTransferScale), 0.7, "transfer_analysis")
		}
	}
	return out
}
