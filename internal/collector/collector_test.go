package collector

import (
	"io"
	"log"
	"math"
	"testing"
	"time"

	"token-sniper/internal/config"
	"token-sniper/internal/domain"
)

const (
	testMint    = "So11111111111111111111111111111111111111112"
	testAddress = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

func newTestCollector(watch []config.WatchEntry) *Collector {
	cfg := config.Default()
	cfg.Watch = watch
	return New(cfg, log.New(io.Discard, "", 0))
}

func swapEvent(amount float64, at int64) domain.RawEvent {
	return domain.RawEvent{
		Address:     testMint,
		TxType:      domain.TxTypeSwap,
		Mint:        testMint,
		Amount:      amount,
		TxSignature: "sig-1",
		Channel:     "test",
		ObservedAt:  at,
	}
}

func TestCollect_EmptyWatchListAcceptsAll(t *testing.T) {
	c := newTestCollector(nil)

	deltas := c.Collect(swapEvent(60_000, 1000))

	// Large swap yields both swap activity and a volume spike
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(deltas))
	}
	if deltas[0].Obs.SignalType != domain.SignalSwapActivity {
		t.Errorf("expected SwapActivity first, got %s", deltas[0].Obs.SignalType)
	}
	if deltas[1].Obs.SignalType != domain.SignalVolumeSpike {
		t.Errorf("expected VolumeSpike second, got %s", deltas[1].Obs.SignalType)
	}
}

func TestCollect_WatchFilterDropsUnlistedPairs(t *testing.T) {
	c := newTestCollector([]config.WatchEntry{
		{Address: testAddress, TransactionTypes: []string{domain.TxTypeMint}, Channel: "mints"},
	})

	// Same address, unlisted tx type → dropped
	deltas := c.Collect(domain.RawEvent{
		Address: testAddress, TxType: domain.TxTypeSwap, Mint: testMint, Amount: 60_000, ObservedAt: 1000,
	})
	if len(deltas) != 0 {
		t.Errorf("expected swap on mint-only watch to be dropped, got %d deltas", len(deltas))
	}

	// Listed pair → accepted
	deltas = c.Collect(domain.RawEvent{
		Address: testAddress, TxType: domain.TxTypeMint, Mint: testMint, Amount: 500_000, ObservedAt: 1000,
	})
	if len(deltas) != 1 {
		t.Fatalf("expected 1 delta for watched mint event, got %d", len(deltas))
	}
	if deltas[0].Obs.SignalType != domain.SignalMintEvent {
		t.Errorf("expected MintEvent, got %s", deltas[0].Obs.SignalType)
	}
}

func TestCollect_InvalidMintDropped(t *testing.T) {
	c := newTestCollector(nil)

	deltas := c.Collect(domain.RawEvent{
		Address: testMint, TxType: domain.TxTypeSwap, Mint: "not-base58!!!", Amount: 60_000, ObservedAt: 1000,
	})

	if len(deltas) != 0 {
		t.Errorf("expected invalid mint to be dropped, got %d deltas", len(deltas))
	}
}

func TestCollect_DebounceSuppressesWeakerDuplicate(t *testing.T) {
	c := newTestCollector(nil)

	// 8k stays under the volume spike floor: one swap observation only
	first := c.Collect(swapEvent(8_000, 1000))
	if len(first) != 1 {
		t.Fatalf("expected 1 delta, got %d", len(first))
	}

	// Same strength 500ms later, inside the 2s debounce window → suppressed
	dup := c.Collect(swapEvent(8_000, 1500))
	if len(dup) != 0 {
		t.Errorf("expected duplicate inside window suppressed, got %d deltas", len(dup))
	}
}

func TestCollect_DebounceMergeKeepsMaxStrength(t *testing.T) {
	c := newTestCollector(nil)

	c.Collect(swapEvent(5_000, 1000))

	// Stronger duplicate inside the window → merge delta with grown strength
	merged := c.Collect(swapEvent(9_000, 1800))
	if len(merged) != 1 {
		t.Fatalf("expected 1 merge delta, got %d", len(merged))
	}
	if !merged[0].Merged {
		t.Error("expected Merged flag on debounce update")
	}
	if math.Abs(merged[0].Obs.Strength-0.18) > 1e-9 {
		t.Errorf("expected merged strength 0.18 (9000/50000), got %f", merged[0].Obs.Strength)
	}
	// Merge keeps the window's original timestamp
	if merged[0].Obs.ObservedAt != 1000 {
		t.Errorf("expected merge to keep observedAt 1000, got %d", merged[0].Obs.ObservedAt)
	}
}

func TestCollect_FreshWindowAfterDebounceExpires(t *testing.T) {
	c := newTestCollector(nil)

	c.Collect(swapEvent(8_000, 1000))

	// 2s window elapsed → a new plain delta, not a merge
	later := c.Collect(swapEvent(8_000, 1000+2*time.Second.Milliseconds()))
	if len(later) != 1 {
		t.Fatalf("expected 1 delta after window expiry, got %d", len(later))
	}
	if later[0].Merged {
		t.Error("expected plain delta after window expiry, got merge")
	}
}

func TestCollect_DistinctSourcesDebounceIndependently(t *testing.T) {
	c := newTestCollector(nil)

	// 60k swap yields swap_analysis and volume_analysis observations; a
	// duplicate suppresses both independently
	first := c.Collect(swapEvent(60_000, 1000))
	if len(first) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(first))
	}
	dup := c.Collect(swapEvent(60_000, 1200))
	if len(dup) != 0 {
		t.Errorf("expected both observation streams suppressed, got %d", len(dup))
	}
}

func TestSweep_DropsExpiredEntries(t *testing.T) {
	c := newTestCollector(nil)

	base := time.Now()
	c.Collect(swapEvent(8_000, base.UnixMilli()))
	if len(c.seen) != 1 {
		t.Fatalf("expected 1 debounce entry, got %d", len(c.seen))
	}

	c.Sweep(base.Add(10 * time.Second))

	if len(c.seen) != 0 {
		t.Errorf("expected debounce map swept empty, got %d entries", len(c.seen))
	}
}

func TestMapEvent_TransferBelowWhaleFloorIgnored(t *testing.T) {
	obs := mapEvent(domain.RawEvent{
		Mint: testMint, TxType: domain.TxTypeTransfer, Amount: 10_000, ObservedAt: 1000,
	})
	if len(obs) != 0 {
		t.Errorf("expected small transfer to map to nothing, got %d observations", len(obs))
	}

	obs = mapEvent(domain.RawEvent{
		Mint: testMint, TxType: domain.TxTypeTransfer, Amount: 125_000, ObservedAt: 1000,
	})
	if len(obs) != 1 || obs[0].SignalType != domain.SignalWhaleActivity {
		t.Fatalf("expected one WhaleActivity observation, got %v", obs)
	}
	if obs[0].Strength != 0.5 {
		t.Errorf("expected strength 0.5 (125000/250000), got %f", obs[0].Strength)
	}
}

func TestMapEvent_RemoveLiquidityIsRiskSignal(t *testing.T) {
	obs := mapEvent(domain.RawEvent{
		Mint: testMint, TxType: domain.TxTypeRemoveLiquidity, Amount: 50_000, ObservedAt: 1000,
	})
	if len(obs) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(obs))
	}
	if obs[0].SignalType != domain.SignalLiquidityRemove {
		t.Errorf("expected LiquidityRemove, got %s", obs[0].SignalType)
	}
	if !obs[0].SignalType.IsRisk() {
		t.Error("LiquidityRemove must count as a risk signal")
	}
}
