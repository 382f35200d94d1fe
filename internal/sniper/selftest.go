package sniper

import (
	"io"
	"log"
	"time"

	"token-sniper/internal/collector"
	"token-sniper/internal/config"
	"token-sniper/internal/decision"
	"token-sniper/internal/domain"
	"token-sniper/internal/profile"
	"token-sniper/internal/weighting"
)

// TestResult is one self-test fixture outcome, served on /test/sniper.
type TestResult struct {
	Mint    string               `json:"mint"`
	Status  string               `json:"status"`
	Profile *domain.TokenProfile `json:"profile"`
}

// Well-known mainnet mints used as self-test fixtures.
const (
	fixtureMintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	fixtureMintWSOL = "So11111111111111111111111111111111111111112"
	fixtureMintBONK = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

// SelfTest runs canned fixture events through a scratch pipeline built
// from the given configuration and checks profile invariants. Live engine
// state is untouched.
func (e *Engine) SelfTest(cfg *config.Config) []TestResult {
	quiet := log.New(io.Discard, "", 0)
	scratchCfg := *cfg
	scratchCfg.Watch = nil // accept fixture mints regardless of the live watch list
	col := collector.New(&scratchCfg, quiet)
	agg := profile.New(profile.Options{
		Classifier: decision.NewClassifier(cfg.Scoring),
		TopN:       cfg.TopSignals,
		TTL:        cfg.ProfileTTL,
		Logger:     quiet,
	})
	weighter := weighting.New(cfg.Weights)

	now := time.Now().UnixMilli()
	fixtures := []domain.RawEvent{
		{Address: fixtureMintUSDC, TxType: domain.TxTypeSwap, Mint: fixtureMintUSDC, Amount: 180_000, TxSignature: "selftest-swap-1", Channel: "selftest", ObservedAt: now},
		{Address: fixtureMintUSDC, TxType: domain.TxTypeAddLiquidity, Mint: fixtureMintUSDC, Amount: 60_000, TxSignature: "selftest-liq-1", Channel: "selftest", ObservedAt: now},
		{Address: fixtureMintWSOL, TxType: domain.TxTypeTransfer, Mint: fixtureMintWSOL, Amount: 40_000, TxSignature: "selftest-xfer-1", Channel: "selftest", ObservedAt: now},
		{Address: fixtureMintBONK, TxType: domain.TxTypeRemoveLiquidity, Mint: fixtureMintBONK, Amount: 90_000, TxSignature: "selftest-rug-1", Channel: "selftest", ObservedAt: now},
	}

	latest := make(map[string]*domain.TokenProfile)
	var order []string
	for _, event := range fixtures {
		for _, delta := range col.Collect(event) {
			snapshot := agg.Add(delta.Obs.Mint, weighter.Apply(delta.Obs), delta.Merged)
			if _, seen := latest[snapshot.Mint]; !seen {
				order = append(order, snapshot.Mint)
			}
			latest[snapshot.Mint] = snapshot
		}
	}

	results := make([]TestResult, 0, len(order))
	for _, mint := range order {
		snapshot := latest[mint]
		status := "passed"
		if err := snapshot.Validate(); err != nil {
			status = "failed"
		}
		results = append(results, TestResult{Mint: mint, Status: status, Profile: snapshot})
	}
	return results
}
