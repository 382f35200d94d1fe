package weighting

import (
	"math"
	"testing"

	"token-sniper/internal/config"
	"token-sniper/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestApply_VolumeSpikeDefaultWeight(t *testing.T) {
	// strength 0.8 at weight 0.7 → weighted_strength 0.56
	w := New(config.Default().Weights)

	sig := w.Apply(domain.Observation{
		Mint:       "So11111111111111111111111111111111111111112",
		SignalType: domain.SignalVolumeSpike,
		Strength:   0.8,
		Confidence: 0.9,
		Source:     "volume_analysis",
	})

	if !almostEqual(sig.Weight, 0.7) {
		t.Errorf("expected weight 0.7, got %f", sig.Weight)
	}
	if !almostEqual(sig.WeightedStrength, 0.56) {
		t.Errorf("expected weighted_strength 0.56, got %f", sig.WeightedStrength)
	}
	if sig.SignalName != "volume_spike" {
		t.Errorf("expected signal_name volume_spike, got %s", sig.SignalName)
	}
}

func TestApply_UnknownTypeWeighsZero(t *testing.T) {
	// Unknown type keeps the signal but drops its contribution
	w := New(map[domain.SignalType]float64{})

	sig := w.Apply(domain.Observation{
		SignalType: domain.SignalWhaleActivity,
		Strength:   1.0,
		Confidence: 0.8,
	})

	if sig.Weight != 0 {
		t.Errorf("expected weight 0, got %f", sig.Weight)
	}
	if sig.WeightedStrength != 0 {
		t.Errorf("expected weighted_strength 0, got %f", sig.WeightedStrength)
	}
	if sig.SignalType != domain.SignalWhaleActivity {
		t.Errorf("signal type should be preserved, got %s", sig.SignalType)
	}
}

func TestApply_ClampsOutOfRangeInputs(t *testing.T) {
	w := New(map[domain.SignalType]float64{domain.SignalBurnEvent: 2.0})

	sig := w.Apply(domain.Observation{
		SignalType: domain.SignalBurnEvent,
		Strength:   1.5,
		Confidence: -0.2,
	})

	if sig.Strength != 1.0 {
		t.Errorf("expected strength clamped to 1.0, got %f", sig.Strength)
	}
	if sig.Confidence != 0.0 {
		t.Errorf("expected confidence clamped to 0.0, got %f", sig.Confidence)
	}
	// 1.0 * 2.0 clamps back into [0,1]
	if sig.WeightedStrength != 1.0 {
		t.Errorf("expected weighted_strength clamped to 1.0, got %f", sig.WeightedStrength)
	}
}

func TestApply_TableCopyIsolation(t *testing.T) {
	table := map[domain.SignalType]float64{domain.SignalSwapActivity: 0.6}
	w := New(table)
	table[domain.SignalSwapActivity] = 0.0

	if !almostEqual(w.WeightFor(domain.SignalSwapActivity), 0.6) {
		t.Errorf("weighter table must not alias the caller's map")
	}
}

func TestNormalize_RecomputesDerivedFields(t *testing.T) {
	// A resubmitted signal with drifted weighted_strength is corrected
	sig := domain.Signal{
		SignalType:       domain.SignalHighLiquidity,
		Strength:         0.5,
		Confidence:       0.9,
		Weight:           0.7,
		WeightedStrength: 0.99, // drifted
	}

	got := Normalize(sig)

	if !almostEqual(got.WeightedStrength, 0.35) {
		t.Errorf("expected weighted_strength 0.35, got %f", got.WeightedStrength)
	}
	if got.SignalName != "high_liquidity" {
		t.Errorf("expected signal_name filled in, got %q", got.SignalName)
	}
}

func TestDefaultWeights_CoverAllSignalTypes(t *testing.T) {
	weights := config.Default().Weights
	for _, typ := range domain.AllSignalTypes {
		if _, ok := weights[typ]; !ok {
			t.Errorf("default weight table missing %s", typ)
		}
	}
}
