// Package weighting converts raw signal observations into weighted signals
// using the static per-deployment weight table.
package weighting

import "token-sniper/internal/domain"

// Weighter applies the static weight table to observations. It is pure and
// never fails per-signal: unknown types get weight 0, which drops their
// contribution but keeps the signal for auditability. The table is read-only
// after load, so no locking.
type Weighter struct {
	table map[domain.SignalType]float64
}

// New creates a Weighter over a validated weight table.
func New(table map[domain.SignalType]float64) *Weighter {
	// Copy so later mutation of the caller's map cannot leak in.
	t := make(map[domain.SignalType]float64, len(table))
	for typ, w := range table {
		t[typ] = w
	}
	return &Weighter{table: t}
}

// WeightFor returns the static weight for a signal type, 0 if unknown.
func (w *Weighter) WeightFor(typ domain.SignalType) float64 {
	return w.table[typ]
}

// Apply turns a raw observation into a weighted Signal.
// weighted_strength = clamp(strength * weight, 0, 1), always derived here.
func (w *Weighter) Apply(obs domain.Observation) domain.Signal {
	strength := domain.Clamp01(obs.Strength)
	confidence := domain.Clamp01(obs.Confidence)
	weight := w.table[obs.SignalType]

	return domain.Signal{
		SignalType:       obs.SignalType,
		SignalName:       obs.SignalType.WireName(),
		Strength:         strength,
		Confidence:       confidence,
		Source:           obs.Source,
		Weight:           weight,
		WeightedStrength: domain.Clamp01(strength * weight),
		ObservedAt:       obs.ObservedAt,
	}
}

// Normalize recomputes the derived fields of a signal that arrived over the
// wire, using the weight the signal itself carries. Prevents drift between
// weighted_strength and strength*weight on resubmitted profiles.
func Normalize(sig domain.Signal) domain.Signal {
	sig.Strength = domain.Clamp01(sig.Strength)
	sig.Confidence = domain.Clamp01(sig.Confidence)
	sig.Weight = domain.Clamp01(sig.Weight)
	sig.WeightedStrength = domain.Clamp01(sig.Strength * sig.Weight)
	if sig.SignalName == "" {
		sig.SignalName = sig.SignalType.WireName()
	}
	return sig
}
