package domain

// SignalType is a closed set of indicator kinds. Closed on purpose: the
// weighter and classifier match exhaustively, so a new type cannot slip in
// without a weight and an action mapping.
type SignalType string

const (
	SignalVolumeSpike     SignalType = "VolumeSpike"
	SignalHighLiquidity   SignalType = "HighLiquidity"
	SignalMintEvent       SignalType = "MintEvent"
	SignalBurnEvent       SignalType = "BurnEvent"
	SignalSwapActivity    SignalType = "SwapActivity"
	SignalLiquidityAdd    SignalType = "LiquidityAdd"
	SignalLiquidityRemove SignalType = "LiquidityRemove"
	SignalWhaleActivity   SignalType = "WhaleActivity"
	SignalPriceMovement   SignalType = "PriceMovement"
	SignalNewListing      SignalType = "NewListing"
)

// AllSignalTypes lists every known signal type, used for weight table validation.
var AllSignalTypes = []SignalType{
	SignalVolumeSpike,
	SignalHighLiquidity,
	SignalMintEvent,
	SignalBurnEvent,
	SignalSwapActivity,
	SignalLiquidityAdd,
	SignalLiquidityRemove,
	SignalWhaleActivity,
	SignalPriceMovement,
	SignalNewListing,
}

// wireNames maps signal types to their snake_case payload aliases.
var wireNames = map[SignalType]string{
	SignalVolumeSpike:     "volume_spike",
	SignalHighLiquidity:   "high_liquidity",
	SignalMintEvent:       "mint_event",
	SignalBurnEvent:       "burn_event",
	SignalSwapActivity:    "swap_activity",
	SignalLiquidityAdd:    "liquidity_add",
	SignalLiquidityRemove: "liquidity_remove",
	SignalWhaleActivity:   "whale_activity",
	SignalPriceMovement:   "price_movement",
	SignalNewListing:      "new_listing",
}

// String returns the string representation of SignalType.
func (t SignalType) String() string {
	return string(t)
}

// IsValid checks if the signal type is a known value.
func (t SignalType) IsValid() bool {
	_, ok := wireNames[t]
	return ok
}

// WireName returns the snake_case signal_name used on the wire.
// Unknown types fall back to their raw string for auditability.
func (t SignalType) WireName() string {
	if name, ok := wireNames[t]; ok {
		return name
	}
	return string(t)
}

// IsPositive reports whether the type counts toward the potential score.
func (t SignalType) IsPositive() bool {
	switch t {
	case SignalVolumeSpike, SignalHighLiquidity, SignalSwapActivity,
		SignalLiquidityAdd, SignalWhaleActivity, SignalPriceMovement, SignalNewListing:
		return true
	}
	return false
}

// IsRisk reports whether the type counts toward the risk score.
func (t SignalType) IsRisk() bool {
	switch t {
	case SignalLiquidityRemove, SignalBurnEvent:
		return true
	}
	return false
}

// Signal is one weighted indicator observed for a mint.
// WeightedStrength is always derived as clamp(Strength*Weight, 0, 1);
// it is never set independently.
type Signal struct {
	SignalType       SignalType `json:"signal_type"`
	SignalName       string     `json:"signal_name"`
	Strength         float64    `json:"strength"`
	Confidence       float64    `json:"confidence"`
	Source           string     `json:"source"`
	Weight           float64    `json:"weight"`
	WeightedStrength float64    `json:"weighted_strength"`
	ObservedAt       int64      `json:"observed_at,omitempty"` // Unix timestamp in milliseconds
}

// Observation is a raw, unweighted indicator emitted by the collector.
// The weighter turns it into a Signal.
type Observation struct {
	Mint       string
	SignalType SignalType
	Strength   float64 // 0.0-1.0
	Confidence float64 // 0.0-1.0
	Source     string
	ObservedAt int64 // Unix timestamp in milliseconds
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
