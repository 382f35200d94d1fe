package domain

// RiskLevel discretizes risk_score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"    // risk_score < 0.33
	RiskMedium RiskLevel = "Medium" // risk_score < 0.66
	RiskHigh   RiskLevel = "High"   // otherwise
)

// String returns the string representation of RiskLevel.
func (r RiskLevel) String() string {
	return string(r)
}

// IsValid checks if the risk level is a valid value.
func (r RiskLevel) IsValid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// RiskLevelFor maps a risk score to its band.
func RiskLevelFor(riskScore float64) RiskLevel {
	switch {
	case riskScore < 0.33:
		return RiskLow
	case riskScore < 0.66:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// RecommendedAction is the classifier's verdict for a profile.
type RecommendedAction string

const (
	ActionIgnore        RecommendedAction = "Ignore"
	ActionMonitor       RecommendedAction = "Monitor"
	ActionSendToCerebro RecommendedAction = "SendToCerebro"
	ActionExecute       RecommendedAction = "Execute"
)

// String returns the string representation of RecommendedAction.
func (a RecommendedAction) String() string {
	return string(a)
}

// IsValid checks if the action is a valid value.
func (a RecommendedAction) IsValid() bool {
	switch a {
	case ActionIgnore, ActionMonitor, ActionSendToCerebro, ActionExecute:
		return true
	}
	return false
}

// IsTerminal reports whether the action retires the token window once acted upon.
func (a RecommendedAction) IsTerminal() bool {
	return a == ActionIgnore || a == ActionExecute
}

// TokenProfile is the aggregated, scored view of all signals for one mint
// at a point in time. Snapshots handed downstream are immutable.
//
// Score mirrors WeightedScore; the duplicate field is kept because the
// sniper-engine wire format carries both.
type TokenProfile struct {
	Mint              string            `json:"mint"`
	Score             float64           `json:"score"`
	Signals           []Signal          `json:"signals"`
	TopSignals        []Signal          `json:"top_signals"`
	PotentialScore    float64           `json:"potential_score"`
	RiskScore         float64           `json:"risk_score"`
	WeightedScore     float64           `json:"weighted_score"`
	RiskConfidence    int               `json:"risk_confidence"`
	RiskLevel         RiskLevel         `json:"risk_level"`
	RecommendedAction RecommendedAction `json:"recommended_action"`
	AnalysisTimestamp int64             `json:"analysis_timestamp"` // Unix timestamp in seconds
}

// Validate checks the profile for structural problems. Used by the batch
// analyze endpoint to reject single entries without failing the batch.
func (p *TokenProfile) Validate() error {
	if p == nil {
		return &ValidationError{Field: "profile", Reason: "nil profile"}
	}
	if p.Mint == "" {
		return &ValidationError{Field: "mint", Reason: "empty mint"}
	}
	if err := ValidateMint(p.Mint); err != nil {
		return err
	}
	for i, s := range p.Signals {
		if s.Strength < 0 || s.Strength > 1 {
			return &ValidationError{Field: "signals", Reason: "strength out of range", Index: i, Indexed: true}
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			return &ValidationError{Field: "signals", Reason: "confidence out of range", Index: i, Indexed: true}
		}
	}
	if len(p.TopSignals) > len(p.Signals) && len(p.Signals) > 0 {
		return &ValidationError{Field: "top_signals", Reason: "more top signals than signals"}
	}
	return nil
}
