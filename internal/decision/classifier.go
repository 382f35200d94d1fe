// Package decision maps aggregated profile scores to a recommended action.
package decision

import (
	"token-sniper/internal/config"
	"token-sniper/internal/domain"
)

// Classifier is the deterministic, stateless score-to-action mapping.
// Total over its inputs: every (weighted_score, risk_score, risk_level)
// triple maps to exactly one action. Bands are inclusive on the lower bound,
// with no overlap and no gap.
type Classifier struct {
	scoring config.Scoring
}

// NewClassifier creates a classifier over the configured score bands.
func NewClassifier(scoring config.Scoring) *Classifier {
	return &Classifier{scoring: scoring}
}

// RiskLevelFor maps a risk score to its configured band.
func (c *Classifier) RiskLevelFor(riskScore float64) domain.RiskLevel {
	switch {
	case riskScore < c.scoring.RiskLowMax:
		return domain.RiskLow
	case riskScore < c.scoring.RiskMediumMax:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

// Classify returns the recommended action for a profile's scores.
// High risk vetoes everything else regardless of score. A top-band score
// executes only under Low risk; under Medium risk it still goes to the AI
// gateway, because score alone is not sufficient for autonomous execution
// under elevated risk.
func (c *Classifier) Classify(weightedScore, riskScore float64, riskLevel domain.RiskLevel) domain.RecommendedAction {
	if riskLevel == domain.RiskHigh {
		return domain.ActionIgnore
	}
	switch {
	case weightedScore < c.scoring.IgnoreBelow:
		return domain.ActionIgnore
	case weightedScore < c.scoring.MonitorBelow:
		return domain.ActionMonitor
	case weightedScore < c.scoring.CerebroBelow:
		return domain.ActionSendToCerebro
	}
	if riskLevel == domain.RiskLow {
		return domain.ActionExecute
	}
	return domain.ActionSendToCerebro
}
