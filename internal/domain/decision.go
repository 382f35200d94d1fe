package domain

// AgentDecision is the opaque AI gateway verdict for one forwarded profile.
type AgentDecision struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	AgentType  string  `json:"agent_type"`
	LatencyMS  int64   `json:"latency_ms"`
}

// AIDecision is the per-mint result entry of an analyze batch.
// Exactly one of Decision or Error is set, never both.
type AIDecision struct {
	Mint     string         `json:"mint"`
	Decision *AgentDecision `json:"ai_decision,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Succeeded reports whether the entry carries a gateway verdict.
func (d *AIDecision) Succeeded() bool {
	return d.Decision != nil && d.Error == ""
}

// NewAIDecision builds a success-shaped entry.
func NewAIDecision(mint string, dec AgentDecision) AIDecision {
	return AIDecision{Mint: mint, Decision: &dec}
}

// NewAIDecisionError builds an error-shaped entry.
func NewAIDecisionError(mint, reason string) AIDecision {
	return AIDecision{Mint: mint, Error: reason}
}

// Well-known error reasons for error-shaped decisions.
const (
	DecisionErrTimeout    = "timeout"
	DecisionErrUpstream   = "upstream"
	DecisionErrValidation = "validation"
	DecisionErrShed       = "backpressure"
)
