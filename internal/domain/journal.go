package domain

// DecisionRecord is one journaled AI decision outcome with its batch
// context. Operational bookkeeping for auditing routed batches; signal
// history itself is never persisted.
type DecisionRecord struct {
	BatchID    string  // analyze batch this decision belongs to
	Mint       string  // token mint
	Source     string  // submitting source (e.g. sniper_engine)
	Action     string  // gateway action, empty on failure
	Confidence float64 // gateway confidence, 0 on failure
	AgentType  string  // gateway agent, empty on failure
	LatencyMS  int64   // gateway latency, 0 on failure
	Error      string  // failure reason, empty on success
	CreatedAt  int64   // Unix timestamp in milliseconds
}

// RecordsForBatch flattens a decision list into journal records. Entries
// without a mint (validation rejections of unidentifiable profiles) have
// nothing to key a record on and are skipped.
func RecordsForBatch(batchID, source string, decisions []AIDecision, createdAt int64) []*DecisionRecord {
	records := make([]*DecisionRecord, 0, len(decisions))
	for i := range decisions {
		d := &decisions[i]
		if d.Mint == "" {
			continue
		}
		rec := &DecisionRecord{
			BatchID:   batchID,
			Mint:      d.Mint,
			Source:    source,
			Error:     d.Error,
			CreatedAt: createdAt,
		}
		if d.Decision != nil {
			rec.Action = d.Decision.Action
			rec.Confidence = d.Decision.Confidence
			rec.AgentType = d.Decision.AgentType
			rec.LatencyMS = d.Decision.LatencyMS
		}
		records = append(records, rec)
	}
	return records
}
