package memory

import (
	"context"
	"sort"
	"sync"

	"token-sniper/internal/domain"
	"token-sniper/internal/storage"
)

// decisionKey is the composite key for journal deduplication.
type decisionKey struct {
	BatchID string
	Mint    string
}

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data []*domain.DecisionRecord
	keys map[decisionKey]bool
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make([]*domain.DecisionRecord, 0),
		keys: make(map[decisionKey]bool),
	}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

// InsertBatch adds all records of one batch atomically. Returns
// ErrDuplicateKey if any (batch_id, mint) exists.
func (s *DecisionStore) InsertBatch(_ context.Context, records []*domain.DecisionRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicates (both existing and intra-batch) before writing.
	batchKeys := make(map[decisionKey]bool, len(records))
	for _, rec := range records {
		if rec == nil || rec.BatchID == "" || rec.Mint == "" {
			return storage.ErrInvalidInput
		}
		key := decisionKey{BatchID: rec.BatchID, Mint: rec.Mint}
		if s.keys[key] || batchKeys[key] {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = true
	}

	for _, rec := range records {
		copy := *rec
		s.data = append(s.data, &copy)
		s.keys[decisionKey{BatchID: rec.BatchID, Mint: rec.Mint}] = true
	}
	return nil
}

// GetByBatchID retrieves all records of a batch in insertion order.
func (s *DecisionStore) GetByBatchID(_ context.Context, batchID string) ([]*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.DecisionRecord, 0)
	for _, rec := range s.data {
		if rec.BatchID == batchID {
			copy := *rec
			out = append(out, &copy)
		}
	}
	return out, nil
}

// GetByMint retrieves all records for a mint, newest first.
func (s *DecisionStore) GetByMint(_ context.Context, mint string) ([]*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.DecisionRecord, 0)
	for _, rec := range s.data {
		if rec.Mint == mint {
			copy := *rec
			out = append(out, &copy)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

// GetRecent retrieves the most recent records, newest first, up to limit.
func (s *DecisionStore) GetRecent(_ context.Context, limit int) ([]*domain.DecisionRecord, error) {
	if limit <= 0 {
		return []*domain.DecisionRecord{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.DecisionRecord, 0, len(s.data))
	for _, rec := range s.data {
		copy := *rec
		out = append(out, &copy)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
