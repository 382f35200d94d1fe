package storage

import (
	"context"

	"token-sniper/internal/domain"
)

// DecisionStore provides access to the AI decision journal. Append-only:
// records are never updated after insert.
type DecisionStore interface {
	// InsertBatch adds all records of one analyze batch atomically.
	// Returns ErrDuplicateKey if (batch_id, mint) already exists.
	InsertBatch(ctx context.Context, records []*domain.DecisionRecord) error

	// GetByBatchID retrieves all records of a batch in insertion order.
	// Returns an empty slice if the batch is unknown.
	GetByBatchID(ctx context.Context, batchID string) ([]*domain.DecisionRecord, error)

	// GetByMint retrieves all records for a mint, newest first.
	GetByMint(ctx context.Context, mint string) ([]*domain.DecisionRecord, error)

	// GetRecent retrieves the most recent records, newest first, up to limit.
	GetRecent(ctx context.Context, limit int) ([]*domain.DecisionRecord, error)
}
