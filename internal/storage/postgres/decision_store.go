package postgres

import (
	"context"
	"fmt"

	"token-sniper/internal/domain"
	"token-sniper/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

const insertDecisionQuery = `
	INSERT INTO decision_records (
		batch_id, mint, source, action, confidence, agent_type,
		latency_ms, error, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// InsertBatch adds all records of one batch atomically.
// Returns ErrDuplicateKey if any (batch_id, mint) exists.
func (s *DecisionStore) InsertBatch(ctx context.Context, records []*domain.DecisionRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if rec == nil || rec.BatchID == "" || rec.Mint == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		_, err := tx.Exec(ctx, insertDecisionQuery,
			rec.BatchID, rec.Mint, rec.Source, rec.Action, rec.Confidence,
			rec.AgentType, rec.LatencyMS, rec.Error, rec.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert decision record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const selectDecisionColumns = `
	batch_id, mint, source, action, confidence, agent_type,
	latency_ms, error, created_at
`

// GetByBatchID retrieves all records of a batch in insertion order.
func (s *DecisionStore) GetByBatchID(ctx context.Context, batchID string) ([]*domain.DecisionRecord, error) {
	query := `SELECT ` + selectDecisionColumns + `
		FROM decision_records WHERE batch_id = $1 ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("query decisions by batch: %w", err)
	}
	defer rows.Close()
	return scanDecisionRecords(rows)
}

// GetByMint retrieves all records for a mint, newest first.
func (s *DecisionStore) GetByMint(ctx context.Context, mint string) ([]*domain.DecisionRecord, error) {
	query := `SELECT ` + selectDecisionColumns + `
		FROM decision_records WHERE mint = $1 ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query decisions by mint: %w", err)
	}
	defer rows.Close()
	return scanDecisionRecords(rows)
}

// GetRecent retrieves the most recent records, newest first, up to limit.
func (s *DecisionStore) GetRecent(ctx context.Context, limit int) ([]*domain.DecisionRecord, error) {
	if limit <= 0 {
		return []*domain.DecisionRecord{}, nil
	}
	query := `SELECT ` + selectDecisionColumns + `
		FROM decision_records ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent decisions: %w", err)
	}
	defer rows.Close()
	return scanDecisionRecords(rows)
}

// rowScanner abstracts pgx.Rows for record scanning.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanDecisionRecords(rows rowScanner) ([]*domain.DecisionRecord, error) {
	out := make([]*domain.DecisionRecord, 0)
	for rows.Next() {
		rec := &domain.DecisionRecord{}
		err := rows.Scan(
			&rec.BatchID, &rec.Mint, &rec.Source, &rec.Action, &rec.Confidence,
			&rec.AgentType, &rec.LatencyMS, &rec.Error, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan decision record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision records: %w", err)
	}
	return out, nil
}
