package memory

import (
	"context"
	"testing"

	"token-sniper/internal/domain"
	"token-sniper/internal/storage"
)

func record(batchID, mint string, createdAt int64) *domain.DecisionRecord {
	return &domain.DecisionRecord{
		BatchID:    batchID,
		Mint:       mint,
		Source:     "sniper_engine",
		Action:     "Buy",
		Confidence: 0.9,
		AgentType:  "fast",
		LatencyMS:  40,
		CreatedAt:  createdAt,
	}
}

func TestInsertBatch_AndGetByBatchID(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	err := store.InsertBatch(ctx, []*domain.DecisionRecord{
		record("b1", "m1", 100),
		record("b1", "m2", 100),
	})
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	got, err := store.GetByBatchID(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByBatchID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Mint != "m1" || got[1].Mint != "m2" {
		t.Errorf("expected insertion order preserved, got %s, %s", got[0].Mint, got[1].Mint)
	}

	// unknown keys are a normal outcome: empty slice, no error
	got, err = store.GetByBatchID(ctx, "no-such-batch")
	if err != nil {
		t.Fatalf("GetByBatchID for unknown batch failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty slice for unknown batch, got %d records", len(got))
	}
}

func TestInsertBatch_DuplicateKeyRejected(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	if err := store.InsertBatch(ctx, []*domain.DecisionRecord{record("b1", "m1", 100)}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := store.InsertBatch(ctx, []*domain.DecisionRecord{record("b1", "m1", 200)})
	if err != storage.ErrDuplicateKey {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Intra-batch duplicate also rejected, atomically
	err = store.InsertBatch(ctx, []*domain.DecisionRecord{
		record("b2", "m1", 300),
		record("b2", "m1", 300),
	})
	if err != storage.ErrDuplicateKey {
		t.Errorf("expected ErrDuplicateKey for intra-batch dup, got %v", err)
	}
	got, _ := store.GetByBatchID(ctx, "b2")
	if len(got) != 0 {
		t.Errorf("rejected batch must write nothing, found %d records", len(got))
	}
}

func TestInsertBatch_InvalidInput(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	if err := store.InsertBatch(ctx, []*domain.DecisionRecord{record("", "m1", 100)}); err != storage.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput for empty batch ID, got %v", err)
	}
	if err := store.InsertBatch(ctx, []*domain.DecisionRecord{record("b1", "", 100)}); err != storage.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput for empty mint, got %v", err)
	}
	if err := store.InsertBatch(ctx, nil); err != nil {
		t.Errorf("empty batch is a no-op, got %v", err)
	}
}

func TestGetByMint_NewestFirst(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	store.InsertBatch(ctx, []*domain.DecisionRecord{record("b1", "m1", 100)})
	store.InsertBatch(ctx, []*domain.DecisionRecord{record("b2", "m1", 300)})
	store.InsertBatch(ctx, []*domain.DecisionRecord{record("b3", "m2", 200)})

	got, err := store.GetByMint(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByMint failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for m1, got %d", len(got))
	}
	if got[0].BatchID != "b2" || got[1].BatchID != "b1" {
		t.Errorf("expected newest first, got %s, %s", got[0].BatchID, got[1].BatchID)
	}
}

func TestGetRecent_LimitAndOrder(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	store.InsertBatch(ctx, []*domain.DecisionRecord{
		record("b1", "m1", 100),
		record("b1", "m2", 100),
	})
	store.InsertBatch(ctx, []*domain.DecisionRecord{record("b2", "m3", 500)})

	got, err := store.GetRecent(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Mint != "m3" {
		t.Errorf("expected newest record first, got %s", got[0].Mint)
	}

	empty, _ := store.GetRecent(ctx, 0)
	if len(empty) != 0 {
		t.Errorf("limit 0 returns nothing, got %d", len(empty))
	}
}

func TestStore_CopyIsolation(t *testing.T) {
	store := NewDecisionStore()
	ctx := context.Background()

	original := record("b1", "m1", 100)
	store.InsertBatch(ctx, []*domain.DecisionRecord{original})
	original.Action = "mutated"

	got, _ := store.GetByBatchID(ctx, "b1")
	if got[0].Action != "Buy" {
		t.Error("store must not alias caller-owned records")
	}

	got[0].Action = "mutated-read"
	again, _ := store.GetByBatchID(ctx, "b1")
	if again[0].Action != "Buy" {
		t.Error("reads must return isolated copies")
	}
}
