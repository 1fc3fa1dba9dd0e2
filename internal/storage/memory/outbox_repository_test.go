package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
	"github.com/jaikishore143/ecommerce-backennd/internal/storage/memory"
)

func TestOutboxRepositoryFlow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	tx, _ := store.Begin(ctx)
	first, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{AggregateType: "order", AggregateID: "o-1", EventType: domain.EventOrderCreated})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, _ := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{AggregateType: "order", AggregateID: "o-1", EventType: domain.EventOrderCanceled})
	_ = tx.Commit(ctx)

	if first.ID == "" || second.ID == "" {
		t.Fatal("expected generated ids")
	}

	pending, err := store.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID {
		t.Fatalf("expected both messages in enqueue order, got %+v", pending)
	}

	stats, _ := store.Stats(ctx)
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := store.MarkSent(ctx, first.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := store.MarkFailed(ctx, second.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if left := store.AllPending(); len(left) != 0 {
		t.Fatalf("expected no pending messages, got %d", len(left))
	}

	if err := store.MarkSent(ctx, "unknown"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish, got %v", err)
	}
}
