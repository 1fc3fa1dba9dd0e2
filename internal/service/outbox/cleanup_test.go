package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
	"github.com/jaikishore143/ecommerce-backennd/internal/metrics"
	"github.com/jaikishore143/ecommerce-backennd/internal/storage/memory"
)

var _ domain.OutboxPurger = (*stubPurger)(nil)

func TestCleanupWorker_DeleteExpired_Batches(t *testing.T) {
	repo := &stubPurger{results: []int{2, 2, 1}}
	worker := NewCleanupWorker(repo, WithCleanupBatchSize(2), WithCleanupLogger(quietLogger()))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)
	assert.Equal(t, 3, repo.calls())
}

func TestCleanupWorker_DeleteExpired_Error(t *testing.T) {
	repo := &stubPurger{errs: []error{errors.New("boom")}}
	worker := NewCleanupWorker(repo, WithCleanupBatchSize(10), WithCleanupLogger(quietLogger()))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	require.Error(t, err)
	assert.Zero(t, deleted)
}

func TestCleanupWorker_KeepsPendingAndFreshMessages(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := now.Add(-48 * time.Hour)
	store := memory.NewStore(memory.WithClock(func() time.Time { return clock }))

	enqueue(t, store, message("old", domain.EventOrderCreated), message("fresh", domain.EventOrderCreated), message("pending", domain.EventOrderCreated))
	require.NoError(t, store.MarkSent(ctx, "old"))
	clock = now.Add(-time.Hour)
	require.NoError(t, store.MarkSent(ctx, "fresh"))

	worker := NewCleanupWorker(store,
		WithCleanupLogger(quietLogger()),
		WithRetention(24*time.Hour),
		WithCleanupClock(func() time.Time { return now }),
		WithCleanupMetrics(metrics.NewOutboxMetricsWithRegisterer(prometheus.NewRegistry())),
	)
	worker.cleanup(ctx)

	assert.Equal(t, 2, store.OutboxLen())
	pending := store.AllPending()
	require.Len(t, pending, 1)
	assert.Equal(t, "pending", pending[0].ID)
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	repo := &stubPurger{}
	worker := NewCleanupWorker(repo,
		WithCleanupLogger(quietLogger()),
		WithCleanupInterval(5*time.Millisecond),
		WithCleanupBatchSize(10),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop on context cancel")
	}
	assert.Positive(t, repo.calls())
}

func TestCleanupWorker_DisabledWithoutRepo(t *testing.T) {
	worker := NewCleanupWorker(nil, WithCleanupLogger(quietLogger()))
	worker.Run(context.Background())
}

type stubPurger struct {
	mu        sync.Mutex
	results   []int
	errs      []error
	callCount int
}

func (s *stubPurger) DeleteSent(context.Context, time.Time, int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	if len(s.results) == 0 {
		return 0, nil
	}
	result := s.results[0]
	s.results = s.results[1:]
	return result, nil
}

func (s *stubPurger) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}
