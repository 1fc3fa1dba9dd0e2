package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
	"github.com/jaikishore143/ecommerce-backennd/internal/metrics"
	"github.com/jaikishore143/ecommerce-backennd/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func enqueue(t *testing.T, store *memory.Store, msgs ...domain.OutboxMessage) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	for _, msg := range msgs {
		_, err := tx.Outbox().Enqueue(ctx, msg)
		require.NoError(t, err)
	}
	require.NoError(t, tx.Commit(ctx))
}

func message(id, eventType string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "order",
		AggregateID:   "order-" + id,
		EventType:     eventType,
		Payload:       []byte(`{"order_id":"order-` + id + `"}`),
	}
}

func newTestWorker(store *memory.Store, publisher domain.OutboxPublisher, opts ...Option) *Worker {
	base := []Option{
		WithLogger(quietLogger()),
		WithConfig(Config{MaxAttempts: 3, RetryBaseDelay: 0, BatchSize: 10, PollInterval: 5 * time.Millisecond}),
	}
	return NewWorker(store, publisher, append(base, opts...)...)
}

func TestWorker_ProcessOnce_MarksSentInOrder(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	enqueue(t, store, message("m-1", domain.EventOrderCreated), message("m-2", domain.EventOrderCanceled))
	publisher := &stubPublisher{}

	result := newTestWorker(store, publisher).ProcessOnce(context.Background())

	assert.Equal(t, BatchResult{Pulled: 2, Sent: 2}, result)
	assert.Equal(t, []string{"m-1", "m-2"}, publisher.ids())
	assert.Empty(t, store.AllPending())
}

func TestWorker_ProcessOnce_DeadLettersAfterRetries(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	enqueue(t, store, message("m-1", domain.EventOrderCreated))
	publisher := &stubPublisher{err: errors.New("broker down")}
	dead := &stubPublisher{}
	registry := prometheus.NewRegistry()

	worker := newTestWorker(store, publisher,
		WithDeadLetter(dead),
		WithMetrics(metrics.NewOutboxMetricsWithRegisterer(registry)),
	)
	result := worker.ProcessOnce(context.Background())

	assert.Equal(t, BatchResult{Pulled: 1, Failed: 1}, result)
	assert.Equal(t, 3, publisher.calls())
	require.Len(t, dead.published(), 1)
	assert.Empty(t, store.AllPending())

	var envelope deadLetterEnvelope
	require.NoError(t, json.Unmarshal(dead.published()[0].Payload, &envelope))
	assert.Equal(t, "m-1", envelope.OutboxID)
	assert.Contains(t, envelope.PublishError, "broker down")
	assert.JSONEq(t, `{"order_id":"order-m-1"}`, string(envelope.Payload))
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	enqueue(t, store, message("m-1", domain.EventOrderUpdated))
	publisher := &stubPublisher{sequence: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil}}

	result := newTestWorker(store, publisher).ProcessOnce(context.Background())

	assert.Equal(t, BatchResult{Pulled: 1, Sent: 1}, result)
	assert.Equal(t, 3, publisher.calls())
}

func TestWorker_ProcessOnce_CanceledContextLeavesPending(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	enqueue(t, store, message("m-1", domain.EventOrderCreated))
	publisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := newTestWorker(store, publisher).ProcessOnce(ctx)

	assert.Zero(t, result.Pulled)
	assert.Len(t, store.AllPending(), 1)
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	publisher := &stubPublisher{}
	worker := newTestWorker(store, publisher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	enqueue(t, store, message("m-1", domain.EventOrderCreated))
	require.Eventually(t, func() bool { return publisher.calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorker_Run_DisabledWithoutPublisher(t *testing.T) {
	t.Parallel()

	worker := NewWorker(memory.NewStore(), nil, WithLogger(quietLogger()))
	worker.Run(context.Background())
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	assert.Zero(t, backoff(0, 3))
	assert.Equal(t, 10*time.Millisecond, backoff(10*time.Millisecond, 1))
	assert.Equal(t, 40*time.Millisecond, backoff(10*time.Millisecond, 3))
	assert.Equal(t, time.Duration(1<<63-1), backoff(time.Hour, 80))
}

func TestConfig_Normalized(t *testing.T) {
	t.Parallel()

	cfg := Config{RetryBaseDelay: -time.Second}.normalized()
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	assert.Zero(t, cfg.RetryBaseDelay)
}

type stubPublisher struct {
	mu        sync.Mutex
	err       error
	sequence  []error
	callCount int
	sent      []domain.OutboxMessage
}

func (s *stubPublisher) Publish(msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	err := s.err
	if len(s.sequence) > 0 {
		err = s.sequence[0]
		s.sequence = s.sequence[1:]
	}
	if err == nil {
		s.sent = append(s.sent, msg)
	}
	return err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubPublisher) published() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.sent...)
}

func (s *stubPublisher) ids() []string {
	var ids []string
	for _, msg := range s.published() {
		ids = append(ids, msg.ID)
	}
	return ids
}

var _ domain.OutboxPublisher = (*stubPublisher)(nil)
