package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	outboxStatusFailed  = "failed"
)

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg        domain.OutboxMessage
	seq        int64
	status     string
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
}

type outboxStore struct{ t *tx }

// Enqueue сохраняет событие со статусом `pending` и возвращает его с идентификатором.
func (obs outboxStore) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if err := obs.t.active(); err != nil {
		return domain.OutboxMessage{}, err
	}
	s := obs.t.store
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := s.now()
	s.outboxSeq++
	s.outbox[msg.ID] = &outboxRecord{
		msg:       msg,
		seq:       s.outboxSeq,
		status:    outboxStatusPending,
		createdAt: now,
		updatedAt: now,
	}
	id := msg.ID
	obs.t.record(func() { delete(s.outbox, id) })
	return msg, nil
}

// PullPending возвращает до limit сообщений со статусом `pending` в порядке постановки.
func (s *Store) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	if limit <= 0 {
		limit = 100
	}

	pending := s.pendingRecords()
	if len(pending) > limit {
		pending = pending[:limit]
	}
	result := make([]domain.OutboxMessage, len(pending))
	for i, rec := range pending {
		result[i] = rec.msg
	}
	return result, nil
}

// Stats возвращает размер backlog и возраст самого старого pending-сообщения.
func (s *Store) Stats(ctx context.Context) (domain.OutboxStats, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.OutboxStats{}, err
	}
	defer s.release()

	pending := s.pendingRecords()
	stats := domain.OutboxStats{PendingCount: len(pending)}
	if len(pending) > 0 {
		stats.OldestPendingAt = pending[0].createdAt
	}
	return stats, nil
}

// MarkSent обновляет статус события после успешной публикации.
func (s *Store) MarkSent(ctx context.Context, id string) error {
	return s.markOutbox(ctx, id, outboxStatusSent)
}

// MarkFailed фиксирует ошибку публикации.
func (s *Store) MarkFailed(ctx context.Context, id string) error {
	return s.markOutbox(ctx, id, outboxStatusFailed)
}

func (s *Store) markOutbox(ctx context.Context, id, status string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	record, ok := s.outbox[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	record.status = status
	record.attemptCnt++
	record.updatedAt = s.now()
	return nil
}

// DeleteSent удаляет до limit отправленных сообщений, обновлённых не позже before.
func (s *Store) DeleteSent(ctx context.Context, before time.Time, limit int) (int, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.release()

	expired := make([]*outboxRecord, 0)
	for _, rec := range s.outbox {
		if rec.status == outboxStatusSent && !rec.updatedAt.After(before) {
			expired = append(expired, rec)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].seq < expired[j].seq })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	for _, rec := range expired {
		delete(s.outbox, rec.msg.ID)
	}
	return len(expired), nil
}

// OutboxLen возвращает число сообщений outbox во всех статусах.
func (s *Store) OutboxLen() int {
	if err := s.acquire(context.Background()); err != nil {
		return 0
	}
	defer s.release()
	return len(s.outbox)
}

// AllPending возвращает копию всех сообщений со статусом `pending` (используется в тестах).
func (s *Store) AllPending() []domain.OutboxMessage {
	if err := s.acquire(context.Background()); err != nil {
		return nil
	}
	defer s.release()

	pending := s.pendingRecords()
	result := make([]domain.OutboxMessage, len(pending))
	for i, rec := range pending {
		result[i] = rec.msg
	}
	return result
}

func (s *Store) pendingRecords() []*outboxRecord {
	result := make([]*outboxRecord, 0, len(s.outbox))
	for _, rec := range s.outbox {
		if rec.status == outboxStatusPending {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

var (
	_ domain.OutboxRepository = (*Store)(nil)
	_ domain.OutboxPurger     = (*Store)(nil)
)
