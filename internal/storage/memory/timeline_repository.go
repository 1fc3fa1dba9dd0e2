package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

type timelineStore struct{ t *tx }

// Append добавляет событие в историю заказа.
func (ts timelineStore) Append(_ context.Context, event domain.TimelineEvent) error {
	if err := ts.t.active(); err != nil {
		return err
	}
	s := ts.t.store
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Occurred.IsZero() {
		event.Occurred = s.now()
	}

	prev := s.timeline[event.OrderID]
	events := make([]domain.TimelineEvent, len(prev), len(prev)+1)
	copy(events, prev)
	events = append(events, event)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Occurred.Before(events[j].Occurred)
	})
	s.timeline[event.OrderID] = events

	ts.t.record(func() {
		if prev == nil {
			delete(s.timeline, event.OrderID)
			return
		}
		s.timeline[event.OrderID] = prev
	})
	return nil
}

// Timeline возвращает события заказа в хронологическом порядке.
func (s *Store) Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	events := s.timeline[orderID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}
