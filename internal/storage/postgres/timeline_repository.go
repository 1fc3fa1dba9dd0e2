package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

type timelineStore struct{ q queryer }

// Append добавляет событие в историю заказа.
func (s timelineStore) Append(ctx context.Context, event domain.TimelineEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	if _, err := s.q.ExecContext(ctx, `
		INSERT INTO timeline_events (id, order_id, type, status, reason, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, event.ID, event.OrderID, event.Type, string(event.Status), event.Reason, event.Occurred); err != nil {
		return fmt.Errorf("insert timeline event: %w", err)
	}
	return nil
}

// Timeline возвращает события заказа в хронологическом порядке.
func (s *Store) Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, type, status, reason, occurred_at
		FROM timeline_events
		WHERE order_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var (
			event  domain.TimelineEvent
			status string
		)
		if err := rows.Scan(&event.ID, &event.OrderID, &event.Type, &status, &event.Reason, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		event.Status = domain.OrderStatus(status)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline rows: %w", err)
	}

	return events, nil
}
