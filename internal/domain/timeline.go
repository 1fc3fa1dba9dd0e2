package domain

import "time"

// Типы событий жизненного цикла заказа (timeline и outbox).
const (
	EventOrderCreated  = "OrderCreated"
	EventOrderCanceled = "OrderCanceled"
	EventOrderUpdated  = "OrderUpdated"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	ID       string
	OrderID  string
	Type     string
	Status   OrderStatus
	Reason   string
	Occurred time.Time
}
