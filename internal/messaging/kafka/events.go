package kafka

import (
	"time"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	EventTypeOrderCreated  EventType = "order.created"
	EventTypeOrderCanceled EventType = "order.canceled"
	EventTypeOrderUpdated  EventType = "order.updated"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "engine.order.events"
	TopicDeadLetterQueue = "engine.order.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers, которые пишет publisher.
const (
	HeaderEventType   = "x-event-type"
	HeaderAggregateID = "x-aggregate-id"
	HeaderOutboxID    = "x-outbox-id"
)

// EventTypeFor переводит тип события домена в тип события шины.
func EventTypeFor(domainEvent string) EventType {
	switch domainEvent {
	case domain.EventOrderCreated:
		return EventTypeOrderCreated
	case domain.EventOrderCanceled:
		return EventTypeOrderCanceled
	case domain.EventOrderUpdated:
		return EventTypeOrderUpdated
	default:
		return EventType(domainEvent)
	}
}

// OrderLine: позиция заказа в событии.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int32  `json:"quantity"`
}

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType     EventType   `json:"event_type"`
	OrderID       string      `json:"order_id"`
	OrderNumber   string      `json:"order_number"`
	UserID        string      `json:"user_id"`
	Status        string      `json:"status"`
	PreviousState string      `json:"previous_status,omitempty"`
	PaymentStatus string      `json:"payment_status"`
	Total         string      `json:"total"`
	Lines         []OrderLine `json:"lines,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

// NewOrderEvent создает событие из текущего состояния заказа.
func NewOrderEvent(eventType EventType, order domain.Order, at time.Time) *OrderEvent {
	event := &OrderEvent{
		EventType:     eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		Total:         order.Total.StringFixed(2),
		Timestamp:     at.UTC(),
	}
	if eventType == EventTypeOrderCreated || eventType == EventTypeOrderCanceled {
		event.Lines = make([]OrderLine, 0, len(order.Items))
		for _, item := range order.Items {
			event.Lines = append(event.Lines, OrderLine{
				ProductID: item.ProductID,
				Name:      item.Name,
				UnitPrice: item.UnitPrice().StringFixed(2),
				Quantity:  item.Quantity,
			})
		}
	}
	return event
}
