package kafka

import (
	"errors"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

var errPublisherNotInitialized = errors.New("kafka outbox publisher is not initialized")

// OutboxTopicPublisher отправляет сообщения outbox в topic как есть: payload уже
// содержит OrderEvent в JSON, тип события и агрегат дублируются в заголовках.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт паблишер; пустой topic означает TopicOrderEvents.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

// Topic возвращает topic публикации.
func (p *OutboxTopicPublisher) Topic() string { return p.topic }

// Publish отправляет сообщение. Ключ партиционирования, идентификатор заказа,
// поэтому события одного заказа попадают в одну партицию по порядку.
func (p *OutboxTopicPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errPublisherNotInitialized
	}

	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}
	headers := map[string]string{
		HeaderEventType:   string(EventTypeFor(msg.EventType)),
		HeaderAggregateID: msg.AggregateID,
		HeaderOutboxID:    msg.ID,
	}
	return p.producer.Send(p.topic, key, msg.Payload, headers)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
