// Package orders реализует движок транзакций заказа: оформление, отмену,
// административное обновление и чтение заказов.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
	"github.com/jaikishore143/ecommerce-backennd/internal/messaging/kafka"
	"github.com/jaikishore143/ecommerce-backennd/internal/metrics"
	"github.com/jaikishore143/ecommerce-backennd/internal/ordernumber"
	"github.com/jaikishore143/ecommerce-backennd/internal/pricing"
	"github.com/jaikishore143/ecommerce-backennd/internal/service/inventory"
)

// DefaultMaxOrderNumberAttempts: сколько раз генерировать номер при коллизиях.
const DefaultMaxOrderNumberAttempts = 3

const aggregateOrder = "order"

// NumberGenerator выдаёт кандидатов в номера заказов.
type NumberGenerator interface {
	Next() string
}

// Engine выполняет операции над заказами. Каждая изменяющая операция
// работает в одной единице работы: либо применяется целиком, либо не применяется вовсе.
type Engine struct {
	uow     domain.UnitOfWork
	reader  domain.OrderReader
	ledger  *inventory.Ledger
	pricing *pricing.Calculator
	numbers NumberGenerator

	maxNumberAttempts int
	now               func() time.Time
	newID             func() string

	logger  *log.Entry
	metrics *metrics.EngineMetrics
}

// Option настраивает Engine.
type Option func(*Engine)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics подключает метрики.
func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLedger подменяет складской учёт.
func WithLedger(ledger *inventory.Ledger) Option {
	return func(e *Engine) {
		if ledger != nil {
			e.ledger = ledger
		}
	}
}

// WithPricing задаёт калькулятор цен.
func WithPricing(calc *pricing.Calculator) Option {
	return func(e *Engine) {
		if calc != nil {
			e.pricing = calc
		}
	}
}

// WithNumberGenerator подменяет генератор номеров.
func WithNumberGenerator(g NumberGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.numbers = g
		}
	}
}

// WithMaxOrderNumberAttempts ограничивает число попыток генерации номера.
func WithMaxOrderNumberAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxNumberAttempts = n
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine собирает движок поверх единицы работы и стороны чтения.
func NewEngine(uow domain.UnitOfWork, reader domain.OrderReader, opts ...Option) *Engine {
	e := &Engine{
		uow:               uow,
		reader:            reader,
		pricing:           pricing.NewCalculator(pricing.DefaultPolicy()),
		numbers:           ordernumber.New(),
		maxNumberAttempts: DefaultMaxOrderNumberAttempts,
		now:               func() time.Time { return time.Now().UTC() },
		newID:             uuid.NewString,
		logger:            log.New().WithField("component", "order-engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ledger == nil {
		e.ledger = inventory.NewLedger(
			inventory.WithLogger(e.logger.WithField("component", "inventory-ledger")),
		)
	}
	return e
}

// begin открывает единицу работы и учитывает её в метриках.
func (e *Engine) begin(ctx context.Context) (domain.Tx, func(), error) {
	tx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin unit of work: %w", err)
	}
	e.metrics.RecordInFlightStarted()
	var once bool
	release := func() {
		if once {
			return
		}
		once = true
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			e.logger.WithError(rbErr).Warn("rollback failed")
		}
		e.metrics.RecordInFlightFinished()
	}
	return tx, release, nil
}

// observe фиксирует длительность и результат операции.
func (e *Engine) observe(operation string, started time.Time, err error) {
	e.metrics.RecordDuration(operation, time.Since(started))
	if err != nil {
		e.metrics.RecordFailure(operation, domain.Reason(err))
	}
}

// recordEvent пишет событие в историю заказа и ставит его в outbox в той же единице работы.
// previous: статус до изменения, пустой для нового заказа.
func (e *Engine) recordEvent(ctx context.Context, tx domain.Tx, order domain.Order, previous domain.OrderStatus, eventType, reason string, at time.Time) error {
	event := domain.TimelineEvent{
		ID:       e.newID(),
		OrderID:  order.ID,
		Type:     eventType,
		Status:   order.Status,
		Reason:   reason,
		Occurred: at,
	}
	if err := tx.Timeline().Append(ctx, event); err != nil {
		return fmt.Errorf("append timeline event %s: %w", eventType, err)
	}

	payload := kafka.NewOrderEvent(kafka.EventTypeFor(eventType), order, at)
	payload.Reason = reason
	if previous != order.Status {
		payload.PreviousState = string(previous)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	msg := domain.OutboxMessage{
		AggregateType: aggregateOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s event: %w", eventType, err)
	}
	return nil
}

// eventCommitted учитывает событие, записанное recordEvent, уже после Commit.
func (e *Engine) eventCommitted() {
	e.metrics.RecordTimelineEvent()
	e.metrics.RecordOutboxEvent()
}

// logFailure пишет отказ: клиентские ошибки на Info, остальные на Error.
func (e *Engine) logFailure(err error, fields log.Fields, msg string) {
	entry := e.logger.WithError(err).WithFields(fields).WithField("reason", domain.Reason(err))
	if domain.IsClientError(err) {
		entry.Info(msg)
		return
	}
	entry.Error(msg)
}
