package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Имена операций для меток.
const (
	OperationCreate = "create"
	OperationCancel = "cancel"
	OperationUpdate = "update"
)

// EngineMetrics содержит метрики движка заказов и складского учёта.
// Методы безопасны для nil-получателя, чтобы компоненты могли работать без метрик.
type EngineMetrics struct {
	// Счётчики операций
	ordersCreated  prometheus.Counter
	ordersCanceled prometheus.Counter
	ordersUpdated  prometheus.Counter
	failures       *prometheus.CounterVec

	// Склад
	unitsReserved prometheus.Counter
	unitsReleased prometheus.Counter

	// Коллизии номеров заказов
	numberCollisions prometheus.Counter

	// Гистограмма времени выполнения операций
	duration *prometheus.HistogramVec

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для незавершённых операций
	inFlight prometheus.Gauge
}

// NewEngineMetrics создаёт метрики в глобальном реестре.
func NewEngineMetrics() *EngineMetrics {
	return NewEngineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewEngineMetricsWithRegisterer создаёт метрики в заданном реестре (изолированные реестры в тестах).
func NewEngineMetricsWithRegisterer(registerer prometheus.Registerer) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &EngineMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "engine_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersCanceled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "engine_orders_canceled_total",
			Help: "Total number of orders canceled",
		}),
		ordersUpdated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "engine_orders_updated_total",
			Help: "Total number of administrative order updates",
		}),
		failures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "engine_order_failures_total",
			Help: "Total number of failed order operations by operation and reason",
		}, []string{"operation", "reason"}),
		unitsReserved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "engine_stock_units_reserved_total",
			Help: "Total number of stock units reserved for orders",
		}),
		unitsReleased: registerCounter(registerer, prometheus.CounterOpts{
			Name: "engine_stock_units_released_total",
			Help: "Total number of stock units returned to inventory",
		}),
		numberCollisions: registerCounter(registerer, prometheus.CounterOpts{
			Name: "engine_order_number_collisions_total",
			Help: "Total number of generated order numbers that were already taken",
		}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "engine_operation_duration_seconds",
			Help:    "Duration of order operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "engine_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "engine_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "engine_operations_in_flight",
			Help: "Number of order operations currently holding a unit of work",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *EngineMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordOrderCanceled увеличивает счётчик отменённых заказов.
func (m *EngineMetrics) RecordOrderCanceled() {
	if m == nil {
		return
	}
	m.ordersCanceled.Inc()
}

// RecordOrderUpdated увеличивает счётчик обновлённых заказов.
func (m *EngineMetrics) RecordOrderUpdated() {
	if m == nil {
		return
	}
	m.ordersUpdated.Inc()
}

// RecordFailure считает неудачную операцию с причиной (см. domain.Reason).
func (m *EngineMetrics) RecordFailure(operation, reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(operation, reason).Inc()
}

// RecordStockReserved добавляет зарезервированные единицы.
func (m *EngineMetrics) RecordStockReserved(units int32) {
	if m == nil || units <= 0 {
		return
	}
	m.unitsReserved.Add(float64(units))
}

// RecordStockReleased добавляет возвращённые на склад единицы.
func (m *EngineMetrics) RecordStockReleased(units int32) {
	if m == nil || units <= 0 {
		return
	}
	m.unitsReleased.Add(float64(units))
}

// RecordNumberCollision увеличивает счётчик коллизий номеров.
func (m *EngineMetrics) RecordNumberCollision() {
	if m == nil {
		return
	}
	m.numberCollisions.Inc()
}

// RecordDuration записывает время выполнения операции.
func (m *EngineMetrics) RecordDuration(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *EngineMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *EngineMetrics) RecordOutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}

// RecordInFlightStarted увеличивает количество незавершённых операций.
func (m *EngineMetrics) RecordInFlightStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RecordInFlightFinished уменьшает количество незавершённых операций.
func (m *EngineMetrics) RecordInFlightFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
