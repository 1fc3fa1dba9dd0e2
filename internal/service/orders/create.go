package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
	"github.com/jaikishore143/ecommerce-backennd/internal/metrics"
)

// ItemRequest: запрошенная позиция: товар и количество.
type ItemRequest struct {
	ProductID string
	Quantity  int32
}

// CreateOrderRequest: данные для оформления заказа.
type CreateOrderRequest struct {
	Items             []ItemRequest
	ShippingAddressID *string
	PaymentMethod     *string
}

// Validate проверяет запрос без обращения к хранилищу.
func (r CreateOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return domain.ErrEmptyOrder
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return fmt.Errorf("item %d: %w", i, domain.ErrProductRequired)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d (%s): %w", i, item.ProductID, domain.ErrInvalidQuantity)
		}
	}
	return nil
}

// CreateOrder оформляет заказ: проверяет пользователя и адрес, резервирует сток
// по каждой позиции в порядке запроса, считает суммы, присваивает уникальный номер
// и сохраняет заказ в статусе PENDING. Любая ошибка откатывает все резервы.
func (e *Engine) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (order domain.Order, err error) {
	started := time.Now()
	defer func() { e.observe(metrics.OperationCreate, started, err) }()

	fields := log.Fields{"user_id": userID, "items": len(req.Items)}
	defer func() {
		if err != nil {
			e.logFailure(err, fields, "create order rejected")
		}
	}()

	if strings.TrimSpace(userID) == "" {
		return domain.Order{}, domain.ErrUserRequired
	}
	if err := req.Validate(); err != nil {
		return domain.Order{}, err
	}

	tx, release, err := e.begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	exists, err := tx.Users().Exists(ctx, userID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("check user %s: %w", userID, err)
	}
	if !exists {
		return domain.Order{}, domain.ErrUserNotFound
	}

	if req.ShippingAddressID != nil {
		ok, err := tx.Addresses().BelongsTo(ctx, *req.ShippingAddressID, userID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("check shipping address: %w", err)
		}
		if !ok {
			return domain.Order{}, domain.ErrAddressNotFound
		}
	}

	now := e.now()
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, requested := range req.Items {
		reservation, err := e.ledger.Reserve(ctx, tx, requested.ProductID, requested.Quantity)
		if err != nil {
			return domain.Order{}, err
		}
		item := reservation.Item()
		item.ID = e.newID()
		item.CreatedAt = now
		items = append(items, item)
	}

	order = domain.Order{
		ID:                e.newID(),
		UserID:            userID,
		Status:            domain.OrderStatusPending,
		Items:             items,
		ShippingAddressID: cloneString(req.ShippingAddressID),
		PaymentMethod:     cloneString(req.PaymentMethod),
		PaymentStatus:     domain.PaymentStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	e.pricing.Calculate(items).Apply(&order)

	if err := e.insertWithUniqueNumber(ctx, tx, &order); err != nil {
		return domain.Order{}, err
	}
	fields["order_id"] = order.ID
	fields["order_number"] = order.OrderNumber

	if err := e.recordEvent(ctx, tx, order, "", domain.EventOrderCreated, "", now); err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit order %s: %w", order.ID, err)
	}

	e.metrics.RecordOrderCreated()
	e.eventCommitted()
	for _, item := range order.Items {
		e.metrics.RecordStockReserved(item.Quantity)
	}
	e.logger.WithFields(fields).WithField("total", order.Total.StringFixed(2)).Info("order created")
	return order, nil
}

// insertWithUniqueNumber генерирует номер и сохраняет заказ, повторяя генерацию
// при коллизии не больше maxNumberAttempts раз.
func (e *Engine) insertWithUniqueNumber(ctx context.Context, tx domain.Tx, order *domain.Order) error {
	for attempt := 1; attempt <= e.maxNumberAttempts; attempt++ {
		order.OrderNumber = e.numbers.Next()
		if errs := order.ValidateInvariants(); len(errs) > 0 {
			return fmt.Errorf("order %s violates invariants: %w", order.ID, errors.Join(errs...))
		}

		err := tx.Orders().Create(ctx, *order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicateOrderNumber) {
			return fmt.Errorf("insert order %s: %w", order.ID, err)
		}

		e.metrics.RecordNumberCollision()
		e.logger.WithFields(log.Fields{
			"order_number": order.OrderNumber,
			"attempt":      attempt,
		}).Warn("order number collision, regenerating")
	}
	return fmt.Errorf("order number still taken after %d attempts: %w", e.maxNumberAttempts, domain.ErrDuplicateOrderNumber)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
