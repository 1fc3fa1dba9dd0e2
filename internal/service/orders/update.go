package orders

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
	"github.com/jaikishore143/ecommerce-backennd/internal/metrics"
)

// ReasonAdminOverride пишется в историю при принудительной смене статуса.
const ReasonAdminOverride = "admin override"

// UpdateOrderRequest: административное изменение заказа. nil-поля не меняются.
// Пустая строка в ShippingAddressID или PaymentMethod очищает значение.
type UpdateOrderRequest struct {
	Status            *domain.OrderStatus
	PaymentStatus     *domain.PaymentStatus
	ShippingAddressID *string
	PaymentMethod     *string
	// Force разрешает переход статуса вне машины состояний. В CANCELLED и из CANCELLED
	// перевести всё равно нельзя: отмена идёт только через CancelOrder.
	Force bool
	// Reason попадает в историю заказа.
	Reason string
}

// UpdateOrder применяет административные изменения.
// Статус меняется по машине состояний, запись того же статуса ничего не делает.
// Адрес доставки проверяется на принадлежность владельцу заказа и меняется только до отгрузки.
func (e *Engine) UpdateOrder(ctx context.Context, orderID string, req UpdateOrderRequest) (order domain.Order, err error) {
	started := time.Now()
	defer func() { e.observe(metrics.OperationUpdate, started, err) }()
	defer func() {
		if err != nil {
			e.logFailure(err, log.Fields{"order_id": orderID}, "update order rejected")
		}
	}()

	if req.Status != nil && !req.Status.Valid() {
		return domain.Order{}, domain.ErrInvalidStatus
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.Valid() {
		return domain.Order{}, domain.ErrInvalidPaymentStatus
	}

	tx, release, err := e.begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	order, err = tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	previous := order.Status
	changed := false

	if req.Status != nil && *req.Status != order.Status {
		if err := checkTransition(order, *req.Status, req.Force); err != nil {
			return domain.Order{}, err
		}
		order.Status = *req.Status
		changed = true
	}

	if req.PaymentStatus != nil && *req.PaymentStatus != order.PaymentStatus {
		order.PaymentStatus = *req.PaymentStatus
		changed = true
	}

	if req.ShippingAddressID != nil && !sameString(order.ShippingAddressID, *req.ShippingAddressID) {
		if !req.Force && previous != domain.OrderStatusPending && previous != domain.OrderStatusProcessing {
			return domain.Order{}, &domain.InvalidOrderStateError{OrderID: order.ID, Current: previous}
		}
		if *req.ShippingAddressID == "" {
			order.ShippingAddressID = nil
		} else {
			ok, err := tx.Addresses().BelongsTo(ctx, *req.ShippingAddressID, order.UserID)
			if err != nil {
				return domain.Order{}, fmt.Errorf("check shipping address: %w", err)
			}
			if !ok {
				return domain.Order{}, domain.ErrAddressNotFound
			}
			order.ShippingAddressID = cloneString(req.ShippingAddressID)
		}
		changed = true
	}

	if req.PaymentMethod != nil && !sameString(order.PaymentMethod, *req.PaymentMethod) {
		if *req.PaymentMethod == "" {
			order.PaymentMethod = nil
		} else {
			order.PaymentMethod = cloneString(req.PaymentMethod)
		}
		changed = true
	}

	if !changed {
		return order, nil
	}

	order.UpdatedAt = e.now()
	if err := tx.Orders().Update(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("update order %s: %w", order.ID, err)
	}

	reason := req.Reason
	forced := req.Force && order.Status != previous && !previous.CanTransitionTo(order.Status)
	if forced {
		reason = ReasonAdminOverride
	}
	if err := e.recordEvent(ctx, tx, order, previous, domain.EventOrderUpdated, reason, order.UpdatedAt); err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit update of order %s: %w", order.ID, err)
	}

	entry := e.logger.WithFields(log.Fields{
		"order_id":        order.ID,
		"previous_status": previous,
		"status":          order.Status,
		"payment_status":  order.PaymentStatus,
	})
	if forced {
		entry.Warn("order status forced outside of state machine")
	} else {
		entry.Info("order updated")
	}
	e.metrics.RecordOrderUpdated()
	e.eventCommitted()
	return order, nil
}

func checkTransition(order domain.Order, target domain.OrderStatus, force bool) error {
	stateErr := &domain.InvalidOrderStateError{OrderID: order.ID, Current: order.Status, Target: target}
	switch {
	case target == domain.OrderStatusCancelled:
		// Отмена обязана вернуть сток.
		return stateErr
	case order.Status == domain.OrderStatusCancelled:
		// Сток отменённого заказа уже возвращён.
		return stateErr
	case force:
		return nil
	case !order.Status.CanTransitionTo(target):
		return stateErr
	}
	return nil
}

func sameString(current *string, next string) bool {
	if current == nil {
		return next == ""
	}
	return *current == next
}
