package orders

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
	"github.com/jaikishore143/ecommerce-backennd/internal/metrics"
)

// CancelOrder отменяет заказ и возвращает на склад все его позиции.
// Из DELIVERED и CANCELLED отмена невозможна: *InvalidOrderStateError.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (order domain.Order, err error) {
	started := time.Now()
	defer func() { e.observe(metrics.OperationCancel, started, err) }()
	defer func() {
		if err != nil {
			e.logFailure(err, log.Fields{"order_id": orderID}, "cancel order rejected")
		}
	}()

	tx, release, err := e.begin(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	defer release()

	order, err = tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status.Terminal() {
		return domain.Order{}, &domain.InvalidOrderStateError{OrderID: order.ID, Current: order.Status}
	}

	released, err := e.ledger.ReleaseItems(ctx, tx, order.Items)
	if err != nil {
		return domain.Order{}, err
	}

	previous := order.Status
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = e.now()
	if err := tx.Orders().Update(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("update order %s: %w", order.ID, err)
	}
	if err := e.recordEvent(ctx, tx, order, previous, domain.EventOrderCanceled, "canceled from "+string(previous), order.UpdatedAt); err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, fmt.Errorf("commit cancel of order %s: %w", order.ID, err)
	}

	e.metrics.RecordOrderCanceled()
	e.metrics.RecordStockReleased(released)
	e.eventCommitted()
	e.logger.WithFields(log.Fields{
		"order_id":        order.ID,
		"order_number":    order.OrderNumber,
		"previous_status": previous,
	}).Info("order canceled")
	return order, nil
}
