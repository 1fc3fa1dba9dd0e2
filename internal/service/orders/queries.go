package orders

import (
	"context"
	"strings"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

// GetOrder возвращает заказ по идентификатору.
func (e *Engine) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return e.reader.Get(ctx, orderID)
}

// GetOrderByNumber возвращает заказ по номеру.
func (e *Engine) GetOrderByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	return e.reader.GetByNumber(ctx, orderNumber)
}

// ListUserOrders возвращает страницу заказов пользователя, новые первыми.
func (e *Engine) ListUserOrders(ctx context.Context, userID string, page domain.Page) (domain.OrderPage, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.OrderPage{}, domain.ErrUserRequired
	}
	page = page.Normalize()
	items, total, err := e.reader.ListByUser(ctx, userID, page.Offset(), page.Limit)
	if err != nil {
		return domain.OrderPage{}, err
	}
	return domain.NewOrderPage(items, total, page), nil
}

// ListOrders возвращает страницу всех заказов, новые первыми.
func (e *Engine) ListOrders(ctx context.Context, page domain.Page) (domain.OrderPage, error) {
	page = page.Normalize()
	items, total, err := e.reader.List(ctx, page.Offset(), page.Limit)
	if err != nil {
		return domain.OrderPage{}, err
	}
	return domain.NewOrderPage(items, total, page), nil
}

// Timeline возвращает историю заказа. Для неизвестного заказа, ErrOrderNotFound.
func (e *Engine) Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if _, err := e.reader.Get(ctx, orderID); err != nil {
		return nil, err
	}
	return e.reader.Timeline(ctx, orderID)
}
