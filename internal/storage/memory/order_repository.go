package memory

import (
	"context"
	"sort"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

type orderStore struct{ t *tx }

// Create сохраняет новый заказ. Занятый номер даёт ErrDuplicateOrderNumber, занятый ID
// даёт ErrDuplicateOrderID; состояние в обоих случаях не меняется.
func (st orderStore) Create(_ context.Context, order domain.Order) error {
	if err := st.t.active(); err != nil {
		return err
	}
	s := st.t.store
	if _, exists := s.byNumber[order.OrderNumber]; exists {
		return domain.ErrDuplicateOrderNumber
	}
	if _, exists := s.orders[order.ID]; exists {
		return domain.ErrDuplicateOrderID
	}

	// Сохраняем копию, чтобы избежать мутаций извне.
	s.orders[order.ID] = order.Clone()
	s.byNumber[order.OrderNumber] = order.ID
	st.t.record(func() {
		delete(s.orders, order.ID)
		delete(s.byNumber, order.OrderNumber)
	})
	return nil
}

// GetForUpdate читает заказ; эксклюзивность обеспечивает блокировка транзакции.
func (st orderStore) GetForUpdate(_ context.Context, orderID string) (domain.Order, error) {
	if err := st.t.active(); err != nil {
		return domain.Order{}, err
	}
	order, ok := st.t.store.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

// Update перезаписывает изменяемые поля заказа. Позиции и суммы не трогаются.
func (st orderStore) Update(_ context.Context, order domain.Order) error {
	if err := st.t.active(); err != nil {
		return err
	}
	s := st.t.store
	current, ok := s.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}

	patch := order.Clone()
	next := current.Clone()
	next.Status = patch.Status
	next.PaymentStatus = patch.PaymentStatus
	next.ShippingAddressID = patch.ShippingAddressID
	next.PaymentMethod = patch.PaymentMethod
	next.UpdatedAt = patch.UpdatedAt
	s.orders[order.ID] = next
	st.t.record(func() { s.orders[order.ID] = current })
	return nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (s *Store) Get(ctx context.Context, id string) (domain.Order, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.Order{}, err
	}
	defer s.release()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

// GetByNumber возвращает заказ по номеру или ErrOrderNotFound.
func (s *Store) GetByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.Order{}, err
	}
	defer s.release()

	id, ok := s.byNumber[orderNumber]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return s.orders[id].Clone(), nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (s *Store) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Order, int, error) {
	return s.list(ctx, func(o domain.Order) bool { return o.UserID == userID }, offset, limit)
}

// List возвращает все заказы, новые первыми.
func (s *Store) List(ctx context.Context, offset, limit int) ([]domain.Order, int, error) {
	return s.list(ctx, func(domain.Order) bool { return true }, offset, limit)
}

func (s *Store) list(ctx context.Context, match func(domain.Order) bool, offset, limit int) ([]domain.Order, int, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, 0, err
	}
	defer s.release()

	result := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		if !match(order) {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	total := len(result)
	if offset < 0 || offset >= total {
		return []domain.Order{}, total, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	page := make([]domain.Order, len(result))
	for i, order := range result {
		page[i] = order.Clone()
	}
	return page, total, nil
}

var _ domain.OrderReader = (*Store)(nil)
