package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

const orderColumns = `
	id, user_id, order_number, status, subtotal, tax, shipping, total,
	shipping_address_id, payment_method, payment_status, created_at, updated_at`

type orderStore struct{ q queryer }

// Create вставляет заказ и позиции под SAVEPOINT: при коллизии номера откатываемся
// только к точке сохранения, и транзакция остаётся пригодной для новой попытки.
func (s orderStore) Create(ctx context.Context, order domain.Order) error {
	if _, err := s.q.ExecContext(ctx, `SAVEPOINT order_insert`); err != nil {
		return fmt.Errorf("savepoint order insert: %w", err)
	}

	if err := insertOrder(ctx, s.q, order); err != nil {
		if _, rbErr := s.q.ExecContext(ctx, `ROLLBACK TO SAVEPOINT order_insert`); rbErr != nil {
			return fmt.Errorf("rollback to savepoint after %v: %w", err, rbErr)
		}
		switch {
		case isOrderNumberViolation(err):
			return domain.ErrDuplicateOrderNumber
		case isOrderIDViolation(err):
			return domain.ErrDuplicateOrderID
		}
		return err
	}

	if _, err := s.q.ExecContext(ctx, `RELEASE SAVEPOINT order_insert`); err != nil {
		return fmt.Errorf("release savepoint order insert: %w", err)
	}
	return nil
}

func insertOrder(ctx context.Context, q queryer, order domain.Order) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, order_number, status, subtotal, tax, shipping, total,
			shipping_address_id, payment_method, payment_status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		order.ID, order.UserID, order.OrderNumber, string(order.Status),
		order.Subtotal, order.Tax, order.Shipping, order.Total,
		nullString(order.ShippingAddressID), nullString(order.PaymentMethod),
		string(order.PaymentStatus), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isOrderNumberViolation(err) || isOrderIDViolation(err) {
			return err
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, position, product_id, name, price, sale_price, quantity, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			item.ID, order.ID, i, item.ProductID, item.Name,
			item.Price, item.SalePrice, item.Quantity, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (s orderStore) GetForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := scanOrder(s.q.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order for update: %w", err)
	}

	items, err := loadItems(ctx, s.q, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

// Update сохраняет изменяемые поля. Позиции и суммы после создания не меняются.
func (s orderStore) Update(ctx context.Context, order domain.Order) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    payment_status = $3,
		    shipping_address_id = $4,
		    payment_method = $5,
		    updated_at = $6
		WHERE id = $1
	`,
		order.ID, string(order.Status), string(order.PaymentStatus),
		nullString(order.ShippingAddressID), nullString(order.PaymentMethod), order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// Get возвращает заказ или ErrOrderNotFound.
func (s *Store) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.getBy(ctx, `id = $1`, id)
}

// GetByNumber возвращает заказ по номеру или ErrOrderNotFound.
func (s *Store) GetByNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	return s.getBy(ctx, `order_number = $1`, orderNumber)
}

func (s *Store) getBy(ctx context.Context, where string, arg string) (domain.Order, error) {
	if s == nil || s.db == nil {
		return domain.Order{}, errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := loadItems(ctx, s.db, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (s *Store) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Order, int, error) {
	return s.list(ctx, `WHERE user_id = $1`, []any{userID}, offset, limit)
}

// List возвращает все заказы, новые первыми.
func (s *Store) List(ctx context.Context, offset, limit int) ([]domain.Order, int, error) {
	return s.list(ctx, ``, nil, offset, limit)
}

func (s *Store) list(ctx context.Context, where string, args []any, offset, limit int) ([]domain.Order, int, error) {
	if s == nil || s.db == nil {
		return nil, 0, errNotInitialized
	}
	if limit <= 0 {
		limit = domain.DefaultPageLimit
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	if offset < 0 || offset >= total {
		return []domain.Order{}, total, nil
	}

	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, orderColumns, where, n+1, n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	for i := range orders {
		items, err := loadItems(ctx, s.db, orders[i].ID)
		if err != nil {
			return nil, 0, err
		}
		orders[i].Items = items
	}

	return orders, total, nil
}

func scanOrder(row interface{ Scan(...any) error }) (domain.Order, error) {
	var (
		order         domain.Order
		status        string
		paymentStatus string
		addressID     sql.NullString
		paymentMethod sql.NullString
	)
	if err := row.Scan(
		&order.ID, &order.UserID, &order.OrderNumber, &status,
		&order.Subtotal, &order.Tax, &order.Shipping, &order.Total,
		&addressID, &paymentMethod, &paymentStatus, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	order.ShippingAddressID = stringPtr(addressID)
	order.PaymentMethod = stringPtr(paymentMethod)
	return order, nil
}

func loadItems(ctx context.Context, q queryer, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, name, price, sale_price, quantity, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.Name, &item.Price,
			&item.SalePrice, &item.Quantity, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
