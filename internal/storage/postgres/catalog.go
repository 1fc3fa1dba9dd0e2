package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

const productColumns = `id, name, price, sale_price, stock, updated_at`

type productStore struct{ q queryer }

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.SalePrice, &p.Stock, &p.UpdatedAt)
	return p, err
}

func (s productStore) Get(ctx context.Context, productID string) (domain.Product, error) {
	p, err := scanProduct(s.q.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
		}
		return domain.Product{}, fmt.Errorf("select product %s: %w", productID, err)
	}
	return p, nil
}

// DecrementStock списывает сток одним условным UPDATE, поэтому конкурентные
// резервы одного товара сериализуются на блокировке строки и не уводят сток в минус.
func (s productStore) DecrementStock(ctx context.Context, productID string, qty int32) (domain.Product, error) {
	if qty <= 0 {
		return domain.Product{}, domain.ErrInvalidQuantity
	}

	p, err := scanProduct(s.q.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock - $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND stock >= $2
		RETURNING `+productColumns,
		productID, qty,
	))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("decrement stock of %s: %w", productID, err)
	}

	// Строка не обновилась: товара нет или не хватает стока.
	var available int32
	err = s.q.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("read stock of %s: %w", productID, err)
	}
	return domain.Product{}, &domain.InsufficientStockError{
		ProductID: productID,
		Requested: qty,
		Available: available,
	}
}

func (s productStore) IncrementStock(ctx context.Context, productID string, qty int32) (bool, error) {
	if qty <= 0 {
		return false, domain.ErrInvalidQuantity
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, productID, qty)
	if err != nil {
		return false, fmt.Errorf("increment stock of %s: %w", productID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for stock of %s: %w", productID, err)
	}
	return affected > 0, nil
}

type userStore struct{ q queryer }

func (s userStore) Exists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	if err := s.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user %s: %w", userID, err)
	}
	return exists, nil
}

type addressStore struct{ q queryer }

func (s addressStore) BelongsTo(ctx context.Context, addressID, userID string) (bool, error) {
	var exists bool
	if err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM addresses WHERE id = $1 AND user_id = $2)
	`, addressID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check address %s: %w", addressID, err)
	}
	return exists, nil
}

// UpsertProduct создаёт или обновляет товар каталога (заполнение стенда и тесты).
func (s *Store) UpsertProduct(ctx context.Context, p domain.Product) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if p.ID == "" {
		return domain.ErrProductRequired
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, sale_price, stock, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    price = EXCLUDED.price,
		    sale_price = EXCLUDED.sale_price,
		    stock = EXCLUDED.stock,
		    updated_at = EXCLUDED.updated_at
	`, p.ID, p.Name, p.Price, p.SalePrice, p.Stock)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}
	return nil
}

// UpsertUser регистрирует пользователя, если его ещё нет.
func (s *Store) UpsertUser(ctx context.Context, userID string) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id) VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, userID); err != nil {
		return fmt.Errorf("upsert user %s: %w", userID, err)
	}
	return nil
}

// UpsertAddress добавляет адрес пользователя.
func (s *Store) UpsertAddress(ctx context.Context, addr domain.Address) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO addresses (id, user_id) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id
	`, addr.ID, addr.UserID); err != nil {
		return fmt.Errorf("upsert address %s: %w", addr.ID, err)
	}
	return nil
}

// Product возвращает текущее состояние товара вне транзакции.
func (s *Store) Product(ctx context.Context, productID string) (domain.Product, error) {
	if s == nil || s.db == nil {
		return domain.Product{}, errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return productStore{q: s.db}.Get(ctx, productID)
}
