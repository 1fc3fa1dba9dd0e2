package memory

import (
	"context"
	"fmt"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

// SeedProduct добавляет или заменяет товар каталога.
func (s *Store) SeedProduct(p domain.Product) error {
	if p.ID == "" {
		return domain.ErrProductRequired
	}
	if p.Stock < 0 {
		return fmt.Errorf("seed product %s: negative stock %d", p.ID, p.Stock)
	}
	if err := s.acquire(context.Background()); err != nil {
		return err
	}
	defer s.release()

	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = s.now()
	}
	s.products[p.ID] = p
	return nil
}

// SeedUser регистрирует пользователя.
func (s *Store) SeedUser(userID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}
	if err := s.acquire(context.Background()); err != nil {
		return err
	}
	defer s.release()

	s.users[userID] = struct{}{}
	return nil
}

// SeedAddress добавляет адрес доставки пользователя.
func (s *Store) SeedAddress(addr domain.Address) error {
	if addr.ID == "" || addr.UserID == "" {
		return fmt.Errorf("seed address: id and user id are required")
	}
	if err := s.acquire(context.Background()); err != nil {
		return err
	}
	defer s.release()

	s.addresses[addr.ID] = addr
	return nil
}

// Product возвращает текущее состояние товара.
func (s *Store) Product(ctx context.Context, productID string) (domain.Product, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.Product{}, err
	}
	defer s.release()

	p, ok := s.products[productID]
	if !ok {
		return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
	}
	return p, nil
}

type productStore struct{ t *tx }

func (ps productStore) Get(_ context.Context, productID string) (domain.Product, error) {
	if err := ps.t.active(); err != nil {
		return domain.Product{}, err
	}
	p, ok := ps.t.store.products[productID]
	if !ok {
		return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
	}
	return p, nil
}

func (ps productStore) DecrementStock(_ context.Context, productID string, qty int32) (domain.Product, error) {
	if err := ps.t.active(); err != nil {
		return domain.Product{}, err
	}
	if qty <= 0 {
		return domain.Product{}, domain.ErrInvalidQuantity
	}
	s := ps.t.store
	p, ok := s.products[productID]
	if !ok {
		return domain.Product{}, &domain.ProductNotFoundError{ProductID: productID}
	}
	if p.Stock < qty {
		return domain.Product{}, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: p.Stock,
		}
	}

	prev := p
	p.Stock -= qty
	p.UpdatedAt = s.now()
	s.products[productID] = p
	ps.t.record(func() { s.products[productID] = prev })
	return p, nil
}

func (ps productStore) IncrementStock(_ context.Context, productID string, qty int32) (bool, error) {
	if err := ps.t.active(); err != nil {
		return false, err
	}
	if qty <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	s := ps.t.store
	p, ok := s.products[productID]
	if !ok {
		return false, nil
	}

	prev := p
	p.Stock += qty
	p.UpdatedAt = s.now()
	s.products[productID] = p
	ps.t.record(func() { s.products[productID] = prev })
	return true, nil
}

type userStore struct{ t *tx }

func (us userStore) Exists(_ context.Context, userID string) (bool, error) {
	if err := us.t.active(); err != nil {
		return false, err
	}
	_, ok := us.t.store.users[userID]
	return ok, nil
}

type addressStore struct{ t *tx }

func (as addressStore) BelongsTo(_ context.Context, addressID, userID string) (bool, error) {
	if err := as.t.active(); err != nil {
		return false, err
	}
	addr, ok := as.t.store.addresses[addressID]
	return ok && addr.UserID == userID, nil
}
