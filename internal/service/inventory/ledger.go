// Package inventory ведёт складской учёт: списывает и возвращает сток в рамках единицы работы.
package inventory

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

// Ledger резервирует и возвращает товар. Сам транзакций не открывает:
// вызывающий код передаёт открытую единицу работы, и все изменения стока
// фиксируются или откатываются вместе с ней. Метрики стока пишет вызывающий код
// после Commit, иначе откаченный резерв попал бы в счётчики.
type Ledger struct {
	logger *log.Entry
}

// Option настраивает Ledger.
type Option func(*Ledger)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger создаёт складской учёт.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{logger: log.WithField("component", "inventory-ledger")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reserve списывает qty единиц товара одной условной операцией хранилища.
// Ошибки: ErrInvalidQuantity, *ProductNotFoundError, *InsufficientStockError.
func (l *Ledger) Reserve(ctx context.Context, tx domain.Tx, productID string, qty int32) (domain.Reservation, error) {
	if productID == "" {
		return domain.Reservation{}, domain.ErrProductRequired
	}
	if qty <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}

	product, err := tx.Products().DecrementStock(ctx, productID, qty)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			l.logger.WithFields(log.Fields{
				"product_id": productID,
				"requested":  qty,
				"available":  stockErr.Available,
			}).Info("not enough stock to reserve")
			return domain.Reservation{}, err
		}
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.Reservation{}, err
		}
		return domain.Reservation{}, fmt.Errorf("reserve %d of product %s: %w", qty, productID, err)
	}

	reservation := domain.Reservation{
		ProductID: product.ID,
		Quantity:  qty,
		Name:      product.Name,
		Price:     product.Price,
		SalePrice: product.SalePrice,
		Remaining: product.Stock,
	}
	if errs := reservation.Validate(); len(errs) > 0 {
		return domain.Reservation{}, fmt.Errorf("reserve product %s: %w", productID, errors.Join(errs...))
	}

	l.logger.WithFields(log.Fields{
		"product_id": productID,
		"quantity":   qty,
		"remaining":  product.Stock,
	}).Debug("stock reserved")
	return reservation, nil
}

// Release возвращает qty единиц на склад и сообщает, сколько вернулось фактически.
// Если товара больше нет, это не ошибка: возвращать некуда, результат 0.
func (l *Ledger) Release(ctx context.Context, tx domain.Tx, productID string, qty int32) (int32, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}

	found, err := tx.Products().IncrementStock(ctx, productID, qty)
	if err != nil {
		return 0, fmt.Errorf("release %d of product %s: %w", qty, productID, err)
	}
	if !found {
		l.logger.WithFields(log.Fields{
			"product_id": productID,
			"quantity":   qty,
		}).Warn("product no longer exists, skipping stock release")
		return 0, nil
	}

	l.logger.WithFields(log.Fields{
		"product_id": productID,
		"quantity":   qty,
	}).Debug("stock released")
	return qty, nil
}

// ReleaseItems возвращает на склад все позиции заказа и суммарно возвращённые единицы.
func (l *Ledger) ReleaseItems(ctx context.Context, tx domain.Tx, items []domain.OrderItem) (int32, error) {
	var released int32
	for _, item := range items {
		n, err := l.Release(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			return released, err
		}
		released += n
	}
	return released, nil
}
