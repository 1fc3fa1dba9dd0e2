package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

// queryer: общее подмножество *sql.DB и *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// tx: открытая транзакция PostgreSQL.
type tx struct {
	tx   *sql.Tx
	mu   sync.Mutex
	done bool
}

func (t *tx) Products() domain.ProductStore  { return productStore{q: t.tx} }
func (t *tx) Users() domain.UserStore        { return userStore{q: t.tx} }
func (t *tx) Addresses() domain.AddressStore { return addressStore{q: t.tx} }
func (t *tx) Orders() domain.OrderStore      { return orderStore{q: t.tx} }
func (t *tx) Outbox() domain.OutboxStore     { return outboxStore{q: t.tx} }
func (t *tx) Timeline() domain.TimelineStore { return timelineStore{q: t.tx} }

// Commit фиксирует транзакцию.
func (t *tx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return domain.ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Rollback откатывает транзакцию. После Commit ничего не делает.
func (t *tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

var _ domain.Tx = (*tx)(nil)
