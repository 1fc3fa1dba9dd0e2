package domain

import (
	"context"
	"time"
)

// UnitOfWork открывает атомарную область изменений.
// Все изменения через Tx применяются вместе при Commit или отбрасываются при Rollback.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx: открытая единица работы. Rollback после Commit ничего не делает,
// поэтому вызывающий код может сразу написать defer tx.Rollback(ctx).
type Tx interface {
	Products() ProductStore
	Users() UserStore
	Addresses() AddressStore
	Orders() OrderStore
	Outbox() OutboxStore
	Timeline() TimelineStore
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ProductStore: доступ к каталогу внутри транзакции.
type ProductStore interface {
	// Get возвращает товар или *ProductNotFoundError.
	Get(ctx context.Context, productID string) (Product, error)
	// DecrementStock уменьшает сток одной условной операцией (stock >= qty).
	// Возвращает товар после списания, *ProductNotFoundError или *InsufficientStockError.
	DecrementStock(ctx context.Context, productID string, qty int32) (Product, error)
	// IncrementStock возвращает qty на склад. false означает, что товара больше нет.
	IncrementStock(ctx context.Context, productID string, qty int32) (bool, error)
}

// UserStore проверяет существование пользователя.
type UserStore interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// AddressStore проверяет принадлежность адреса пользователю.
type AddressStore interface {
	BelongsTo(ctx context.Context, addressID, userID string) (bool, error)
}

// OrderStore: запись заказов внутри транзакции.
type OrderStore interface {
	// Create сохраняет заказ с позициями. При занятом номере возвращает ErrDuplicateOrderNumber,
	// транзакция при этом остаётся пригодной для повторной попытки. Занятый ID даёт ErrDuplicateOrderID.
	Create(ctx context.Context, order Order) error
	// GetForUpdate читает заказ и блокирует его до конца транзакции.
	GetForUpdate(ctx context.Context, orderID string) (Order, error)
	// Update сохраняет изменяемые поля: статусы, адрес, способ оплаты, updated_at.
	Update(ctx context.Context, order Order) error
}

// OutboxStore ставит событие в transactional outbox в рамках транзакции.
type OutboxStore interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
}

// TimelineStore дописывает событие в историю заказа в рамках транзакции.
type TimelineStore interface {
	Append(ctx context.Context, event TimelineEvent) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository: сторона outbox, которую опрашивает воркер публикации.
type OutboxRepository interface {
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxPurger удаляет уже опубликованные сообщения outbox.
type OutboxPurger interface {
	// DeleteSent удаляет до limit сообщений со статусом sent, обновлённых не позже before.
	DeleteSent(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
