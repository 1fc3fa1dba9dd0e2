// Package memory содержит in-memory реализацию единицы работы и чтения заказов
// для локальной разработки, симулятора и тестов.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

// Store хранит каталог, заказы, историю и outbox в памяти.
// Транзакция держит эксклюзивную блокировку от Begin до Commit/Rollback,
// поэтому все единицы работы сериализуются. Чтения тоже ждут завершения транзакции
// и никогда не видят незакоммиченных изменений.
type Store struct {
	// lock: семафор на одну единицу работы; канал позволяет прервать ожидание по ctx.
	lock chan struct{}
	now  func() time.Time

	products  map[string]domain.Product
	users     map[string]struct{}
	addresses map[string]domain.Address

	orders   map[string]domain.Order
	byNumber map[string]string

	timeline map[string][]domain.TimelineEvent

	outbox    map[string]*outboxRecord
	outboxSeq int64
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник времени (для детерминированных тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore создаёт пустое хранилище.
func NewStore(opts ...Option) *Store {
	s := &Store{
		lock:      make(chan struct{}, 1),
		now:       func() time.Time { return time.Now().UTC() },
		products:  make(map[string]domain.Product),
		users:     make(map[string]struct{}),
		addresses: make(map[string]domain.Address),
		orders:    make(map[string]domain.Order),
		byNumber:  make(map[string]string),
		timeline:  make(map[string][]domain.TimelineEvent),
		outbox:    make(map[string]*outboxRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.lock
}

// Begin открывает единицу работы. Ожидание блокировки прерывается по ctx.
func (s *Store) Begin(ctx context.Context) (domain.Tx, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	return &tx{store: s}, nil
}

// Ping проверяет, что хранилище не занято зависшей транзакцией дольше ctx.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	s.release()
	return nil
}

// tx: открытая единица работы с журналом отката.
type tx struct {
	store *Store
	undo  []func()
	done  bool
	mu    sync.Mutex
}

func (t *tx) record(undo func()) {
	t.undo = append(t.undo, undo)
}

func (t *tx) active() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return domain.ErrTxDone
	}
	return nil
}

func (t *tx) Products() domain.ProductStore  { return productStore{t} }
func (t *tx) Users() domain.UserStore        { return userStore{t} }
func (t *tx) Addresses() domain.AddressStore { return addressStore{t} }
func (t *tx) Orders() domain.OrderStore      { return orderStore{t} }
func (t *tx) Outbox() domain.OutboxStore     { return outboxStore{t} }
func (t *tx) Timeline() domain.TimelineStore { return timelineStore{t} }

// Commit фиксирует изменения и освобождает хранилище.
func (t *tx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return domain.ErrTxDone
	}
	t.done = true
	t.undo = nil
	t.store.release()
	return nil
}

// Rollback откатывает изменения в обратном порядке. После Commit ничего не делает.
func (t *tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.done = true
	t.undo = nil
	t.store.release()
	return nil
}

var (
	_ domain.UnitOfWork = (*Store)(nil)
	_ domain.Tx         = (*tx)(nil)
)
