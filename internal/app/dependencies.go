package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
	healthcheck "github.com/jaikishore143/ecommerce-backennd/internal/health"
	"github.com/jaikishore143/ecommerce-backennd/internal/metrics"
	"github.com/jaikishore143/ecommerce-backennd/internal/ordernumber"
	"github.com/jaikishore143/ecommerce-backennd/internal/pricing"
	"github.com/jaikishore143/ecommerce-backennd/internal/service/inventory"
	"github.com/jaikishore143/ecommerce-backennd/internal/service/orders"
	"github.com/jaikishore143/ecommerce-backennd/internal/storage/memory"
	"github.com/jaikishore143/ecommerce-backennd/internal/storage/postgres"
)

// storage: хранилище, которое умеет всё, что нужно движку и воркеру outbox.
type storage interface {
	domain.UnitOfWork
	domain.OrderReader
	domain.OutboxRepository
	domain.OutboxPurger
	healthcheck.Pinger
}

// Dependencies содержит собранные компоненты процесса.
type Dependencies struct {
	Store   storage
	Engine  *orders.Engine
	Metrics *metrics.EngineMetrics
	Logger  *log.Entry

	closeStore func() error
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d == nil || d.closeStore == nil {
		return nil
	}
	return d.closeStore()
}

// NewDependencies открывает хранилище по cfg.StorageDriver и собирает движок заказов.
func NewDependencies(ctx context.Context, cfg Config, registerer prometheus.Registerer, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	deps := &Dependencies{Logger: logger}
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewStore()
		if cfg.SeedDemoCatalog {
			if err := SeedDemoCatalog(store); err != nil {
				return nil, fmt.Errorf("seed demo catalog: %w", err)
			}
			logger.WithField("products", len(demoProducts)).Info("in-memory catalog seeded")
		}
		deps.Store = store
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		deps.Store = store
		deps.closeStore = store.Close
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	deps.Metrics = metrics.NewEngineMetricsWithRegisterer(registerer)
	engineLogger := logger.WithField("component", "order-engine")
	deps.Engine = orders.NewEngine(deps.Store, deps.Store,
		orders.WithLogger(engineLogger),
		orders.WithMetrics(deps.Metrics),
		orders.WithLedger(inventory.NewLedger(
			inventory.WithLogger(logger.WithField("component", "inventory-ledger")),
		)),
		orders.WithPricing(pricing.NewCalculator(cfg.Pricing)),
		orders.WithNumberGenerator(ordernumber.New()),
		orders.WithMaxOrderNumberAttempts(cfg.MaxOrderNumberAttempts),
	)

	logger.WithField("storage", cfg.StorageDriver).Info("storage initialized")
	return deps, nil
}

// Демо-каталог для запуска без базы данных.
var (
	demoProducts = []domain.Product{
		{ID: "sku-keyboard", Name: "Mechanical keyboard", Price: decimal.RequireFromString("79.90"), Stock: 50},
		{ID: "sku-mouse", Name: "Wireless mouse", Price: decimal.RequireFromString("24.50"), Stock: 100},
		{
			ID: "sku-monitor", Name: "27\" monitor", Price: decimal.RequireFromString("299.00"),
			SalePrice: decimal.NewNullDecimal(decimal.RequireFromString("249.00")), Stock: 10,
		},
		{ID: "sku-cable", Name: "USB-C cable", Price: decimal.RequireFromString("9.99"), Stock: 500},
	}
	demoUsers     = []string{"user-1", "user-2", "user-3"}
	demoAddresses = []domain.Address{
		{ID: "addr-1", UserID: "user-1"},
		{ID: "addr-2", UserID: "user-2"},
		{ID: "addr-3", UserID: "user-3"},
	}
)

// SeedDemoCatalog заполняет in-memory хранилище демо-товарами и пользователями.
func SeedDemoCatalog(store *memory.Store) error {
	for _, p := range demoProducts {
		if err := store.SeedProduct(p); err != nil {
			return err
		}
	}
	for _, id := range demoUsers {
		if err := store.SeedUser(id); err != nil {
			return err
		}
	}
	for _, addr := range demoAddresses {
		if err := store.SeedAddress(addr); err != nil {
			return err
		}
	}
	return nil
}
