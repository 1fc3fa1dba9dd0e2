package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/jaikishore143/ecommerce-backennd/internal/messaging/kafka"
	"github.com/jaikishore143/ecommerce-backennd/internal/pricing"
	"github.com/jaikishore143/ecommerce-backennd/internal/service/orders"
	"github.com/jaikishore143/ecommerce-backennd/internal/service/outbox"
)

// Драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Переменные окружения конфигурации.
const (
	EnvGRPCAddr               = "ENGINE_GRPC_ADDR"
	EnvMetricsAddr            = "ENGINE_METRICS_ADDR"
	EnvLogLevel               = "ENGINE_LOG_LEVEL"
	EnvStorageDriver          = "ENGINE_STORAGE_DRIVER"
	EnvPostgresDSN            = "ENGINE_POSTGRES_DSN"
	EnvPostgresAutoMigrate    = "ENGINE_POSTGRES_AUTO_MIGRATE"
	EnvSeedDemoCatalog        = "ENGINE_SEED_DEMO_CATALOG"
	EnvTaxRate                = "ENGINE_TAX_RATE"
	EnvFreeShippingThreshold  = "ENGINE_FREE_SHIPPING_THRESHOLD"
	EnvFlatShipping           = "ENGINE_FLAT_SHIPPING"
	EnvMaxOrderNumberAttempts = "ENGINE_ORDER_NUMBER_ATTEMPTS"
	EnvKafkaBrokers           = "ENGINE_KAFKA_BROKERS"
	EnvKafkaTopic             = "ENGINE_KAFKA_TOPIC"
	EnvKafkaDLQTopic          = "ENGINE_KAFKA_DLQ_TOPIC"
	EnvOutboxPollInterval     = "ENGINE_OUTBOX_POLL_INTERVAL"
	EnvOutboxBatchSize        = "ENGINE_OUTBOX_BATCH_SIZE"
	EnvOutboxMaxAttempts      = "ENGINE_OUTBOX_MAX_ATTEMPTS"
	EnvOutboxRetryDelay       = "ENGINE_OUTBOX_RETRY_DELAY"
	EnvOutboxMaxLag           = "ENGINE_OUTBOX_MAX_LAG"
	EnvOutboxRetention        = "ENGINE_OUTBOX_RETENTION"
	EnvOutboxCleanupInterval  = "ENGINE_OUTBOX_CLEANUP_INTERVAL"
)

// Config описывает настройки процесса движка заказов.
type Config struct {
	GRPCAddr    string
	MetricsAddr string
	LogLevel    log.Level

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	// SeedDemoCatalog заполняет in-memory каталог демонстрационными товарами.
	SeedDemoCatalog bool

	Pricing                pricing.Policy
	MaxOrderNumberAttempts int

	// KafkaBrokers пустой, события копятся в outbox без публикации.
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaDLQTopic string

	Outbox outbox.Config
	// OutboxMaxLag: возраст pending-сообщения, после которого /healthz отвечает degraded.
	OutboxMaxLag time.Duration
	// OutboxRetention: сколько хранить опубликованные сообщения до удаления.
	OutboxRetention       time.Duration
	OutboxCleanupInterval time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска на in-memory хранилище.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:               ":50051",
		MetricsAddr:            ":9090",
		LogLevel:               log.InfoLevel,
		StorageDriver:          StorageDriverMemory,
		PostgresAutoMigrate:    true,
		SeedDemoCatalog:        true,
		Pricing:                pricing.DefaultPolicy(),
		MaxOrderNumberAttempts: orders.DefaultMaxOrderNumberAttempts,
		KafkaTopic:             kafka.TopicOrderEvents,
		KafkaDLQTopic:          kafka.TopicDeadLetterQueue,
		Outbox:                 outbox.DefaultConfig(),
		OutboxMaxLag:           5 * time.Minute,
		OutboxRetention:        outbox.DefaultRetention,
		OutboxCleanupInterval:  outbox.DefaultCleanupInterval,
	}
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, fmt.Errorf("%s is required for postgres storage", EnvPostgresDSN))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if err := c.Pricing.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxOrderNumberAttempts <= 0 {
		errs = append(errs, errors.New("order number attempts must be > 0"))
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvKafkaTopic, EnvKafkaBrokers))
	}
	if c.GRPCAddr == "" || c.MetricsAddr == "" {
		errs = append(errs, errors.New("grpc and metrics addresses must be set"))
	}
	return errors.Join(errs...)
}

// EnvLookup читает переменную окружения; второй результат, задана ли она.
type EnvLookup func(key string) (string, bool)

// ConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения не подменяются умолчаниями: возвращается ошибка со всеми замечаниями.
func ConfigFromEnv(lookup EnvLookup) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := DefaultConfig()
	p := envParser{lookup: lookup}

	p.str(EnvGRPCAddr, &cfg.GRPCAddr)
	p.str(EnvMetricsAddr, &cfg.MetricsAddr)
	p.level(EnvLogLevel, &cfg.LogLevel)
	if p.str(EnvStorageDriver, &cfg.StorageDriver) {
		cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	}
	p.str(EnvPostgresDSN, &cfg.PostgresDSN)
	p.boolean(EnvPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	p.boolean(EnvSeedDemoCatalog, &cfg.SeedDemoCatalog)

	p.money(EnvTaxRate, &cfg.Pricing.TaxRate)
	p.money(EnvFreeShippingThreshold, &cfg.Pricing.FreeShippingThreshold)
	p.money(EnvFlatShipping, &cfg.Pricing.FlatShipping)
	p.integer(EnvMaxOrderNumberAttempts, &cfg.MaxOrderNumberAttempts, positive, "must be > 0")

	var brokers string
	if p.str(EnvKafkaBrokers, &brokers) {
		cfg.KafkaBrokers = splitList(brokers)
	}
	p.str(EnvKafkaTopic, &cfg.KafkaTopic)
	p.str(EnvKafkaDLQTopic, &cfg.KafkaDLQTopic)

	p.duration(EnvOutboxPollInterval, &cfg.Outbox.PollInterval, func(d time.Duration) bool { return d > 0 }, "must be > 0")
	p.integer(EnvOutboxBatchSize, &cfg.Outbox.BatchSize, positive, "must be > 0")
	p.integer(EnvOutboxMaxAttempts, &cfg.Outbox.MaxAttempts, positive, "must be > 0")
	p.duration(EnvOutboxRetryDelay, &cfg.Outbox.RetryBaseDelay, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")
	p.duration(EnvOutboxMaxLag, &cfg.OutboxMaxLag, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")
	p.duration(EnvOutboxRetention, &cfg.OutboxRetention, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")
	p.duration(EnvOutboxCleanupInterval, &cfg.OutboxCleanupInterval, func(d time.Duration) bool { return d > 0 }, "must be > 0")

	if len(p.errs) > 0 {
		return cfg, errors.Join(p.errs...)
	}
	return cfg, cfg.Validate()
}

func positive(v int) bool { return v > 0 }

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envParser собирает ошибки разбора, чтобы показать их все сразу.
type envParser struct {
	lookup EnvLookup
	errs   []error
}

func (p *envParser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *envParser) fail(key, value string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, value, err))
}

func (p *envParser) str(key string, dst *string) bool {
	v, ok := p.raw(key)
	if ok {
		*dst = v
	}
	return ok
}

func (p *envParser) boolean(key string, dst *bool) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	parsed, err := parseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = parsed
}

func (p *envParser) integer(key string, dst *int, valid func(int) bool, rule string) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err == nil && !valid(parsed) {
		err = errors.New(rule)
	}
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = parsed
}

func (p *envParser) duration(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err == nil && !valid(parsed) {
		err = errors.New(rule)
	}
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = parsed
}

func (p *envParser) money(key string, dst *decimal.Decimal) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	parsed, err := decimal.NewFromString(v)
	if err == nil && parsed.IsNegative() {
		err = errors.New("must be >= 0")
	}
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = parsed
}

func (p *envParser) level(key string, dst *log.Level) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	parsed, err := log.ParseLevel(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = parsed
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}
