// Command checkout-sim гоняет конкурентных покупателей через движок заказов
// на хранилище в памяти и проверяет, что сток не ушёл в минус.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
	"github.com/jaikishore143/ecommerce-backennd/internal/metrics"
	"github.com/jaikishore143/ecommerce-backennd/internal/ordernumber"
	"github.com/jaikishore143/ecommerce-backennd/internal/pricing"
	"github.com/jaikishore143/ecommerce-backennd/internal/service/inventory"
	"github.com/jaikishore143/ecommerce-backennd/internal/service/orders"
	"github.com/jaikishore143/ecommerce-backennd/internal/storage/memory"
)

type config struct {
	customers      int
	ordersPerUser  int
	products       int
	stock          int
	maxQty         int
	itemsPerOrder  int
	cancelRate     int
	seed           int64
	outputPath     string
	verboseLogging bool
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
}

type operationReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	Reasons   map[string]int64 `json:"reasons"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type productReport struct {
	ProductID    string `json:"product_id"`
	InitialStock int32  `json:"initial_stock"`
	FinalStock   int32  `json:"final_stock"`
	Reserved     int32  `json:"reserved"`
	Consistent   bool   `json:"consistent"`
}

type report struct {
	StartedAt       time.Time                  `json:"started_at"`
	DurationSeconds float64                    `json:"duration_seconds"`
	OrdersCreated   int                        `json:"orders_created"`
	OrdersCanceled  int                        `json:"orders_canceled"`
	Operations      map[string]operationReport `json:"operations"`
	Products        []productReport            `json:"products"`
	Consistent      bool                       `json:"consistent"`
}

type operationStats struct {
	calls     int64
	success   int64
	failed    int64
	reasons   map[string]int64
	latencies []float64
}

type collector struct {
	mu         sync.Mutex
	operations map[string]*operationStats
	placed     []string
}

func newCollector() *collector {
	return &collector{operations: make(map[string]*operationStats)}
}

func (c *collector) record(operation string, latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.operations[operation]
	if !ok {
		stats = &operationStats{reasons: make(map[string]int64)}
		c.operations[operation] = stats
	}
	stats.calls++
	if err == nil {
		stats.success++
	} else {
		stats.failed++
	}
	stats.reasons[domain.Reason(err)]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) addOrder(orderID string) {
	c.mu.Lock()
	c.placed = append(c.placed, orderID)
	c.mu.Unlock()
}

func (c *collector) orderIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.placed...)
}

func (c *collector) operationReports() map[string]operationReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]operationReport, len(c.operations))
	for name, stats := range c.operations {
		reasons := make(map[string]int64, len(stats.reasons))
		for reason, count := range stats.reasons {
			reasons[reason] = count
		}
		out[name] = operationReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			Reasons:   reasons,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}
	return out
}

func parseConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("checkout-sim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var cfg config
	fs.IntVar(&cfg.customers, "customers", 20, "concurrent customers")
	fs.IntVar(&cfg.ordersPerUser, "orders", 10, "orders placed by each customer")
	fs.IntVar(&cfg.products, "products", 5, "catalog size")
	fs.IntVar(&cfg.stock, "stock", 50, "initial stock per product")
	fs.IntVar(&cfg.maxQty, "max-qty", 3, "max quantity per item")
	fs.IntVar(&cfg.itemsPerOrder, "items", 2, "max items per order")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 20, "percent of placed orders to cancel")
	fs.Int64Var(&cfg.seed, "seed", time.Now().UnixNano(), "random seed")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report path")
	fs.BoolVar(&cfg.verboseLogging, "v", false, "log engine rejections")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	var errs []error
	positive := map[string]int{
		"customers": cfg.customers,
		"orders":    cfg.ordersPerUser,
		"products":  cfg.products,
		"max-qty":   cfg.maxQty,
		"items":     cfg.itemsPerOrder,
	}
	for _, name := range []string{"customers", "orders", "products", "max-qty", "items"} {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf("-%s must be positive", name))
		}
	}
	if cfg.stock < 0 {
		errs = append(errs, errors.New("-stock must be non-negative"))
	}
	if cfg.cancelRate < 0 || cfg.cancelRate > 100 {
		errs = append(errs, errors.New("-cancel-rate must be within [0, 100]"))
	}
	return cfg, errors.Join(errs...)
}

// simulation связывает хранилище, движок и сборщик результатов одного прогона.
type simulation struct {
	cfg     config
	store   *memory.Store
	engine  *orders.Engine
	col     *collector
	initial map[string]int32
}

func newSimulation(cfg config, logger *log.Entry) (*simulation, error) {
	store := memory.NewStore()
	initial := make(map[string]int32, cfg.products)
	for i := 0; i < cfg.products; i++ {
		id := productID(i)
		price := decimal.New(int64(500+i*250), -2)
		if err := store.SeedProduct(domain.Product{
			ID:    id,
			Name:  "Simulated product " + id,
			Price: price,
			Stock: int32(cfg.stock),
		}); err != nil {
			return nil, err
		}
		initial[id] = int32(cfg.stock)
	}
	for i := 0; i < cfg.customers; i++ {
		if err := store.SeedUser(customerID(i)); err != nil {
			return nil, err
		}
	}

	engineMetrics := metrics.NewEngineMetricsWithRegisterer(prometheus.NewRegistry())
	engine := orders.NewEngine(store, store,
		orders.WithLogger(logger.WithField("component", "order-engine")),
		orders.WithMetrics(engineMetrics),
		orders.WithLedger(inventory.NewLedger(
			inventory.WithLogger(logger.WithField("component", "inventory-ledger")),
		)),
		orders.WithPricing(pricing.NewCalculator(pricing.DefaultPolicy())),
		orders.WithNumberGenerator(ordernumber.New()),
	)

	return &simulation{cfg: cfg, store: store, engine: engine, col: newCollector(), initial: initial}, nil
}

func (s *simulation) run(ctx context.Context) report {
	startedAt := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.customers; i++ {
		wg.Add(1)
		rng := rand.New(rand.NewSource(s.cfg.seed + int64(i))) // #nosec G404 -- симуляция, не криптография.
		go func(customer string, rng *rand.Rand) {
			defer wg.Done()
			for n := 0; n < s.cfg.ordersPerUser; n++ {
				if ctx.Err() != nil {
					return
				}
				s.checkout(ctx, customer, rng)
			}
		}(customerID(i), rng)
	}
	wg.Wait()

	result := s.verify(ctx)
	result.StartedAt = startedAt.UTC()
	result.DurationSeconds = time.Since(startedAt).Seconds()
	result.Operations = s.col.operationReports()
	return result
}

func (s *simulation) checkout(ctx context.Context, customer string, rng *rand.Rand) {
	count := 1 + rng.Intn(s.cfg.itemsPerOrder)
	items := make([]orders.ItemRequest, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, orders.ItemRequest{
			ProductID: productID(rng.Intn(s.cfg.products)),
			Quantity:  int32(1 + rng.Intn(s.cfg.maxQty)),
		})
	}

	start := time.Now()
	order, err := s.engine.CreateOrder(ctx, customer, orders.CreateOrderRequest{Items: items})
	s.col.record(metrics.OperationCreate, time.Since(start), err)
	if err != nil {
		return
	}
	s.col.addOrder(order.ID)

	if rng.Intn(100) >= s.cfg.cancelRate {
		return
	}
	start = time.Now()
	_, err = s.engine.CancelOrder(ctx, order.ID)
	s.col.record(metrics.OperationCancel, time.Since(start), err)
}

// verify сверяет сток: initial - final должно совпасть с количеством в неотменённых заказах.
func (s *simulation) verify(ctx context.Context) report {
	reserved := make(map[string]int32, len(s.initial))
	result := report{Consistent: true}

	for _, id := range s.col.orderIDs() {
		order, err := s.engine.GetOrder(ctx, id)
		if err != nil {
			result.Consistent = false
			continue
		}
		result.OrdersCreated++
		if order.Status == domain.OrderStatusCancelled {
			result.OrdersCanceled++
			continue
		}
		for _, item := range order.Items {
			reserved[item.ProductID] += item.Quantity
		}
	}

	ids := make([]string, 0, len(s.initial))
	for id := range s.initial {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		row := productReport{ProductID: id, InitialStock: s.initial[id], Reserved: reserved[id]}
		product, err := s.store.Product(ctx, id)
		if err == nil {
			row.FinalStock = product.Stock
			row.Consistent = product.Stock >= 0 && row.InitialStock-row.FinalStock == row.Reserved
		}
		if !row.Consistent {
			result.Consistent = false
		}
		result.Products = append(result.Products, row)
	}
	return result
}

func productID(i int) string  { return fmt.Sprintf("sim-product-%02d", i) }
func customerID(i int) string { return fmt.Sprintf("sim-customer-%03d", i) }

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logger.SetLevel(log.ErrorLevel)
	if cfg.verboseLogging {
		logger.SetLevel(log.DebugLevel)
	}

	sim, err := newSimulation(cfg, log.NewEntry(logger))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "seed catalog: %v\n", err)
		os.Exit(1)
	}

	result := sim.run(context.Background())
	printReport(os.Stdout, result, cfg)

	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if !result.Consistent {
		os.Exit(1)
	}
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- путь к отчёту задаётся явно флагом CLI.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(w, "Checkout simulation summary")
	_, _ = fmt.Fprintf(w, "customers=%d orders_per_customer=%d seed=%d duration=%.2fs\n",
		cfg.customers, cfg.ordersPerUser, cfg.seed, result.DurationSeconds)
	_, _ = fmt.Fprintf(w, "created=%d canceled=%d consistent=%t\n",
		result.OrdersCreated, result.OrdersCanceled, result.Consistent)

	names := make([]string, 0, len(result.Operations))
	for name := range result.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Operations[name]
		_, _ = fmt.Fprintf(w, "%s: calls=%d success=%d failed=%d p95=%.2fms reasons=%v\n",
			name, stats.Calls, stats.Success, stats.Failed, stats.LatencyMs.P95, stats.Reasons)
	}
	for _, p := range result.Products {
		_, _ = fmt.Fprintf(w, "%s: initial=%d final=%d reserved=%d ok=%t\n",
			p.ProductID, p.InitialStock, p.FinalStock, p.Reserved, p.Consistent)
	}
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}
	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p*float64(len(sorted)-1) + 0.5)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
