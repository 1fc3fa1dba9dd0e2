package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(price string, qty int32) domain.OrderItem {
	return domain.OrderItem{Price: d(price), Quantity: qty}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name     string
		items    []domain.OrderItem
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		{
			name:     "flat shipping below threshold",
			items:    []domain.OrderItem{item("10.00", 2), item("15.00", 1)},
			subtotal: "35.00", tax: "3.50", shipping: "10.00", total: "48.50",
		},
		{
			name:     "exactly threshold still pays shipping",
			items:    []domain.OrderItem{item("99.00", 1)},
			subtotal: "99.00", tax: "9.90", shipping: "10.00", total: "118.90",
		},
		{
			name:     "one cent above threshold ships free",
			items:    []domain.OrderItem{item("99.01", 1)},
			subtotal: "99.01", tax: "9.90", shipping: "0.00", total: "108.91",
		},
		{
			name: "sale price wins",
			items: []domain.OrderItem{{
				Price:     d("20.00"),
				SalePrice: decimal.NewNullDecimal(d("15.00")),
				Quantity:  2,
			}},
			subtotal: "30.00", tax: "3.00", shipping: "10.00", total: "43.00",
		},
	}

	calc := NewCalculator(DefaultPolicy())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Calculate(tt.items)
			assertAmount(t, "subtotal", got.Subtotal, tt.subtotal)
			assertAmount(t, "tax", got.Tax, tt.tax)
			assertAmount(t, "shipping", got.Shipping, tt.shipping)
			assertAmount(t, "total", got.Total, tt.total)
		})
	}
}

func TestCalculateRoundsTaxToCents(t *testing.T) {
	got := NewCalculator(DefaultPolicy()).Calculate([]domain.OrderItem{item("0.05", 1)})
	if got.Tax.Exponent() < -2 {
		t.Fatalf("tax must have at most 2 decimal places, got %s", got.Tax)
	}
	if !got.Total.Equal(got.Subtotal.Add(got.Tax).Add(got.Shipping)) {
		t.Fatalf("total %s != subtotal+tax+shipping", got.Total)
	}
}

func TestCustomPolicy(t *testing.T) {
	calc := NewCalculator(Policy{
		TaxRate:               d("0.20"),
		FreeShippingThreshold: d("50.00"),
		FlatShipping:          d("5.00"),
	})

	got := calc.Calculate([]domain.OrderItem{item("60.00", 1)})
	assertAmount(t, "tax", got.Tax, "12.00")
	assertAmount(t, "shipping", got.Shipping, "0.00")
	assertAmount(t, "total", got.Total, "72.00")
}

func TestApplyWritesTotals(t *testing.T) {
	order := domain.Order{}
	NewCalculator(DefaultPolicy()).Calculate([]domain.OrderItem{item("10.00", 1)}).Apply(&order)
	assertAmount(t, "total", order.Total, "21.00")
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy must be valid: %v", err)
	}

	bad := DefaultPolicy()
	bad.TaxRate = d("-0.01")
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for negative tax rate")
	}

	bad = DefaultPolicy()
	bad.FlatShipping = d("-1")
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for negative shipping")
	}
}

func assertAmount(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("%s = %s, want %s", field, got.StringFixed(2), want)
	}
}
