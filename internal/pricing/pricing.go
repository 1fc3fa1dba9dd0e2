// Package pricing считает денежные итоги заказа по снимкам цен позиций.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/jaikishore143/ecommerce-backennd/internal/domain"
)

// Policy задаёт параметры расчёта: ставку налога и правила доставки.
type Policy struct {
	// TaxRate: доля от subtotal, например 0.10.
	TaxRate decimal.Decimal
	// FreeShippingThreshold: доставка бесплатна, если subtotal строго больше порога.
	FreeShippingThreshold decimal.Decimal
	// FlatShipping: стоимость доставки ниже порога.
	FlatShipping decimal.Decimal
}

// DefaultPolicy возвращает политику по умолчанию: налог 10%, бесплатная доставка от 99.01, иначе 10.00.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.10"),
		FreeShippingThreshold: decimal.RequireFromString("99.00"),
		FlatShipping:          decimal.RequireFromString("10.00"),
	}
}

var (
	errNegativeTaxRate   = errors.New("pricing: tax rate must be non-negative")
	errNegativeThreshold = errors.New("pricing: free shipping threshold must be non-negative")
	errNegativeShipping  = errors.New("pricing: flat shipping must be non-negative")
)

// Validate проверяет, что параметры политики неотрицательны.
func (p Policy) Validate() error {
	switch {
	case p.TaxRate.IsNegative():
		return errNegativeTaxRate
	case p.FreeShippingThreshold.IsNegative():
		return errNegativeThreshold
	case p.FlatShipping.IsNegative():
		return errNegativeShipping
	}
	return nil
}

// Totals: итоговые суммы заказа, округлённые до двух знаков.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Calculator: чистый расчёт без ввода-вывода.
type Calculator struct {
	policy Policy
}

// NewCalculator создаёт калькулятор с заданной политикой.
func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// Policy возвращает политику калькулятора.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// Calculate считает subtotal, налог, доставку и total по позициям.
// Цена позиции, цена со скидкой, если она есть.
func (c *Calculator) Calculate(items []domain.OrderItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice().Mul(decimal.NewFromInt32(item.Quantity)))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(c.policy.TaxRate).Round(2)

	shipping := c.policy.FlatShipping
	if subtotal.GreaterThan(c.policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = shipping.Round(2)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping).Round(2),
	}
}

// Apply записывает итоги в заказ.
func (t Totals) Apply(order *domain.Order) {
	order.Subtotal = t.Subtotal
	order.Tax = t.Tax
	order.Shipping = t.Shipping
	order.Total = t.Total
}
