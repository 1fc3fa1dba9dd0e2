package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending: заказ создан, товар зарезервирован, обработка не начата.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusProcessing: заказ собирается.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusShipped: заказ передан в доставку.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered: заказ доставлен (терминальный статус).
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled: заказ отменён, сток возвращён (терминальный статус).
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// orderTransitions задаёт разрешённые переходы между статусами.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, что из статуса нет переходов.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo проверяет переход по машине состояний.
// Переход в тот же статус не считается переходом.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem: позиция заказа со снимком цены на момент оформления.
type OrderItem struct {
	ID        string
	ProductID string
	// Name, Price и SalePrice копируются из товара и больше не меняются.
	Name      string
	Price     decimal.Decimal
	SalePrice decimal.NullDecimal
	Quantity  int32
	CreatedAt time.Time
}

// UnitPrice возвращает фактическую цену единицы: цену со скидкой, если она задана.
func (i OrderItem) UnitPrice() decimal.Decimal {
	if i.SalePrice.Valid {
		return i.SalePrice.Decimal
	}
	return i.Price
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID                string
	UserID            string
	OrderNumber       string
	Status            OrderStatus
	Items             []OrderItem
	Subtotal          decimal.Decimal
	Tax               decimal.Decimal
	Shipping          decimal.Decimal
	Total             decimal.Decimal
	ShippingAddressID *string
	PaymentMethod     *string
	PaymentStatus     PaymentStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error
	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.OrderNumber == "" {
		errs = append(errs, ErrOrderNumberRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrEmptyOrder)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}
	if !o.PaymentStatus.Valid() {
		errs = append(errs, ErrInvalidPaymentStatus)
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ErrInvalidQuantity)
		}
		if item.Price.IsNegative() || (item.SalePrice.Valid && item.SalePrice.Decimal.IsNegative()) {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}
	for _, amount := range []decimal.Decimal{o.Subtotal, o.Tax, o.Shipping, o.Total} {
		if amount.IsNegative() {
			errs = append(errs, ErrAmountNegative)
			break
		}
	}
	// total = subtotal + tax + shipping с точностью до копейки.
	if !o.Total.Round(2).Equal(o.Subtotal.Add(o.Tax).Add(o.Shipping).Round(2)) {
		errs = append(errs, ErrAmountMismatch)
	}
	return errs
}

// Clone возвращает копию заказа, не разделяющую срез позиций и указатели.
func (o Order) Clone() Order {
	clone := o
	if o.Items != nil {
		clone.Items = make([]OrderItem, len(o.Items))
		copy(clone.Items, o.Items)
	}
	if o.ShippingAddressID != nil {
		v := *o.ShippingAddressID
		clone.ShippingAddressID = &v
	}
	if o.PaymentMethod != nil {
		v := *o.PaymentMethod
		clone.PaymentMethod = &v
	}
	return clone
}
