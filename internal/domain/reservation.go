package domain

import "github.com/shopspring/decimal"

// Reservation: результат списания стока под позицию заказа.
// Несёт снимок товара, из которого строится позиция.
type Reservation struct {
	ProductID string
	Quantity  int32
	Name      string
	Price     decimal.Decimal
	SalePrice decimal.NullDecimal
	// Remaining: остаток на складе после списания.
	Remaining int32
}

// Validate проверяет, корректно ли заполнены ключевые поля резервирования.
func (r *Reservation) Validate() []error {
	var errs []error
	if r.ProductID == "" {
		errs = append(errs, ErrProductRequired)
	}
	if r.Quantity <= 0 {
		errs = append(errs, ErrInvalidQuantity)
	}
	if r.Remaining < 0 {
		errs = append(errs, ErrInsufficientStock)
	}
	return errs
}

// Item превращает резерв в позицию заказа со снимком цены.
func (r Reservation) Item() OrderItem {
	return OrderItem{
		ProductID: r.ProductID,
		Name:      r.Name,
		Price:     r.Price,
		SalePrice: r.SalePrice,
		Quantity:  r.Quantity,
	}
}
