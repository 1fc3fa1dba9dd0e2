package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product: товар каталога. Движок читает цены и меняет только сток.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	SalePrice decimal.NullDecimal
	Stock     int32
	UpdatedAt time.Time
}

// UnitPrice возвращает цену со скидкой, если она задана, иначе базовую цену.
func (p Product) UnitPrice() decimal.Decimal {
	if p.SalePrice.Valid {
		return p.SalePrice.Decimal
	}
	return p.Price
}

// Address: адрес доставки пользователя; движку нужен только владелец.
type Address struct {
	ID     string
	UserID string
}
