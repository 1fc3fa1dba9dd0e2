package domain

import (
	"context"
	"math"
)

const (
	// DefaultPageLimit: размер страницы по умолчанию.
	DefaultPageLimit = 10
	// MaxPageLimit: верхняя граница размера страницы.
	MaxPageLimit = 100
)

// OrderReader описывает чтение заказов для контроллеров. Только чтение, без блокировок.
type OrderReader interface {
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// GetByNumber возвращает заказ по номеру или ErrOrderNotFound.
	GetByNumber(ctx context.Context, orderNumber string) (Order, error)
	// ListByUser возвращает страницу заказов пользователя (новые первыми) и общее количество.
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]Order, int, error)
	// List возвращает страницу всех заказов (новые первыми) и общее количество.
	List(ctx context.Context, offset, limit int) ([]Order, int, error)
	// Timeline возвращает события заказа в хронологическом порядке.
	Timeline(ctx context.Context, orderID string) ([]TimelineEvent, error)
}

// Page: параметры пагинации. Нумерация страниц с единицы.
type Page struct {
	Number int
	Limit  int
}

// Normalize подставляет значения по умолчанию и ограничивает размер страницы.
// Номер страницы ограничен так, чтобы Offset не переполнялся.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if maxNumber := math.MaxInt / p.Limit; p.Number > maxNumber {
		p.Number = maxNumber
	}
	return p
}

// Offset возвращает число пропускаемых записей. Для страницы, смещение которой
// не помещается в int, возвращает math.MaxInt: такая страница всегда пуста.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit
}

// OrderPage: страница заказов с метаданными пагинации.
type OrderPage struct {
	Items      []Order
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// NewOrderPage собирает страницу; TotalPages = ceil(total/limit).
func NewOrderPage(items []Order, total int, page Page) OrderPage {
	totalPages := 0
	if page.Limit > 0 {
		totalPages = (total + page.Limit - 1) / page.Limit
	}
	return OrderPage{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		Limit:      page.Limit,
		TotalPages: totalPages,
	}
}
