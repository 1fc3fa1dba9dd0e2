package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyOrder: в заказе нет ни одной позиции.
	ErrEmptyOrder = errors.New("order must contain at least one item")
	// ErrProductNotFound: товар из позиции не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock: на складе меньше товара, чем запрошено.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrAddressNotFound: адрес доставки отсутствует или принадлежит другому пользователю.
	ErrAddressNotFound = errors.New("shipping address not found")
	// ErrUserNotFound: пользователь, оформляющий заказ, не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateOrderNumber: сгенерированный номер заказа уже занят.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	// ErrDuplicateOrderID: заказ с таким идентификатором уже сохранён. Повтор с новым номером не поможет.
	ErrDuplicateOrderID = errors.New("duplicate order id")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidOrderState: операция недопустима в текущем статусе заказа.
	ErrInvalidOrderState = errors.New("invalid order state")

	// ErrUserRequired: не указан идентификатор пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// ErrProductRequired: в позиции не указан идентификатор товара.
	ErrProductRequired = errors.New("product_id is required")
	// ErrOrderNumberRequired: у заказа нет номера.
	ErrOrderNumberRequired = errors.New("order_number is required")
	// ErrInvalidQuantity: количество в позиции должно быть больше нуля.
	ErrInvalidQuantity = errors.New("item quantity must be greater than zero")
	// ErrItemPriceInvalid: цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// ErrAmountNegative: одна из сумм заказа отрицательная.
	ErrAmountNegative = errors.New("order amounts must be non-negative")
	// ErrAmountMismatch: total не равен subtotal + tax + shipping.
	ErrAmountMismatch = errors.New("order total does not match subtotal + tax + shipping")
	// ErrInvalidStatus: неизвестный статус заказа.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidPaymentStatus: неизвестный статус оплаты.
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	// ErrTxDone: транзакция уже завершена (commit или rollback).
	ErrTxDone = errors.New("unit of work already finished")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// ProductNotFoundError уточняет ErrProductNotFound идентификатором товара.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with ID %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// InsufficientStockError несёт данные для показа клиенту: сколько просили и сколько есть.
type InsufficientStockError struct {
	ProductID string
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidOrderStateError несёт текущий статус заказа и запрошенное действие.
type InvalidOrderStateError struct {
	OrderID string
	Current OrderStatus
	Target  OrderStatus
}

func (e *InvalidOrderStateError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("order %s cannot move from %s to %s", e.OrderID, e.Current, e.Target)
	}
	return fmt.Sprintf("order %s cannot be changed because it is already %s", e.OrderID, e.Current)
}

func (e *InvalidOrderStateError) Unwrap() error { return ErrInvalidOrderState }

var clientErrors = []error{
	ErrEmptyOrder,
	ErrProductNotFound,
	ErrInsufficientStock,
	ErrAddressNotFound,
	ErrUserNotFound,
	ErrOrderNotFound,
	ErrInvalidOrderState,
	ErrUserRequired,
	ErrProductRequired,
	ErrInvalidQuantity,
	ErrInvalidStatus,
	ErrInvalidPaymentStatus,
}

// IsClientError сообщает, что ошибка вызвана запросом клиента и повтор без изменений не поможет.
// ErrDuplicateOrderNumber и инфраструктурные ошибки считаются серверными.
func IsClientError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Reason возвращает короткую метку ошибки для метрик и логов.
func Reason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrEmptyOrder):
		return "empty_order"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrAddressNotFound):
		return "address_not_found"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrDuplicateOrderNumber):
		return "duplicate_order_number"
	case errors.Is(err, ErrDuplicateOrderID):
		return "duplicate_order_id"
	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, ErrInvalidOrderState):
		return "invalid_order_state"
	case IsClientError(err):
		return "invalid_request"
	default:
		return "internal"
	}
}
