package domain

// PaymentStatus описывает состояние оплаты заказа.
// Движок выставляет только PENDING при создании, остальные значения приходят извне.
type PaymentStatus string

const (
	// PaymentStatusPending: оплата ещё не подтверждена.
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusPaid: оплата получена.
	PaymentStatusPaid PaymentStatus = "PAID"
	// PaymentStatusFailed: провайдер отклонил платёж.
	PaymentStatusFailed PaymentStatus = "FAILED"
	// PaymentStatusRefunded: деньги возвращены клиенту.
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}
