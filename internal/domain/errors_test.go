package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestTypedErrorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{
			name:   "insufficient stock",
			err:    &InsufficientStockError{ProductID: "p-1", Requested: 3, Available: 1},
			target: ErrInsufficientStock,
		},
		{
			name:   "product not found",
			err:    &ProductNotFoundError{ProductID: "p-404"},
			target: ErrProductNotFound,
		},
		{
			name:   "invalid order state",
			err:    &InvalidOrderStateError{OrderID: "o-1", Current: OrderStatusDelivered},
			target: ErrInvalidOrderState,
		},
		{
			name:   "wrapped insufficient stock",
			err:    fmt.Errorf("reserve: %w", &InsufficientStockError{ProductID: "p-1"}),
			target: ErrInsufficientStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Fatalf("errors.Is(%v, %v) = false, want true", tt.err, tt.target)
			}
		})
	}
}

func TestInsufficientStockErrorCarriesAvailable(t *testing.T) {
	err := fmt.Errorf("create order: %w", &InsufficientStockError{ProductID: "p-1", Requested: 5, Available: 2})

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError in chain, got %v", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 5 || stockErr.ProductID != "p-1" {
		t.Fatalf("unexpected payload: %+v", stockErr)
	}
}

func TestInvalidOrderStateErrorMessage(t *testing.T) {
	err := &InvalidOrderStateError{OrderID: "o-1", Current: OrderStatusCancelled}
	if got := err.Error(); got != "order o-1 cannot be changed because it is already CANCELLED" {
		t.Fatalf("unexpected message: %q", got)
	}

	err.Target = OrderStatusPending
	if got := err.Error(); got != "order o-1 cannot move from CANCELLED to PENDING" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "empty order", err: ErrEmptyOrder, want: true},
		{name: "typed stock error", err: &InsufficientStockError{}, want: true},
		{name: "wrapped not found", err: errors.Join(ErrOrderNotFound, errors.New("ctx")), want: true},
		{name: "duplicate number is server side", err: ErrDuplicateOrderNumber, want: false},
		{name: "infrastructure", err: errors.New("connection refused"), want: false},
		{name: "nil error", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsClientError(tt.err); got != tt.want {
				t.Errorf("IsClientError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: "none"},
		{err: ErrEmptyOrder, want: "empty_order"},
		{err: &ProductNotFoundError{ProductID: "x"}, want: "product_not_found"},
		{err: &InsufficientStockError{}, want: "insufficient_stock"},
		{err: ErrAddressNotFound, want: "address_not_found"},
		{err: ErrUserNotFound, want: "user_not_found"},
		{err: ErrDuplicateOrderNumber, want: "duplicate_order_number"},
		{err: ErrDuplicateOrderID, want: "duplicate_order_id"},
		{err: ErrOrderNotFound, want: "order_not_found"},
		{err: &InvalidOrderStateError{}, want: "invalid_order_state"},
		{err: ErrInvalidQuantity, want: "invalid_request"},
		{err: errors.New("boom"), want: "internal"},
	}

	for _, tt := range tests {
		if got := Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
