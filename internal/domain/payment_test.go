package domain

import "testing"

func TestPaymentStatusValid(t *testing.T) {
	tests := []struct {
		name   string
		status PaymentStatus
		want   bool
	}{
		{name: "pending", status: PaymentStatusPending, want: true},
		{name: "paid", status: PaymentStatusPaid, want: true},
		{name: "failed", status: PaymentStatusFailed, want: true},
		{name: "refunded", status: PaymentStatusRefunded, want: true},
		{name: "lowercase is invalid", status: PaymentStatus("paid"), want: false},
		{name: "empty", status: PaymentStatus(""), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.status.Valid(); got != tc.want {
				t.Fatalf("status %q valid=%v, want %v", tc.status, got, tc.want)
			}
		})
	}
}
