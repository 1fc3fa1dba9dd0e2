package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Fatalf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOrderNumberViolation(t *testing.T) {
	if !isOrderNumberViolation(&pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}) {
		t.Fatal("expected order number violation")
	}
	if isOrderNumberViolation(&pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"}) {
		t.Fatal("primary key violation must not be treated as order number collision")
	}
	if isOrderNumberViolation(errors.New("23505")) {
		t.Fatal("plain error must not match")
	}
}

func TestIsOrderIDViolation(t *testing.T) {
	if !isOrderIDViolation(&pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"}) {
		t.Fatal("expected order id violation")
	}
	if isOrderIDViolation(&pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}) {
		t.Fatal("order number collision must not be treated as id violation")
	}
	if isOrderIDViolation(&pgconn.PgError{Code: "23514", ConstraintName: "orders_pkey"}) {
		t.Fatal("non-unique violation must not match")
	}
}
