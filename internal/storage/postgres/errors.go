package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode   = "23505"
	orderNumberConstraint = "orders_order_number_key"
	orderIDConstraint     = "orders_pkey"
)

var errNotInitialized = errors.New("postgres store is not initialized")

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

// isOrderNumberViolation отличает коллизию номера заказа от прочих нарушений уникальности.
func isOrderNumberViolation(err error) bool {
	var pgErr *pgconn.PgError
	return isUniqueViolation(err) && errors.As(err, &pgErr) && pgErr.ConstraintName == orderNumberConstraint
}

func isOrderIDViolation(err error) bool {
	var pgErr *pgconn.PgError
	return isUniqueViolation(err) && errors.As(err, &pgErr) && pgErr.ConstraintName == orderIDConstraint
}
