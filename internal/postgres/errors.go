package postgres

import (
	"errors"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
)

// classify maps driver errors onto the store's error contract.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return orders.TransientConflict(err)
		case codeUniqueViolation:
			if pgErr.ConstraintName == "products_sku_key" {
				return orders.Validation("sku", "has already been taken")
			}
		case codeCheckViolation:
			return &orders.Error{Kind: orders.KindValidation, Field: pgErr.ColumnName, Msg: "violates " + pgErr.ConstraintName, Err: err}
		case codeNumericOutOfRange:
			return &orders.Error{Kind: orders.KindValidation, Field: pgErr.ColumnName, Msg: "is out of range", Err: err}
		}
	}
	return err
}
