package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// DuplicateKeyError reports a unique-constraint violation on a natural key
// (SKU, warehouse code, location code within a warehouse, customer code,
// invoice number).
type DuplicateKeyError struct {
	Resource string
	Key      string
	Value    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Resource, e.Key, e.Value)
}

// InsufficientStockError rejects an outbound or transfer whose quantity
// exceeds the on-hand sum. Both amounts are carried for caller display.
type InsufficientStockError struct {
	ProductID   int64
	WarehouseID int64
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d in warehouse %d: available %s, requested %s",
		e.ProductID, e.WarehouseID, e.Available, e.Requested)
}

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DependencyConflictError blocks a delete while dependent rows reference the
// entity. Dependents maps the blocking table to the row count, so callers can
// report exactly what stands in the way.
type DependencyConflictError struct {
	Resource   string
	ID         int64
	Dependents map[string]int64
}

func (e *DependencyConflictError) Error() string {
	parts := make([]string, 0, len(e.Dependents))
	for name, n := range e.Dependents {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, name))
		}
	}
	return fmt.Sprintf("cannot delete %s %d: referenced by %s", e.Resource, e.ID, strings.Join(parts, ", "))
}

// Total returns the sum of all blocking counts.
func (e *DependencyConflictError) Total() int64 {
	var n int64
	for _, c := range e.Dependents {
		n += c
	}
	return n
}

// asDuplicate converts a Postgres unique-violation into a DuplicateKeyError,
// or returns nil if err is anything else.
func asDuplicate(err error, resource, key, value string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &DuplicateKeyError{Resource: resource, Key: key, Value: value}
	}
	return nil
}
