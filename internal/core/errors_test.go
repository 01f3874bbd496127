package core_test

import (
	"strings"
	"testing"

	"warehouse-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

func TestInsufficientStockError_Message(t *testing.T) {
	err := &core.InsufficientStockError{
		ProductID: 7, WarehouseID: 2,
		Available: decimal.NewFromInt(20), Requested: decimal.NewFromInt(30),
	}
	msg := err.Error()
	if !strings.Contains(msg, "available 20") || !strings.Contains(msg, "requested 30") {
		t.Errorf("message must carry both amounts, got %q", msg)
	}
}

func TestNotFoundError_Message(t *testing.T) {
	withID := &core.NotFoundError{Resource: "product", ID: 42}
	if withID.Error() != "product 42 not found" {
		t.Errorf("unexpected message %q", withID.Error())
	}
	byName := &core.NotFoundError{Resource: "product SKU-PUMP"}
	if byName.Error() != "product SKU-PUMP not found" {
		t.Errorf("unexpected message %q", byName.Error())
	}
}

func TestDependencyConflictError_Total(t *testing.T) {
	err := &core.DependencyConflictError{
		Resource: "warehouse", ID: 1,
		Dependents: map[string]int64{"products": 3, "transactions": 12},
	}
	if err.Total() != 15 {
		t.Errorf("expected total 15, got %d", err.Total())
	}
	if !strings.Contains(err.Error(), "cannot delete warehouse 1") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
