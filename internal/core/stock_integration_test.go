package core_test

import (
	"context"
	"testing"

	"warehouse-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

func seedStock(t *testing.T, ledger core.LedgerService, productID, warehouseID, qty int64) {
	t.Helper()
	if _, err := ledger.RecordMovement(context.Background(), core.MovementInput{
		Type: core.TypeInbound, ProductID: productID, WarehouseID: warehouseID,
		Quantity: decimal.NewFromInt(qty),
	}); err != nil {
		t.Fatalf("seed inbound failed: %v", err)
	}
}

func TestStock_StatusThresholds(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	ctx := context.Background()

	// Product 1 has min 10, max 100. Exactly min is low, exactly max is high.
	seedStock(t, ledger, 1, 1, 10)
	status, err := stock.Status(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status != core.StockLow {
		t.Errorf("expected low at on-hand == min, got %s", status)
	}

	seedStock(t, ledger, 1, 1, 40) // 50
	if status, _ = stock.Status(ctx, 1, 1); status != core.StockNormal {
		t.Errorf("expected normal at 50, got %s", status)
	}

	seedStock(t, ledger, 1, 1, 50) // 100
	if status, _ = stock.Status(ctx, 1, 1); status != core.StockHigh {
		t.Errorf("expected high at on-hand == max, got %s", status)
	}
}

func TestStock_StatusLowWinsWhenThresholdsCollide(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	ctx := context.Background()

	// min == max == on-hand satisfies both rules; low must win.
	if _, err := pool.Exec(ctx, "UPDATE products SET min_stock = 30, max_stock = 30 WHERE id = 1"); err != nil {
		t.Fatalf("update thresholds: %v", err)
	}
	seedStock(t, ledger, 1, 1, 30)

	status, err := stock.Status(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status != core.StockLow {
		t.Errorf("expected low when both thresholds match, got %s", status)
	}
}

func TestStock_LowStockAlerts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	ctx := context.Background()

	// Product 1: min 10, alert threshold 15. On-hand 8 → critical.
	// Product 2: min 5, alert threshold 7.5. On-hand 6 → warning.
	seedStock(t, ledger, 1, 1, 8)
	seedStock(t, ledger, 2, 1, 6)

	alerts, err := stock.LowStockAlerts(ctx, nil, 10)
	if err != nil {
		t.Fatalf("LowStockAlerts failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}

	// Most depleted first.
	if alerts[0].ProductID != 2 || alerts[1].ProductID != 1 {
		t.Errorf("expected ordering by on-hand ascending, got %d then %d", alerts[0].ProductID, alerts[1].ProductID)
	}
	byProduct := map[int64]core.LowStockAlert{}
	for _, a := range alerts {
		byProduct[a.ProductID] = a
	}
	if byProduct[1].Level != core.AlertCritical {
		t.Errorf("expected product 1 critical, got %s", byProduct[1].Level)
	}
	if byProduct[2].Level != core.AlertWarning {
		t.Errorf("expected product 2 warning, got %s", byProduct[2].Level)
	}

	// Clearing a product above threshold removes it from the list.
	seedStock(t, ledger, 2, 1, 20)
	alerts, err = stock.LowStockAlerts(ctx, nil, 10)
	if err != nil {
		t.Fatalf("LowStockAlerts after restock failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ProductID != 1 {
		t.Errorf("expected only product 1 after restock, got %+v", alerts)
	}

	// Limit truncates.
	alerts, err = stock.LowStockAlerts(ctx, nil, 1)
	if err != nil {
		t.Fatalf("LowStockAlerts with limit failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Errorf("expected limit 1 to truncate, got %d", len(alerts))
	}
}

func TestStock_InventoryValueUsesCurrentPrice(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	ctx := context.Background()

	// Rows were written at 250; valuation follows the registry price.
	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(250),
	}); err != nil {
		t.Fatalf("inbound failed: %v", err)
	}
	if _, err := pool.Exec(ctx, "UPDATE products SET unit_price = 300 WHERE id = 1"); err != nil {
		t.Fatalf("reprice failed: %v", err)
	}

	value, err := stock.InventoryValue(ctx, 1, 1)
	if err != nil {
		t.Fatalf("InventoryValue failed: %v", err)
	}
	if !value.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("expected value 3000 at the new price, got %s", value)
	}
}

func TestStock_WarehouseStockView(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	ctx := context.Background()

	seedStock(t, ledger, 1, 1, 30)
	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeOutbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(12),
	}); err != nil {
		t.Fatalf("outbound failed: %v", err)
	}

	view, err := stock.WarehouseStock(ctx, 1)
	if err != nil {
		t.Fatalf("WarehouseStock failed: %v", err)
	}
	if len(view) != 2 {
		t.Fatalf("expected 2 products homed in warehouse 1, got %d", len(view))
	}
	var pump core.ProductStock
	for _, ps := range view {
		if ps.ProductID == 1 {
			pump = ps
		}
	}
	if !pump.TotalIn.Equal(decimal.NewFromInt(30)) || !pump.TotalOut.Equal(decimal.NewFromInt(12)) {
		t.Errorf("unexpected in/out: %s / %s", pump.TotalIn, pump.TotalOut)
	}
	if !pump.OnHand.Equal(decimal.NewFromInt(18)) {
		t.Errorf("expected on-hand 18, got %s", pump.OnHand)
	}
	if !pump.Value.Equal(decimal.NewFromInt(4500)) {
		t.Errorf("expected value 4500 at unit price 250, got %s", pump.Value)
	}
}
