package core_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"warehouse-backoffice/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB. Seeded rows use explicit ids, so bump the
	// sequences past them for rows created through the services.
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE maintenance_progress, maintenance_plans, incidents, maintenance_staff,
		               invoice_items, invoices, customers,
		               transactions, products, locations, warehouses CASCADE;

		INSERT INTO warehouses (id, code, name, city, total_area, rental_price) VALUES
		(1, 'WH-HCM', 'Ho Chi Minh Central', 'Ho Chi Minh', 5000, 120000),
		(2, 'WH-HN', 'Hanoi North', 'Hanoi', 3000, 90000);

		INSERT INTO locations (id, warehouse_id, code, name) VALUES
		(1, 1, 'A-01', 'Aisle A Rack 1'),
		(2, 2, 'B-01', 'Aisle B Rack 1');

		INSERT INTO products (id, sku, name, unit, warehouse_id, location_id, min_stock, max_stock, unit_price) VALUES
		(1, 'SKU-PUMP', 'Hydraulic Pump', 'pcs', 1, 1, 10, 100, 250.00),
		(2, 'SKU-VALVE', 'Control Valve', 'pcs', 1, 1, 5, 50, 80.00);

		INSERT INTO customers (id, code, name, city) VALUES
		(1, 'CUS-001', 'Saigon Machinery', 'Ho Chi Minh');

		SELECT setval('warehouses_id_seq', 100);
		SELECT setval('locations_id_seq', 100);
		SELECT setval('products_id_seq', 100);
		SELECT setval('customers_id_seq', 100);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func TestLedger_OnHandIsDerived(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	ctx := context.Background()

	// Two receipts and one issue: on-hand must be the sum, not a counter.
	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(50), UnitPrice: decimal.NewFromInt(250),
		Supplier: "Bosch Rexroth",
	}); err != nil {
		t.Fatalf("first inbound failed: %v", err)
	}
	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(20), UnitPrice: decimal.NewFromInt(250),
	}); err != nil {
		t.Fatalf("second inbound failed: %v", err)
	}
	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeOutbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(30), Customer: "Saigon Machinery",
	}); err != nil {
		t.Fatalf("outbound failed: %v", err)
	}

	onHand, err := stock.OnHand(ctx, 1, 1)
	if err != nil {
		t.Fatalf("OnHand failed: %v", err)
	}
	if !onHand.Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected on-hand 40, got %s", onHand)
	}

	// The other warehouse is untouched.
	onHand, err = stock.OnHand(ctx, 1, 2)
	if err != nil {
		t.Fatalf("OnHand for warehouse 2 failed: %v", err)
	}
	if !onHand.IsZero() {
		t.Errorf("expected on-hand 0 in warehouse 2, got %s", onHand)
	}
}

func TestLedger_OutboundInsufficientStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	ctx := context.Background()

	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(20),
	}); err != nil {
		t.Fatalf("inbound failed: %v", err)
	}

	_, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeOutbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(30),
	})
	var insufficient *core.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected available 20, got %s", insufficient.Available)
	}
	if !insufficient.Requested.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected requested 30, got %s", insufficient.Requested)
	}

	// The rejected write must not have left a row behind.
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE type = 'outbound'").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no outbound rows after rejection, got %d", count)
	}
}

func TestLedger_MovementTypeRestriction(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	ctx := context.Background()

	_, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeTransfer, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(5),
	})
	var validation *core.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for transfer through RecordMovement, got %v", err)
	}
}

func TestLedger_TransferWritesPairedRows(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	ctx := context.Background()

	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(50),
	}); err != nil {
		t.Fatalf("inbound failed: %v", err)
	}

	result, err := ledger.RecordTransfer(ctx, core.TransferInput{
		ProductID: 1, FromWarehouseID: 1, ToWarehouseID: 2,
		Quantity: decimal.NewFromInt(15),
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if !strings.HasPrefix(result.Reference, "TRF-") {
		t.Errorf("expected generated reference with TRF- prefix, got %q", result.Reference)
	}

	// Both legs share the reference and carry opposing types.
	out, err := ledger.GetMovement(ctx, result.OutboundID)
	if err != nil {
		t.Fatalf("get outbound leg: %v", err)
	}
	in, err := ledger.GetMovement(ctx, result.InboundID)
	if err != nil {
		t.Fatalf("get inbound leg: %v", err)
	}
	if out.Type != core.TypeOutbound || in.Type != core.TypeInbound {
		t.Errorf("expected outbound/inbound pair, got %s/%s", out.Type, in.Type)
	}
	if out.Reference == nil || in.Reference == nil || *out.Reference != *in.Reference {
		t.Errorf("expected both legs to share one reference")
	}

	fromOnHand, _ := stock.OnHand(ctx, 1, 1)
	toOnHand, _ := stock.OnHand(ctx, 1, 2)
	if !fromOnHand.Equal(decimal.NewFromInt(35)) {
		t.Errorf("expected source on-hand 35, got %s", fromOnHand)
	}
	if !toOnHand.Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected destination on-hand 15, got %s", toOnHand)
	}
}

func TestLedger_TransferInsufficientWritesNothing(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	ctx := context.Background()

	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(5),
	}); err != nil {
		t.Fatalf("inbound failed: %v", err)
	}

	_, err := ledger.RecordTransfer(ctx, core.TransferInput{
		ProductID: 1, FromWarehouseID: 1, ToWarehouseID: 2,
		Quantity: decimal.NewFromInt(10),
	})
	var insufficient *core.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	// A single-leg transfer must never be observable.
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM transactions WHERE reference LIKE 'TRF-%'").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no transfer rows after rejection, got %d", count)
	}
}

func TestLedger_TransferSameWarehouseRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	ctx := context.Background()

	_, err := ledger.RecordTransfer(ctx, core.TransferInput{
		ProductID: 1, FromWarehouseID: 1, ToWarehouseID: 1,
		Quantity: decimal.NewFromInt(1),
	})
	var validation *core.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for same-warehouse transfer, got %v", err)
	}
}

func TestLedger_ConcurrentOutboundOneWinner(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	ctx := context.Background()

	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("inbound failed: %v", err)
	}

	// Ten writers race for the last 10 units. The advisory lock serialises the
	// check-then-insert, so exactly one succeeds.
	const writers = 10
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.RecordMovement(ctx, core.MovementInput{
				Type: core.TypeOutbound, ProductID: 1, WarehouseID: 1,
				Quantity: decimal.NewFromInt(10),
			})
		}(i)
	}
	wg.Wait()

	var wins, rejections int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			var insufficient *core.InsufficientStockError
			if !errors.As(err, &insufficient) {
				t.Fatalf("unexpected error from concurrent outbound: %v", err)
			}
			rejections++
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d (rejections %d)", wins, rejections)
	}

	onHand, err := stock.OnHand(ctx, 1, 1)
	if err != nil {
		t.Fatalf("OnHand failed: %v", err)
	}
	if !onHand.IsZero() {
		t.Errorf("expected on-hand 0 after the race, got %s", onHand)
	}
}

func TestLedger_AdjustmentGatingAndReference(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	ctx := context.Background()

	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("inbound failed: %v", err)
	}

	// Negative beyond on-hand must be rejected like any outbound.
	_, err := ledger.RecordAdjustment(ctx, core.AdjustmentInput{
		ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(-15), Reason: "damaged in storage",
	})
	var insufficient *core.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError for over-adjustment, got %v", err)
	}

	id, err := ledger.RecordAdjustment(ctx, core.AdjustmentInput{
		ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(-4), Reason: "damaged in storage",
	})
	if err != nil {
		t.Fatalf("adjustment failed: %v", err)
	}

	row, err := ledger.GetMovement(ctx, id)
	if err != nil {
		t.Fatalf("get adjustment row: %v", err)
	}
	if row.Type != core.TypeOutbound {
		t.Errorf("expected negative adjustment stored as outbound, got %s", row.Type)
	}
	if !row.Quantity.Equal(decimal.NewFromInt(4)) {
		t.Errorf("expected stored magnitude 4, got %s", row.Quantity)
	}
	if row.Reference == nil || *row.Reference != "ADJUSTMENT: damaged in storage" {
		t.Errorf("unexpected adjustment reference: %v", row.Reference)
	}

	onHand, _ := stock.OnHand(ctx, 1, 1)
	if !onHand.Equal(decimal.NewFromInt(6)) {
		t.Errorf("expected on-hand 6 after adjustment, got %s", onHand)
	}

	// Zero quantity and missing reason are both invalid.
	if _, err := ledger.RecordAdjustment(ctx, core.AdjustmentInput{
		ProductID: 1, WarehouseID: 1, Quantity: decimal.Zero, Reason: "x",
	}); err == nil {
		t.Error("expected zero-quantity adjustment to fail")
	}
	if _, err := ledger.RecordAdjustment(ctx, core.AdjustmentInput{
		ProductID: 1, WarehouseID: 1, Quantity: decimal.NewFromInt(2),
	}); err == nil {
		t.Error("expected reasonless adjustment to fail")
	}
}

func TestLedger_StocktakeVariance(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	stock := core.NewStockService(pool)
	ctx := context.Background()

	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(50),
	}); err != nil {
		t.Fatalf("inbound failed: %v", err)
	}

	// Count below the ledger: variance row is outbound for the difference.
	id, err := ledger.RecordStocktake(ctx, core.StocktakeInput{
		ProductID: 1, WarehouseID: 1,
		CountedQty: decimal.NewFromInt(47), Reference: "Q3 count",
	})
	if err != nil {
		t.Fatalf("stocktake failed: %v", err)
	}
	row, err := ledger.GetMovement(ctx, id)
	if err != nil {
		t.Fatalf("get variance row: %v", err)
	}
	if row.Type != core.TypeOutbound || !row.Quantity.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected outbound variance of 3, got %s %s", row.Type, row.Quantity)
	}
	if row.Reference == nil || *row.Reference != "STOCKTAKE: Q3 count" {
		t.Errorf("unexpected stocktake reference: %v", row.Reference)
	}

	onHand, _ := stock.OnHand(ctx, 1, 1)
	if !onHand.Equal(decimal.NewFromInt(47)) {
		t.Errorf("expected on-hand 47 after stocktake, got %s", onHand)
	}

	// Count matching the ledger writes nothing and returns id 0.
	id, err = ledger.RecordStocktake(ctx, core.StocktakeInput{
		ProductID: 1, WarehouseID: 1,
		CountedQty: decimal.NewFromInt(47),
	})
	if err != nil {
		t.Fatalf("matching stocktake failed: %v", err)
	}
	if id != 0 {
		t.Errorf("expected id 0 for zero-variance stocktake, got %d", id)
	}
}

func TestLedger_UnknownReferences(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	ctx := context.Background()

	_, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 999, WarehouseID: 1,
		Quantity: decimal.NewFromInt(1),
	})
	var notFound *core.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unknown product, got %v", err)
	}
	if notFound.Resource != "product" {
		t.Errorf("expected product not-found, got %s", notFound.Resource)
	}

	_, err = ledger.GetMovement(ctx, 424242)
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unknown movement, got %v", err)
	}
}

func TestLedger_Summary(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedgerService(pool)
	ctx := context.Background()

	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeInbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(250),
	}); err != nil {
		t.Fatalf("inbound failed: %v", err)
	}
	if _, err := ledger.RecordMovement(ctx, core.MovementInput{
		Type: core.TypeOutbound, ProductID: 1, WarehouseID: 1,
		Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(300),
	}); err != nil {
		t.Fatalf("outbound failed: %v", err)
	}

	sum, err := ledger.Summary(ctx, nil, nil, nil)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.TotalTransactions != 2 || sum.TotalInbound != 1 || sum.TotalOutbound != 1 {
		t.Errorf("unexpected counts: %+v", sum)
	}
	if !sum.InValue.Equal(decimal.NewFromInt(2500)) {
		t.Errorf("expected in value 2500, got %s", sum.InValue)
	}
	if !sum.OutValue.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("expected out value 1200, got %s", sum.OutValue)
	}
}
