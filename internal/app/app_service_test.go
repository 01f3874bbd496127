package app_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"warehouse-backoffice/internal/app"
	"warehouse-backoffice/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// stubAssistant returns a canned proposal and records the catalog it was
// handed, so the flow can be tested without an OpenAI key.
type stubAssistant struct {
	proposal core.MovementProposal
	catalog  string
}

func (s *stubAssistant) InterpretMovement(ctx context.Context, naturalLanguage, catalog string) (*core.MovementProposal, error) {
	s.catalog = catalog
	p := s.proposal
	return &p, nil
}

func setupApp(t *testing.T, assistant app.Assistant) (*app.App, *pgxpool.Pool) {
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE maintenance_progress, maintenance_plans, incidents, maintenance_staff,
		               invoice_items, invoices, customers,
		               transactions, products, locations, warehouses CASCADE;

		INSERT INTO warehouses (id, code, name, city) VALUES
		(1, 'WH-HCM', 'Ho Chi Minh Central', 'Ho Chi Minh'),
		(2, 'WH-HN', 'Hanoi North', 'Hanoi');

		INSERT INTO products (id, sku, name, unit, warehouse_id, min_stock, max_stock, unit_price) VALUES
		(1, 'SKU-PUMP', 'Hydraulic Pump', 'pcs', 1, 10, 100, 250.00);

		SELECT setval('warehouses_id_seq', 100);
		SELECT setval('products_id_seq', 100);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	a := app.New(
		core.NewLedgerService(pool),
		core.NewStockService(pool),
		core.NewWarehouseService(pool),
		core.NewLocationService(pool),
		core.NewProductService(pool),
		core.NewCustomerService(pool),
		core.NewInvoiceService(pool),
		core.NewMaintenanceService(pool),
		core.NewReportingService(pool),
		assistant,
	)
	return a, pool
}

func TestApp_InterpretMovementDisabledWithoutAssistant(t *testing.T) {
	a, pool := setupApp(t, nil)
	defer pool.Close()

	_, err := a.InterpretMovement(context.Background(), "receive 20 pumps")
	if !errors.Is(err, app.ErrAssistantDisabled) {
		t.Fatalf("expected ErrAssistantDisabled, got %v", err)
	}
}

func TestApp_InterpretMovementPassesCatalog(t *testing.T) {
	stub := &stubAssistant{proposal: core.MovementProposal{
		Action: "inbound", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
		Quantity: "20", Confidence: 0.9,
	}}
	a, pool := setupApp(t, stub)
	defer pool.Close()

	p, err := a.InterpretMovement(context.Background(), "receive 20 pumps at HCM")
	if err != nil {
		t.Fatalf("InterpretMovement failed: %v", err)
	}
	if p.ProductSKU != "SKU-PUMP" {
		t.Errorf("unexpected proposal %+v", p)
	}
	for _, want := range []string{"SKU-PUMP", "WH-HCM", "WH-HN"} {
		if !strings.Contains(stub.catalog, want) {
			t.Errorf("catalog should mention %s, got:\n%s", want, stub.catalog)
		}
	}
}

func TestApp_ApplyProposalDispatchesToLedger(t *testing.T) {
	a, pool := setupApp(t, nil)
	defer pool.Close()
	ctx := context.Background()

	applied, err := a.ApplyProposal(ctx, core.MovementProposal{
		Action: "inbound", ProductSKU: "sku-pump", WarehouseCode: "wh-hcm",
		Quantity: "30", Supplier: "Bosch Rexroth", Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("inbound proposal failed: %v", err)
	}
	if len(applied.TransactionIDs) != 1 {
		t.Fatalf("expected one transaction id, got %v", applied.TransactionIDs)
	}

	onHand, err := a.Stock.OnHand(ctx, 1, 1)
	if err != nil {
		t.Fatalf("OnHand failed: %v", err)
	}
	if !onHand.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected on-hand 30 after applied proposal, got %s", onHand)
	}

	// Transfers come back as a leg pair with a shared reference.
	applied, err = a.ApplyProposal(ctx, core.MovementProposal{
		Action: "transfer", ProductSKU: "SKU-PUMP", WarehouseCode: "WH-HCM",
		ToWarehouseCode: "WH-HN", Quantity: "10", Confidence: 0.85,
	})
	if err != nil {
		t.Fatalf("transfer proposal failed: %v", err)
	}
	if len(applied.TransactionIDs) != 2 || applied.Reference == "" {
		t.Errorf("expected two legs and a reference, got %+v", applied)
	}

	// Unknown codes surface as not-found, not as SQL errors.
	var notFound *core.NotFoundError
	_, err = a.ApplyProposal(ctx, core.MovementProposal{
		Action: "inbound", ProductSKU: "SKU-NOPE", WarehouseCode: "WH-HCM",
		Quantity: "1", Confidence: 0.9,
	})
	if !errors.As(err, &notFound) {
		t.Errorf("expected NotFoundError for unknown SKU, got %v", err)
	}
}
