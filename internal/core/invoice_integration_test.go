package core_test

import (
	"context"
	"errors"
	"testing"

	"warehouse-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

func TestInvoice_CreateComputesTotals(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	invoices := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv, err := invoices.Create(ctx, core.InvoiceInput{
		InvoiceNumber: "INV-2026-010",
		CustomerID:    1,
		TaxRate:       decimal.NewFromInt(10),
		Items: []core.InvoiceItemInput{
			{ProductID: 1, Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromFloat(250.50)},
			{ProductID: 2, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(80)},
		},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// 3 × 250.50 + 10 × 80 = 1551.50; 10% tax = 155.15.
	if !inv.Subtotal.Equal(decimal.NewFromFloat(1551.50)) {
		t.Errorf("expected subtotal 1551.50, got %s", inv.Subtotal)
	}
	if !inv.TaxAmount.Equal(decimal.NewFromFloat(155.15)) {
		t.Errorf("expected tax 155.15, got %s", inv.TaxAmount)
	}
	if !inv.Total.Equal(decimal.NewFromFloat(1706.65)) {
		t.Errorf("expected total 1706.65, got %s", inv.Total)
	}
	if inv.Status != "draft" {
		t.Errorf("expected default status draft, got %q", inv.Status)
	}
	if len(inv.Items) != 2 {
		t.Errorf("expected 2 lines, got %d", len(inv.Items))
	}
	if inv.CustomerName != "Saigon Machinery" {
		t.Errorf("expected joined customer name, got %q", inv.CustomerName)
	}
}

func TestInvoice_CreateRejectsBadInput(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	invoices := core.NewInvoiceService(pool)
	ctx := context.Background()

	var validation *core.ValidationError
	_, err := invoices.Create(ctx, core.InvoiceInput{
		InvoiceNumber: "INV-NO-LINES", CustomerID: 1,
	})
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for empty lines, got %v", err)
	}

	var notFound *core.NotFoundError
	_, err = invoices.Create(ctx, core.InvoiceInput{
		InvoiceNumber: "INV-NO-CUSTOMER", CustomerID: 999,
		Items: []core.InvoiceItemInput{
			{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
	})
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError for unknown customer, got %v", err)
	}

	// No orphaned header may survive a rejected create.
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no invoices after rejections, got %d", count)
	}
}

func TestInvoice_DuplicateNumber(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	invoices := core.NewInvoiceService(pool)
	ctx := context.Background()

	in := core.InvoiceInput{
		InvoiceNumber: "INV-2026-011", CustomerID: 1,
		Items: []core.InvoiceItemInput{
			{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	}
	if _, err := invoices.Create(ctx, in); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := invoices.Create(ctx, in)
	var duplicate *core.DuplicateKeyError
	if !errors.As(err, &duplicate) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
	if duplicate.Value != "INV-2026-011" {
		t.Errorf("expected duplicate value INV-2026-011, got %q", duplicate.Value)
	}
}

func TestInvoice_UpdateReplacesLines(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	invoices := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv, err := invoices.Create(ctx, core.InvoiceInput{
		InvoiceNumber: "INV-2026-012", CustomerID: 1,
		TaxRate: decimal.NewFromInt(8),
		Items: []core.InvoiceItemInput{
			{ProductID: 1, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(250)},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := invoices.Update(ctx, inv.ID, core.InvoiceInput{
		InvoiceNumber: "INV-2026-012", CustomerID: 1,
		TaxRate: decimal.NewFromInt(8),
		Items: []core.InvoiceItemInput{
			{ProductID: 2, Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(80)},
		},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].ProductID != 2 {
		t.Errorf("expected lines replaced, got %+v", updated.Items)
	}
	if !updated.Subtotal.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected recomputed subtotal 400, got %s", updated.Subtotal)
	}
	if !updated.TaxAmount.Equal(decimal.NewFromInt(32)) {
		t.Errorf("expected recomputed tax 32, got %s", updated.TaxAmount)
	}
}

func TestInvoice_StatusAndDelete(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	invoices := core.NewInvoiceService(pool)
	ctx := context.Background()

	inv, err := invoices.Create(ctx, core.InvoiceInput{
		InvoiceNumber: "INV-2026-013", CustomerID: 1,
		Items: []core.InvoiceItemInput{
			{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := invoices.UpdateStatus(ctx, inv.ID, "paid")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != "paid" {
		t.Errorf("expected status paid, got %q", updated.Status)
	}

	var validation *core.ValidationError
	if _, err := invoices.UpdateStatus(ctx, inv.ID, "void"); !errors.As(err, &validation) {
		t.Errorf("expected ValidationError for unknown status, got %v", err)
	}

	if err := invoices.Delete(ctx, inv.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	var itemCount int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoice_items WHERE invoice_id = $1", inv.ID).Scan(&itemCount); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if itemCount != 0 {
		t.Errorf("expected lines removed with the header, got %d", itemCount)
	}
}

func TestInvoice_Summary(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	invoices := core.NewInvoiceService(pool)
	ctx := context.Background()

	mk := func(number, status string, price int64) {
		t.Helper()
		if _, err := invoices.Create(ctx, core.InvoiceInput{
			InvoiceNumber: number, CustomerID: 1, Status: status,
			Items: []core.InvoiceItemInput{
				{ProductID: 1, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(price)},
			},
		}); err != nil {
			t.Fatalf("create %s failed: %v", number, err)
		}
	}
	mk("INV-S-1", "paid", 100)
	mk("INV-S-2", "paid", 200)
	mk("INV-S-3", "sent", 50)
	mk("INV-S-4", "draft", 10)

	sum, err := invoices.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.TotalCount != 4 {
		t.Errorf("expected 4 invoices, got %d", sum.TotalCount)
	}
	if sum.PaidCount != 2 {
		t.Errorf("expected 2 paid, got %d", sum.PaidCount)
	}
	if !sum.PaidAmount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected paid amount 300, got %s", sum.PaidAmount)
	}
	if sum.UnpaidCount != 1 || !sum.UnpaidAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected 1 sent invoice worth 50, got %d / %s", sum.UnpaidCount, sum.UnpaidAmount)
	}
	if sum.DraftCount != 1 {
		t.Errorf("expected 1 draft, got %d", sum.DraftCount)
	}
}
