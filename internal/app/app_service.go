package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"warehouse-backoffice/internal/core"
)

// ErrAssistantDisabled is returned when no OpenAI key was configured.
var ErrAssistantDisabled = errors.New("assistant is not configured")

// Dashboard aggregates the landing-page snapshot from the reporting, stock
// and maintenance services.
func (a *App) Dashboard(ctx context.Context) (*DashboardResult, error) {
	overview, err := a.Reports.Overview(ctx)
	if err != nil {
		return nil, err
	}
	alerts, err := a.Stock.LowStockAlerts(ctx, nil, 10)
	if err != nil {
		return nil, err
	}
	maint, err := a.Maintenance.Stats(ctx)
	if err != nil {
		return nil, err
	}
	invoices, err := a.Invoices.Summary(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardResult{
		Overview:    overview,
		Alerts:      alerts,
		Maintenance: maint,
		Invoices:    invoices,
	}, nil
}

// InterpretMovement sends a natural-language request to the assistant along
// with the current product and warehouse catalog. The returned proposal is
// never applied here; a human confirms it first.
func (a *App) InterpretMovement(ctx context.Context, text string) (*core.MovementProposal, error) {
	if a.assistant == nil {
		return nil, ErrAssistantDisabled
	}
	catalog, err := a.buildCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return a.assistant.InterpretMovement(ctx, text, catalog)
}

// ApplyProposal resolves a confirmed proposal's SKU and warehouse codes to
// ids and dispatches it to the ledger.
func (a *App) ApplyProposal(ctx context.Context, p core.MovementProposal) (*ProposalApplied, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, &core.ValidationError{Field: "proposal", Reason: err.Error()}
	}

	product, err := a.findProductBySKU(ctx, p.ProductSKU)
	if err != nil {
		return nil, err
	}
	warehouse, err := a.findWarehouseByCode(ctx, p.WarehouseCode)
	if err != nil {
		return nil, err
	}
	qty := p.QuantityDecimal()

	switch p.Action {
	case "inbound", "outbound":
		id, err := a.Ledger.RecordMovement(ctx, core.MovementInput{
			Type:        core.TransactionType(p.Action),
			ProductID:   product.ID,
			WarehouseID: warehouse.ID,
			Quantity:    qty,
			UnitPrice:   product.UnitPrice,
			Supplier:    p.Supplier,
			Customer:    p.Customer,
			Reference:   p.Reference,
		})
		if err != nil {
			return nil, err
		}
		return &ProposalApplied{TransactionIDs: []int64{id}}, nil
	case "transfer":
		dest, err := a.findWarehouseByCode(ctx, p.ToWarehouseCode)
		if err != nil {
			return nil, err
		}
		res, err := a.Ledger.RecordTransfer(ctx, core.TransferInput{
			ProductID:       product.ID,
			FromWarehouseID: warehouse.ID,
			ToWarehouseID:   dest.ID,
			Quantity:        qty,
			UnitPrice:       product.UnitPrice,
			Reference:       p.Reference,
		})
		if err != nil {
			return nil, err
		}
		return &ProposalApplied{
			TransactionIDs: []int64{res.OutboundID, res.InboundID},
			Reference:      res.Reference,
		}, nil
	case "adjustment":
		id, err := a.Ledger.RecordAdjustment(ctx, core.AdjustmentInput{
			ProductID:   product.ID,
			WarehouseID: warehouse.ID,
			Quantity:    qty,
			Reason:      p.Reason,
		})
		if err != nil {
			return nil, err
		}
		return &ProposalApplied{TransactionIDs: []int64{id}}, nil
	}
	return nil, &core.ValidationError{Field: "action", Reason: "unknown action " + p.Action}
}

func (a *App) findProductBySKU(ctx context.Context, sku string) (*core.Product, error) {
	products, err := a.Products.Search(ctx, sku)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if strings.EqualFold(products[i].SKU, sku) {
			return &products[i], nil
		}
	}
	return nil, &core.NotFoundError{Resource: "product " + sku}
}

func (a *App) findWarehouseByCode(ctx context.Context, code string) (*core.Warehouse, error) {
	warehouses, err := a.Warehouses.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range warehouses {
		if strings.EqualFold(warehouses[i].Code, code) {
			return &warehouses[i], nil
		}
	}
	return nil, &core.NotFoundError{Resource: "warehouse " + code}
}

// buildCatalog renders the product SKUs and warehouse codes the model is
// allowed to reference.
func (a *App) buildCatalog(ctx context.Context) (string, error) {
	products, err := a.Products.List(ctx)
	if err != nil {
		return "", err
	}
	warehouses, err := a.Warehouses.List(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Products:\n")
	for _, p := range products {
		fmt.Fprintf(&b, "  %s  %s (unit: %s)\n", p.SKU, p.Name, p.Unit)
	}
	b.WriteString("Warehouses:\n")
	for _, w := range warehouses {
		fmt.Fprintf(&b, "  %s  %s\n", w.Code, w.Name)
	}
	return b.String(), nil
}
