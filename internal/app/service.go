package app

import (
	"context"

	"warehouse-backoffice/internal/core"
)

// Assistant interprets natural-language movement requests into structured
// proposals. Satisfied by ai.Agent; nil when no API key is configured.
type Assistant interface {
	InterpretMovement(ctx context.Context, naturalLanguage, catalog string) (*core.MovementProposal, error)
}

// App is the single dependency UI adapters wire in. Resource services are
// exposed directly; flows that span services live as methods on App.
// Implementations contain no display logic of any kind.
type App struct {
	Ledger      core.LedgerService
	Stock       core.StockService
	Warehouses  core.WarehouseService
	Locations   core.LocationService
	Products    core.ProductService
	Customers   core.CustomerService
	Invoices    core.InvoiceService
	Maintenance core.MaintenanceService
	Reports     core.ReportingService

	assistant Assistant
}

// New wires the domain services into one facade. assistant may be nil, in
// which case InterpretMovement returns ErrAssistantDisabled.
func New(
	ledger core.LedgerService,
	stock core.StockService,
	warehouses core.WarehouseService,
	locations core.LocationService,
	products core.ProductService,
	customers core.CustomerService,
	invoices core.InvoiceService,
	maintenance core.MaintenanceService,
	reports core.ReportingService,
	assistant Assistant,
) *App {
	return &App{
		Ledger:      ledger,
		Stock:       stock,
		Warehouses:  warehouses,
		Locations:   locations,
		Products:    products,
		Customers:   customers,
		Invoices:    invoices,
		Maintenance: maintenance,
		Reports:     reports,
		assistant:   assistant,
	}
}
