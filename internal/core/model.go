package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the closed set of ledger movement types.
// Only inbound and outbound rows carry stock weight; transfer, adjustment and
// stocktake operations are persisted as inbound/outbound rows so the on-hand
// sum folds over a single pair of buckets.
type TransactionType string

const (
	TypeInbound    TransactionType = "inbound"
	TypeOutbound   TransactionType = "outbound"
	TypeTransfer   TransactionType = "transfer"
	TypeAdjustment TransactionType = "adjustment"
	TypeStocktake  TransactionType = "stocktake"
)

// Valid reports whether t is one of the five known movement types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeInbound, TypeOutbound, TypeTransfer, TypeAdjustment, TypeStocktake:
		return true
	}
	return false
}

type WarehouseType string

const (
	WarehouseGeneral   WarehouseType = "general"
	WarehouseCold      WarehouseType = "cold"
	WarehouseHazardous WarehouseType = "hazardous"
)

func (t WarehouseType) Valid() bool {
	switch t {
	case WarehouseGeneral, WarehouseCold, WarehouseHazardous:
		return true
	}
	return false
}

type LocationStatus string

const (
	LocationAvailable   LocationStatus = "available"
	LocationOccupied    LocationStatus = "occupied"
	LocationFull        LocationStatus = "full"
	LocationMaintenance LocationStatus = "maintenance"
)

func (s LocationStatus) Valid() bool {
	switch s {
	case LocationAvailable, LocationOccupied, LocationFull, LocationMaintenance:
		return true
	}
	return false
}

// StockStatus classifies an on-hand quantity against a product's thresholds.
type StockStatus string

const (
	StockLow    StockStatus = "low"
	StockNormal StockStatus = "normal"
	StockHigh   StockStatus = "high"
)

// AlertLevel tags a low-stock alert row.
type AlertLevel string

const (
	AlertCritical AlertLevel = "critical"
	AlertWarning  AlertLevel = "warning"
)

// Warehouse is a physical storage site.
type Warehouse struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Address     *string         `json:"address"`
	City        *string         `json:"city"`
	Country     string          `json:"country"`
	Phone       *string         `json:"phone"`
	Email       *string         `json:"email"`
	Manager     *string         `json:"manager"`
	TotalArea   decimal.Decimal `json:"total_area"`
	UsedArea    decimal.Decimal `json:"used_area"`
	Status      string          `json:"status"`
	Type        WarehouseType   `json:"type"`
	RentalPrice decimal.Decimal `json:"rental_price"`
	Notes       *string         `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Location is a named slot within a warehouse. Its code is unique per warehouse.
type Location struct {
	ID          int64           `json:"id"`
	WarehouseID int64           `json:"warehouse_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Area        decimal.Decimal `json:"area"`
	Capacity    decimal.Decimal `json:"capacity"`
	Status      LocationStatus  `json:"status"`
	Notes       *string         `json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Product is ledger master data. WarehouseID/LocationID record the default
// placement; actual stock per warehouse is derived from the ledger.
type Product struct {
	ID           int64           `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Manufacturer *string         `json:"manufacturer"`
	Category     *string         `json:"category"`
	Unit         string          `json:"unit"`
	WarehouseID  *int64          `json:"warehouse_id"`
	LocationID   *int64          `json:"location_id"`
	MinStock     decimal.Decimal `json:"min_stock"`
	MaxStock     decimal.Decimal `json:"max_stock"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Notes        *string         `json:"notes"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Transaction is one ledger row. Rows are immutable facts once written;
// UpdateMovement exists only for administrative correction and is not
// re-validated against on-hand.
type Transaction struct {
	ID              int64           `json:"id"`
	Type            TransactionType `json:"type"`
	ProductID       int64           `json:"product_id"`
	WarehouseID     int64           `json:"warehouse_id"`
	LocationID      *int64          `json:"location_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Supplier        *string         `json:"supplier"`
	Customer        *string         `json:"customer"`
	Reference       *string         `json:"reference"`
	Notes           *string         `json:"notes"`
	TransactionDate time.Time       `json:"transaction_date"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Joined display fields, populated by list/get queries.
	ProductName   string  `json:"product_name"`
	ProductSKU    string  `json:"product_sku"`
	WarehouseName string  `json:"warehouse_name"`
	LocationName  *string `json:"location_name"`
}

// Customer is invoice master data.
type Customer struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	ContactPerson *string         `json:"contact_person"`
	Phone         *string         `json:"phone"`
	Email         *string         `json:"email"`
	Address       *string         `json:"address"`
	City          *string         `json:"city"`
	Country       string          `json:"country"`
	TaxCode       *string         `json:"tax_code"`
	CreditLimit   decimal.Decimal `json:"credit_limit"`
	Status        string          `json:"status"`
	Notes         *string         `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Invoice is a billing header; Items are created and replaced atomically with it.
type Invoice struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    int64           `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       *time.Time      `json:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	Notes         *string         `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []InvoiceItem   `json:"items"`
}

type InvoiceItem struct {
	ID         int64           `json:"id"`
	InvoiceID  int64           `json:"invoice_id"`
	ProductID  int64           `json:"product_id"`
	ProductSKU string          `json:"product_sku"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Total      decimal.Decimal `json:"total"`
	Notes      *string         `json:"notes"`
}

// MaintenancePlan is a scheduled piece of warehouse upkeep.
type MaintenancePlan struct {
	ID                int64           `json:"id"`
	WarehouseID       int64           `json:"warehouse_id"`
	WarehouseName     string          `json:"warehouse_name"`
	Title             string          `json:"title"`
	Description       *string         `json:"description"`
	Type              string          `json:"type"`
	Priority          string          `json:"priority"`
	PlannedDate       time.Time       `json:"planned_date"`
	EstimatedDuration int             `json:"estimated_duration"`
	EstimatedCost     decimal.Decimal `json:"estimated_cost"`
	ResponsibleStaff  *string         `json:"responsible_staff"`
	Status            string          `json:"status"`
	Notes             *string         `json:"notes"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// MaintenanceProgress is an append-only progress entry against a plan.
// Writing one also syncs the plan's status.
type MaintenanceProgress struct {
	ID              int64           `json:"id"`
	PlanID          int64           `json:"plan_id"`
	Status          string          `json:"status"`
	ProgressPercent int             `json:"progress_percent"`
	ActualStartDate *time.Time      `json:"actual_start_date"`
	ActualEndDate   *time.Time      `json:"actual_end_date"`
	ActualCost      decimal.Decimal `json:"actual_cost"`
	Notes           *string         `json:"notes"`
	UpdatedBy       *string         `json:"updated_by"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Incident struct {
	ID            int64      `json:"id"`
	WarehouseID   int64      `json:"warehouse_id"`
	WarehouseName string     `json:"warehouse_name"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	Type          string     `json:"type"`
	Severity      string     `json:"severity"`
	ReportedAt    time.Time  `json:"reported_at"`
	Reporter      *string    `json:"reporter"`
	Phone         *string    `json:"phone"`
	Status        string     `json:"status"`
	Action        *string    `json:"action"`
	ResolvedAt    *time.Time `json:"resolved_at"`
	ResolvedBy    *string    `json:"resolved_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type MaintenanceStaff struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Position  *string   `json:"position"`
	Specialty *string   `json:"specialty"`
	Phone     *string   `json:"phone"`
	Email     *string   `json:"email"`
	Status    string    `json:"status"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
