package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Overview is the top-level dashboard snapshot.
type Overview struct {
	WarehouseCount   int64           `json:"warehouse_count"`
	ProductCount     int64           `json:"product_count"`
	CustomerCount    int64           `json:"customer_count"`
	TransactionCount int64           `json:"transaction_count"`
	TotalOnHand      decimal.Decimal `json:"total_on_hand"`
	TotalValue       decimal.Decimal `json:"total_value"`
	LowStockCount    int64           `json:"low_stock_count"`
	OpenIncidents    int64           `json:"open_incidents"`
}

// WarehouseInventoryReport summarises the derived stock held in one warehouse.
type WarehouseInventoryReport struct {
	WarehouseID   int64           `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	WarehouseCode string          `json:"warehouse_code"`
	ProductCount  int64           `json:"product_count"`
	TotalOnHand   decimal.Decimal `json:"total_on_hand"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// TimelinePoint is one day on the movement timeline.
type TimelinePoint struct {
	Date          time.Time       `json:"date"`
	InboundCount  int64           `json:"inbound_count"`
	OutboundCount int64           `json:"outbound_count"`
	InboundQty    decimal.Decimal `json:"inbound_qty"`
	OutboundQty   decimal.Decimal `json:"outbound_qty"`
}

// TopProduct ranks a product by shipped quantity over a window.
type TopProduct struct {
	ProductID   int64           `json:"product_id"`
	ProductSKU  string          `json:"product_sku"`
	ProductName string          `json:"product_name"`
	OutboundQty decimal.Decimal `json:"outbound_qty"`
	Shipments   int64           `json:"shipments"`
}

// WarehousePerformance compares activity across warehouses.
type WarehousePerformance struct {
	WarehouseID     int64           `json:"warehouse_id"`
	WarehouseName   string          `json:"warehouse_name"`
	InboundQty      decimal.Decimal `json:"inbound_qty"`
	OutboundQty     decimal.Decimal `json:"outbound_qty"`
	TransactionDays int64           `json:"transaction_days"`
	UtilizationRate decimal.Decimal `json:"utilization_rate"`
}

// StorageCostReport estimates holding cost per warehouse from its area rate.
type StorageCostReport struct {
	WarehouseID   int64           `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	UsedArea      decimal.Decimal `json:"used_area"`
	MonthlyCost   decimal.Decimal `json:"monthly_cost"`
}

// TransferRecord is one leg pair of a transfer, joined by reference.
type TransferRecord struct {
	Reference     string          `json:"reference"`
	ProductID     int64           `json:"product_id"`
	ProductSKU    string          `json:"product_sku"`
	ProductName   string          `json:"product_name"`
	FromWarehouse string          `json:"from_warehouse"`
	ToWarehouse   string          `json:"to_warehouse"`
	Quantity      decimal.Decimal `json:"quantity"`
	Date          time.Time       `json:"date"`
}

// ReportingService produces read-only aggregates over the ledger and
// registries for dashboards and exports.
type ReportingService interface {
	Overview(ctx context.Context) (*Overview, error)
	InventoryByWarehouse(ctx context.Context) ([]WarehouseInventoryReport, error)
	MovementTimeline(ctx context.Context, days int) ([]TimelinePoint, error)
	TopOutboundProducts(ctx context.Context, days, limit int) ([]TopProduct, error)
	WarehousePerformance(ctx context.Context, days int) ([]WarehousePerformance, error)
	StorageCost(ctx context.Context, ratePerSqm decimal.Decimal) ([]StorageCostReport, error)
	Transfers(ctx context.Context, days int) ([]TransferRecord, error)
	Adjustments(ctx context.Context, days int) ([]Transaction, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

// NewReportingService constructs a ReportingService backed by PostgreSQL.
func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) Overview(ctx context.Context) (*Overview, error) {
	var o Overview
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM warehouses),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM transactions),
			(SELECT COUNT(*) FROM incidents WHERE status IN ('reported', 'investigating'))`).Scan(
		&o.WarehouseCount, &o.ProductCount, &o.CustomerCount, &o.TransactionCount, &o.OpenIncidents)
	if err != nil {
		return nil, fmt.Errorf("overview counts: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(s.on_hand), 0),
			COALESCE(SUM(s.on_hand * p.unit_price), 0),
			COUNT(*) FILTER (WHERE s.on_hand <= p.min_stock)
		FROM (
			SELECT product_id,
			       SUM(CASE WHEN type = 'inbound' THEN quantity ELSE -quantity END) AS on_hand
			FROM transactions
			WHERE type IN ('inbound', 'outbound')
			GROUP BY product_id
		) s
		JOIN products p ON p.id = s.product_id`).Scan(
		&o.TotalOnHand, &o.TotalValue, &o.LowStockCount)
	if err != nil {
		return nil, fmt.Errorf("overview stock: %w", err)
	}
	return &o, nil
}

func (s *reportingService) InventoryByWarehouse(ctx context.Context) ([]WarehouseInventoryReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT w.id, w.name, w.code,
		       COUNT(DISTINCT s.product_id),
		       COALESCE(SUM(s.on_hand), 0),
		       COALESCE(SUM(s.on_hand * p.unit_price), 0)
		FROM warehouses w
		LEFT JOIN (
			SELECT product_id, warehouse_id,
			       SUM(CASE WHEN type = 'inbound' THEN quantity ELSE -quantity END) AS on_hand
			FROM transactions
			WHERE type IN ('inbound', 'outbound')
			GROUP BY product_id, warehouse_id
		) s ON s.warehouse_id = w.id
		LEFT JOIN products p ON p.id = s.product_id
		GROUP BY w.id, w.name, w.code
		ORDER BY w.name`)
	if err != nil {
		return nil, fmt.Errorf("inventory by warehouse: %w", err)
	}
	defer rows.Close()

	var out []WarehouseInventoryReport
	for rows.Next() {
		var r WarehouseInventoryReport
		if err := rows.Scan(&r.WarehouseID, &r.WarehouseName, &r.WarehouseCode,
			&r.ProductCount, &r.TotalOnHand, &r.TotalValue); err != nil {
			return nil, fmt.Errorf("scan warehouse inventory: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *reportingService) MovementTimeline(ctx context.Context, days int) ([]TimelinePoint, error) {
	if days <= 0 {
		days = 30
	}
	rows, err := s.pool.Query(ctx, `
		SELECT DATE(transaction_date),
		       COUNT(*) FILTER (WHERE type = 'inbound'),
		       COUNT(*) FILTER (WHERE type = 'outbound'),
		       COALESCE(SUM(quantity) FILTER (WHERE type = 'inbound'), 0),
		       COALESCE(SUM(quantity) FILTER (WHERE type = 'outbound'), 0)
		FROM transactions
		WHERE type IN ('inbound', 'outbound')
		  AND transaction_date >= NOW() - ($1 || ' days')::interval
		GROUP BY DATE(transaction_date)
		ORDER BY DATE(transaction_date)`, fmt.Sprint(days))
	if err != nil {
		return nil, fmt.Errorf("movement timeline: %w", err)
	}
	defer rows.Close()

	var out []TimelinePoint
	for rows.Next() {
		var p TimelinePoint
		if err := rows.Scan(&p.Date, &p.InboundCount, &p.OutboundCount, &p.InboundQty, &p.OutboundQty); err != nil {
			return nil, fmt.Errorf("scan timeline point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *reportingService) TopOutboundProducts(ctx context.Context, days, limit int) ([]TopProduct, error) {
	if days <= 0 {
		days = 30
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.sku, p.name, SUM(t.quantity), COUNT(*)
		FROM transactions t
		JOIN products p ON p.id = t.product_id
		WHERE t.type = 'outbound'
		  AND t.transaction_date >= NOW() - ($1 || ' days')::interval
		GROUP BY p.id, p.sku, p.name
		ORDER BY SUM(t.quantity) DESC
		LIMIT $2`, fmt.Sprint(days), limit)
	if err != nil {
		return nil, fmt.Errorf("top outbound products: %w", err)
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.ProductSKU, &tp.ProductName, &tp.OutboundQty, &tp.Shipments); err != nil {
			return nil, fmt.Errorf("scan top product: %w", err)
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (s *reportingService) WarehousePerformance(ctx context.Context, days int) ([]WarehousePerformance, error) {
	if days <= 0 {
		days = 30
	}
	rows, err := s.pool.Query(ctx, `
		SELECT w.id, w.name,
		       COALESCE(SUM(t.quantity) FILTER (WHERE t.type = 'inbound'), 0),
		       COALESCE(SUM(t.quantity) FILTER (WHERE t.type = 'outbound'), 0),
		       COUNT(DISTINCT DATE(t.transaction_date)),
		       CASE WHEN w.total_area > 0 THEN ROUND(w.used_area / w.total_area * 100, 2) ELSE 0 END
		FROM warehouses w
		LEFT JOIN transactions t ON t.warehouse_id = w.id
			AND t.type IN ('inbound', 'outbound')
			AND t.transaction_date >= NOW() - ($1 || ' days')::interval
		GROUP BY w.id, w.name, w.total_area, w.used_area
		ORDER BY w.name`, fmt.Sprint(days))
	if err != nil {
		return nil, fmt.Errorf("warehouse performance: %w", err)
	}
	defer rows.Close()

	var out []WarehousePerformance
	for rows.Next() {
		var wp WarehousePerformance
		if err := rows.Scan(&wp.WarehouseID, &wp.WarehouseName, &wp.InboundQty, &wp.OutboundQty,
			&wp.TransactionDays, &wp.UtilizationRate); err != nil {
			return nil, fmt.Errorf("scan warehouse performance: %w", err)
		}
		out = append(out, wp)
	}
	return out, rows.Err()
}

func (s *reportingService) StorageCost(ctx context.Context, ratePerSqm decimal.Decimal) ([]StorageCostReport, error) {
	if ratePerSqm.IsNegative() {
		return nil, &ValidationError{Field: "ratePerSqm", Reason: "must not be negative"}
	}
	rows, err := s.pool.Query(ctx, "SELECT id, name, used_area FROM warehouses ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("storage cost: %w", err)
	}
	defer rows.Close()

	var out []StorageCostReport
	for rows.Next() {
		var r StorageCostReport
		if err := rows.Scan(&r.WarehouseID, &r.WarehouseName, &r.UsedArea); err != nil {
			return nil, fmt.Errorf("scan storage cost: %w", err)
		}
		r.MonthlyCost = r.UsedArea.Mul(ratePerSqm).Round(2)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Transfers reconstructs transfer pairs by joining the outbound and inbound
// legs that share a reference.
func (s *reportingService) Transfers(ctx context.Context, days int) ([]TransferRecord, error) {
	if days <= 0 {
		days = 30
	}
	rows, err := s.pool.Query(ctx, `
		SELECT o.reference, p.id, p.sku, p.name, wo.name, wi.name, o.quantity, o.transaction_date
		FROM transactions o
		JOIN transactions i ON i.reference = o.reference
			AND i.type = 'inbound' AND i.product_id = o.product_id AND i.id <> o.id
		JOIN products p ON p.id = o.product_id
		JOIN warehouses wo ON wo.id = o.warehouse_id
		JOIN warehouses wi ON wi.id = i.warehouse_id
		WHERE o.type = 'outbound'
		  AND o.reference LIKE 'TRF-%'
		  AND o.transaction_date >= NOW() - ($1 || ' days')::interval
		ORDER BY o.transaction_date DESC`, fmt.Sprint(days))
	if err != nil {
		return nil, fmt.Errorf("transfer report: %w", err)
	}
	defer rows.Close()

	var out []TransferRecord
	for rows.Next() {
		var tr TransferRecord
		if err := rows.Scan(&tr.Reference, &tr.ProductID, &tr.ProductSKU, &tr.ProductName,
			&tr.FromWarehouse, &tr.ToWarehouse, &tr.Quantity, &tr.Date); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (s *reportingService) Adjustments(ctx context.Context, days int) ([]Transaction, error) {
	if days <= 0 {
		days = 30
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+movementColumns+`
		FROM transactions t
		JOIN products p ON p.id = t.product_id
		JOIN warehouses w ON w.id = t.warehouse_id
		LEFT JOIN locations l ON l.id = t.location_id
		WHERE t.reference LIKE 'ADJUSTMENT:%'
		  AND t.transaction_date >= NOW() - ($1 || ' days')::interval
		ORDER BY t.transaction_date DESC, t.id DESC`, fmt.Sprint(days))
	if err != nil {
		return nil, fmt.Errorf("adjustment report: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tr, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		out = append(out, *tr)
	}
	return out, rows.Err()
}
