package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, so the on-hand
// fold can run on its own or under a ledger write's lock.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// sumOnHand is the derived-quantity function: Σ inbound − Σ outbound over all
// ledger rows for the (product, warehouse) pair. There is no stored counter to
// fall out of sync; the full row set is re-summed on every call.
func sumOnHand(ctx context.Context, q rowQuerier, productID, warehouseID int64) (decimal.Decimal, error) {
	var onHand decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'inbound' THEN quantity ELSE -quantity END), 0)
		FROM transactions
		WHERE product_id = $1 AND warehouse_id = $2 AND type IN ('inbound', 'outbound')`,
		productID, warehouseID,
	).Scan(&onHand)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum on-hand (product %d, warehouse %d): %w", productID, warehouseID, err)
	}
	return onHand, nil
}

// classifyStock applies the threshold rules. The low test runs first, so
// minStock == maxStock == onHand resolves to low.
func classifyStock(onHand, minStock, maxStock decimal.Decimal) StockStatus {
	switch {
	case onHand.LessThanOrEqual(minStock):
		return StockLow
	case onHand.GreaterThanOrEqual(maxStock):
		return StockHigh
	default:
		return StockNormal
	}
}

// ProductStock is per-warehouse derived stock for one product.
type ProductStock struct {
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name"`
	SKU           string          `json:"sku"`
	WarehouseID   int64           `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	LocationName  *string         `json:"location_name"`
	TotalIn       decimal.Decimal `json:"total_in"`
	TotalOut      decimal.Decimal `json:"total_out"`
	OnHand        decimal.Decimal `json:"on_hand"`
	MinStock      decimal.Decimal `json:"min_stock"`
	MaxStock      decimal.Decimal `json:"max_stock"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Status        StockStatus     `json:"status"`
	Value         decimal.Decimal `json:"value"`
}

// LowStockAlert is one product under the alert threshold (minStock × 1.5).
type LowStockAlert struct {
	ProductID     int64           `json:"product_id"`
	ProductName   string          `json:"product_name"`
	SKU           string          `json:"sku"`
	WarehouseID   int64           `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	OnHand        decimal.Decimal `json:"on_hand"`
	MinStock      decimal.Decimal `json:"min_stock"`
	Level         AlertLevel      `json:"level"`
}

// StockService derives point-in-time inventory figures from the ledger. It
// never maintains a counter: every figure is a fold over the transactions table.
type StockService interface {
	// OnHand returns the signed inbound-minus-outbound sum for the pair.
	OnHand(ctx context.Context, productID, warehouseID int64) (decimal.Decimal, error)
	// Status classifies on-hand against the product's min/max thresholds.
	Status(ctx context.Context, productID, warehouseID int64) (StockStatus, error)
	// InventoryValue is on-hand × the product's current unit price. Valuation
	// deliberately uses the latest price, not per-transaction cost history.
	InventoryValue(ctx context.Context, productID, warehouseID int64) (decimal.Decimal, error)
	// ProductStock returns the derived view for one product in its default warehouse.
	ProductStock(ctx context.Context, productID int64) (*ProductStock, error)
	// WarehouseStock returns the derived view for every product homed in a warehouse.
	WarehouseStock(ctx context.Context, warehouseID int64) ([]ProductStock, error)
	// LowStockAlerts lists products at or under minStock × 1.5, most depleted
	// first, tagged critical (≤ minStock) or warning, truncated to limit.
	LowStockAlerts(ctx context.Context, warehouseID *int64, limit int) ([]LowStockAlert, error)
}

type stockService struct {
	pool *pgxpool.Pool
}

// NewStockService constructs a StockService backed by PostgreSQL.
func NewStockService(pool *pgxpool.Pool) StockService {
	return &stockService{pool: pool}
}

func (s *stockService) OnHand(ctx context.Context, productID, warehouseID int64) (decimal.Decimal, error) {
	return sumOnHand(ctx, s.pool, productID, warehouseID)
}

func (s *stockService) Status(ctx context.Context, productID, warehouseID int64) (StockStatus, error) {
	var minStock, maxStock decimal.Decimal
	err := s.pool.QueryRow(ctx, "SELECT min_stock, max_stock FROM products WHERE id = $1", productID).
		Scan(&minStock, &maxStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &NotFoundError{Resource: "product", ID: productID}
		}
		return "", fmt.Errorf("fetch stock thresholds: %w", err)
	}
	onHand, err := sumOnHand(ctx, s.pool, productID, warehouseID)
	if err != nil {
		return "", err
	}
	return classifyStock(onHand, minStock, maxStock), nil
}

func (s *stockService) InventoryValue(ctx context.Context, productID, warehouseID int64) (decimal.Decimal, error) {
	var unitPrice decimal.Decimal
	err := s.pool.QueryRow(ctx, "SELECT unit_price FROM products WHERE id = $1", productID).Scan(&unitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, &NotFoundError{Resource: "product", ID: productID}
		}
		return decimal.Zero, fmt.Errorf("fetch unit price: %w", err)
	}
	onHand, err := sumOnHand(ctx, s.pool, productID, warehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	return onHand.Mul(unitPrice), nil
}

const stockViewQuery = `
	SELECT p.id, p.name, p.sku,
	       w.id, w.name, l.name,
	       COALESCE(SUM(t.quantity) FILTER (WHERE t.type = 'inbound'), 0)  AS total_in,
	       COALESCE(SUM(t.quantity) FILTER (WHERE t.type = 'outbound'), 0) AS total_out,
	       p.min_stock, p.max_stock, p.unit_price
	FROM products p
	JOIN warehouses w ON w.id = p.warehouse_id
	LEFT JOIN locations l ON l.id = p.location_id
	LEFT JOIN transactions t
	       ON t.product_id = p.id AND t.warehouse_id = p.warehouse_id
	      AND t.type IN ('inbound', 'outbound')`

func scanStockView(rows pgx.Rows) (*ProductStock, error) {
	var ps ProductStock
	if err := rows.Scan(
		&ps.ProductID, &ps.ProductName, &ps.SKU,
		&ps.WarehouseID, &ps.WarehouseName, &ps.LocationName,
		&ps.TotalIn, &ps.TotalOut,
		&ps.MinStock, &ps.MaxStock, &ps.UnitPrice,
	); err != nil {
		return nil, err
	}
	ps.OnHand = ps.TotalIn.Sub(ps.TotalOut)
	ps.Status = classifyStock(ps.OnHand, ps.MinStock, ps.MaxStock)
	ps.Value = ps.OnHand.Mul(ps.UnitPrice)
	return &ps, nil
}

func (s *stockService) ProductStock(ctx context.Context, productID int64) (*ProductStock, error) {
	rows, err := s.pool.Query(ctx, stockViewQuery+`
		WHERE p.id = $1
		GROUP BY p.id, w.id, l.id`, productID)
	if err != nil {
		return nil, fmt.Errorf("product stock: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("product stock: %w", err)
		}
		return nil, &NotFoundError{Resource: "product", ID: productID}
	}
	return scanStockView(rows)
}

func (s *stockService) WarehouseStock(ctx context.Context, warehouseID int64) ([]ProductStock, error) {
	rows, err := s.pool.Query(ctx, stockViewQuery+`
		WHERE p.warehouse_id = $1
		GROUP BY p.id, w.id, l.id
		ORDER BY p.name`, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("warehouse stock: %w", err)
	}
	defer rows.Close()

	var out []ProductStock
	for rows.Next() {
		ps, err := scanStockView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warehouse stock: %w", err)
		}
		out = append(out, *ps)
	}
	return out, rows.Err()
}

func (s *stockService) LowStockAlerts(ctx context.Context, warehouseID *int64, limit int) ([]LowStockAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT p.id, p.name, p.sku, w.id, w.name, p.min_stock,
		       COALESCE(SUM(CASE WHEN t.type = 'inbound' THEN t.quantity ELSE -t.quantity END), 0) AS on_hand
		FROM products p
		JOIN warehouses w ON w.id = p.warehouse_id
		LEFT JOIN transactions t
		       ON t.product_id = p.id AND t.warehouse_id = p.warehouse_id
		      AND t.type IN ('inbound', 'outbound')
		WHERE p.is_active`
	var args []any
	if warehouseID != nil {
		args = append(args, *warehouseID)
		query += fmt.Sprintf(" AND p.warehouse_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(`
		GROUP BY p.id, w.id
		HAVING COALESCE(SUM(CASE WHEN t.type = 'inbound' THEN t.quantity ELSE -t.quantity END), 0) <= p.min_stock * 1.5
		ORDER BY on_hand ASC
		LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("low stock alerts: %w", err)
	}
	defer rows.Close()

	var out []LowStockAlert
	for rows.Next() {
		var a LowStockAlert
		if err := rows.Scan(&a.ProductID, &a.ProductName, &a.SKU, &a.WarehouseID, &a.WarehouseName, &a.MinStock, &a.OnHand); err != nil {
			return nil, fmt.Errorf("scan low stock alert: %w", err)
		}
		if a.OnHand.LessThanOrEqual(a.MinStock) {
			a.Level = AlertCritical
		} else {
			a.Level = AlertWarning
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
