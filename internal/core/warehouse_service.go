package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// WarehouseInput holds the writable fields of a warehouse.
type WarehouseInput struct {
	Code        string
	Name        string
	Address     string
	City        string
	Country     string
	Phone       string
	Email       string
	Manager     string
	TotalArea   decimal.Decimal
	Type        WarehouseType
	RentalPrice decimal.Decimal
	Notes       string
}

// WarehouseStats is the derived activity/utilization view for one warehouse.
type WarehouseStats struct {
	WarehouseID     int64           `json:"warehouse_id"`
	Name            string          `json:"name"`
	TotalArea       decimal.Decimal `json:"total_area"`
	UsedArea        decimal.Decimal `json:"used_area"`
	UtilizationRate decimal.Decimal `json:"utilization_rate"` // used/total × 100
	TotalLocations  int64           `json:"total_locations"`
	TotalProducts   int64           `json:"total_products"`
	TotalInbound    decimal.Decimal `json:"total_inbound"`
	TotalOutbound   decimal.Decimal `json:"total_outbound"`
	InboundValue    decimal.Decimal `json:"inbound_value"`
	OutboundValue   decimal.Decimal `json:"outbound_value"`
	NetInventory    decimal.Decimal `json:"net_inventory"`
	NetValue        decimal.Decimal `json:"net_value"`
}

// WarehouseService provides warehouse master data operations. Deletion is
// refused, never cascaded, while products or ledger rows reference the row.
type WarehouseService interface {
	Create(ctx context.Context, in WarehouseInput) (*Warehouse, error)
	Get(ctx context.Context, id int64) (*Warehouse, error)
	List(ctx context.Context) ([]Warehouse, error)
	Update(ctx context.Context, id int64, in WarehouseInput) (*Warehouse, error)
	Delete(ctx context.Context, id int64) error
	UpdateUsedArea(ctx context.Context, id int64, usedArea decimal.Decimal) error
	Stats(ctx context.Context, id int64) (*WarehouseStats, error)
}

type warehouseService struct {
	pool *pgxpool.Pool
}

// NewWarehouseService constructs a WarehouseService backed by PostgreSQL.
func NewWarehouseService(pool *pgxpool.Pool) WarehouseService {
	return &warehouseService{pool: pool}
}

func (in *WarehouseInput) validate() error {
	if in.Code == "" {
		return &ValidationError{Field: "code", Reason: "is required"}
	}
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if in.Type == "" {
		in.Type = WarehouseGeneral
	}
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown warehouse type %q", in.Type)}
	}
	if in.Country == "" {
		in.Country = "Vietnam"
	}
	return nil
}

const warehouseColumns = `
	id, code, name, address, city, country, phone, email, manager,
	total_area, used_area, status, type, rental_price, notes, created_at, updated_at`

func scanWarehouse(row pgx.Row) (*Warehouse, error) {
	var w Warehouse
	if err := row.Scan(
		&w.ID, &w.Code, &w.Name, &w.Address, &w.City, &w.Country, &w.Phone, &w.Email, &w.Manager,
		&w.TotalArea, &w.UsedArea, &w.Status, &w.Type, &w.RentalPrice, &w.Notes, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *warehouseService) Create(ctx context.Context, in WarehouseInput) (*Warehouse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO warehouses (code, name, address, city, country, phone, email, manager,
		                        total_area, type, rental_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+warehouseColumns,
		in.Code, in.Name, nullable(in.Address), nullable(in.City), in.Country,
		nullable(in.Phone), nullable(in.Email), nullable(in.Manager),
		in.TotalArea, string(in.Type), in.RentalPrice, nullable(in.Notes))
	w, err := scanWarehouse(row)
	if err != nil {
		if dup := asDuplicate(err, "warehouse", "code", in.Code); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("create warehouse %q: %w", in.Code, err)
	}
	return w, nil
}

func (s *warehouseService) Get(ctx context.Context, id int64) (*Warehouse, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+warehouseColumns+" FROM warehouses WHERE id = $1", id)
	w, err := scanWarehouse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "warehouse", ID: id}
		}
		return nil, fmt.Errorf("get warehouse %d: %w", id, err)
	}
	return w, nil
}

func (s *warehouseService) List(ctx context.Context) ([]Warehouse, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+warehouseColumns+" FROM warehouses ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()

	var out []Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (s *warehouseService) Update(ctx context.Context, id int64, in WarehouseInput) (*Warehouse, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE warehouses
		SET code = $1, name = $2, address = $3, city = $4, country = $5, phone = $6,
		    email = $7, manager = $8, total_area = $9, type = $10, rental_price = $11,
		    notes = $12, updated_at = NOW()
		WHERE id = $13
		RETURNING `+warehouseColumns,
		in.Code, in.Name, nullable(in.Address), nullable(in.City), in.Country,
		nullable(in.Phone), nullable(in.Email), nullable(in.Manager),
		in.TotalArea, string(in.Type), in.RentalPrice, nullable(in.Notes), id)
	w, err := scanWarehouse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "warehouse", ID: id}
		}
		if dup := asDuplicate(err, "warehouse", "code", in.Code); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update warehouse %d: %w", id, err)
	}
	return w, nil
}

func (s *warehouseService) Delete(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin warehouse delete: %w", err)
	}
	defer tx.Rollback(ctx)

	var productCount, transactionCount int64
	err = tx.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM products WHERE warehouse_id = $1),
		       (SELECT COUNT(*) FROM transactions WHERE warehouse_id = $1)`, id,
	).Scan(&productCount, &transactionCount)
	if err != nil {
		return fmt.Errorf("check warehouse dependents: %w", err)
	}
	if productCount > 0 || transactionCount > 0 {
		return &DependencyConflictError{
			Resource: "warehouse",
			ID:       id,
			Dependents: map[string]int64{
				"products":     productCount,
				"transactions": transactionCount,
			},
		}
	}

	// Locations are owned by the warehouse and carry no ledger references once
	// the checks above pass.
	if _, err := tx.Exec(ctx, "DELETE FROM locations WHERE warehouse_id = $1", id); err != nil {
		return fmt.Errorf("delete warehouse locations: %w", err)
	}
	tag, err := tx.Exec(ctx, "DELETE FROM warehouses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete warehouse %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "warehouse", ID: id}
	}
	return tx.Commit(ctx)
}

func (s *warehouseService) UpdateUsedArea(ctx context.Context, id int64, usedArea decimal.Decimal) error {
	if usedArea.IsNegative() {
		return &ValidationError{Field: "usedArea", Reason: "cannot be negative"}
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE warehouses SET used_area = $1, updated_at = NOW() WHERE id = $2", usedArea, id)
	if err != nil {
		return fmt.Errorf("update used area: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "warehouse", ID: id}
	}
	return nil
}

func (s *warehouseService) Stats(ctx context.Context, id int64) (*WarehouseStats, error) {
	var st WarehouseStats
	err := s.pool.QueryRow(ctx, `
		SELECT w.id, w.name, w.total_area, w.used_area,
		       (SELECT COUNT(*) FROM locations WHERE warehouse_id = w.id),
		       (SELECT COUNT(*) FROM products  WHERE warehouse_id = w.id),
		       COALESCE((SELECT SUM(quantity)              FROM transactions WHERE warehouse_id = w.id AND type = 'inbound'), 0),
		       COALESCE((SELECT SUM(quantity)              FROM transactions WHERE warehouse_id = w.id AND type = 'outbound'), 0),
		       COALESCE((SELECT SUM(quantity * unit_price) FROM transactions WHERE warehouse_id = w.id AND type = 'inbound'), 0),
		       COALESCE((SELECT SUM(quantity * unit_price) FROM transactions WHERE warehouse_id = w.id AND type = 'outbound'), 0)
		FROM warehouses w
		WHERE w.id = $1`, id,
	).Scan(
		&st.WarehouseID, &st.Name, &st.TotalArea, &st.UsedArea,
		&st.TotalLocations, &st.TotalProducts,
		&st.TotalInbound, &st.TotalOutbound, &st.InboundValue, &st.OutboundValue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "warehouse", ID: id}
		}
		return nil, fmt.Errorf("warehouse stats %d: %w", id, err)
	}
	if st.TotalArea.IsPositive() {
		st.UtilizationRate = st.UsedArea.Div(st.TotalArea).Mul(decimal.NewFromInt(100)).Round(2)
	}
	st.NetInventory = st.TotalInbound.Sub(st.TotalOutbound)
	st.NetValue = st.InboundValue.Sub(st.OutboundValue)
	return &st, nil
}
