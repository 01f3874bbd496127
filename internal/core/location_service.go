package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LocationInput holds the writable fields of a storage location.
type LocationInput struct {
	WarehouseID int64
	Code        string
	Name        string
	Type        string
	Area        decimal.Decimal
	Capacity    decimal.Decimal
	Notes       string
}

// LocationService manages storage locations inside warehouses. Codes are
// unique within their owning warehouse; deletion is refused while products
// occupy the slot.
type LocationService interface {
	Create(ctx context.Context, in LocationInput) (*Location, error)
	Get(ctx context.Context, id int64) (*Location, error)
	ListByWarehouse(ctx context.Context, warehouseID int64) ([]Location, error)
	ListAvailable(ctx context.Context, warehouseID *int64) ([]Location, error)
	Update(ctx context.Context, id int64, in LocationInput) (*Location, error)
	UpdateStatus(ctx context.Context, id int64, status LocationStatus) error
	Delete(ctx context.Context, id int64) error
}

type locationService struct {
	pool *pgxpool.Pool
}

// NewLocationService constructs a LocationService backed by PostgreSQL.
func NewLocationService(pool *pgxpool.Pool) LocationService {
	return &locationService{pool: pool}
}

func (in *LocationInput) validate() error {
	if in.WarehouseID == 0 {
		return &ValidationError{Field: "warehouseId", Reason: "is required"}
	}
	if in.Code == "" {
		return &ValidationError{Field: "code", Reason: "is required"}
	}
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if in.Type == "" {
		in.Type = "storage"
	}
	return nil
}

const locationColumns = `
	id, warehouse_id, code, name, type, area, capacity,
	status, notes, created_at, updated_at`

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	if err := row.Scan(
		&l.ID, &l.WarehouseID, &l.Code, &l.Name, &l.Type, &l.Area, &l.Capacity,
		&l.Status, &l.Notes, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *locationService) Create(ctx context.Context, in LocationInput) (*Location, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM warehouses WHERE id = $1)", in.WarehouseID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check warehouse: %w", err)
	}
	if !exists {
		return nil, &NotFoundError{Resource: "warehouse", ID: in.WarehouseID}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO locations (warehouse_id, code, name, type, area, capacity, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+locationColumns,
		in.WarehouseID, in.Code, in.Name, in.Type, in.Area, in.Capacity, nullable(in.Notes))
	l, err := scanLocation(row)
	if err != nil {
		if dup := asDuplicate(err, "location", "code", in.Code); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("create location %q: %w", in.Code, err)
	}
	return l, nil
}

func (s *locationService) Get(ctx context.Context, id int64) (*Location, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+locationColumns+" FROM locations WHERE id = $1", id)
	l, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "location", ID: id}
		}
		return nil, fmt.Errorf("get location %d: %w", id, err)
	}
	return l, nil
}

func (s *locationService) ListByWarehouse(ctx context.Context, warehouseID int64) ([]Location, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+locationColumns+" FROM locations WHERE warehouse_id = $1 ORDER BY code", warehouseID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()
	return collectLocations(rows)
}

func (s *locationService) ListAvailable(ctx context.Context, warehouseID *int64) ([]Location, error) {
	query := "SELECT " + locationColumns + " FROM locations WHERE status = 'available'"
	var args []any
	if warehouseID != nil {
		args = append(args, *warehouseID)
		query += fmt.Sprintf(" AND warehouse_id = $%d", len(args))
	}
	query += " ORDER BY warehouse_id, code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list available locations: %w", err)
	}
	defer rows.Close()
	return collectLocations(rows)
}

func collectLocations(rows pgx.Rows) ([]Location, error) {
	var out []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (s *locationService) Update(ctx context.Context, id int64, in LocationInput) (*Location, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE locations
		SET code = $1, name = $2, type = $3, area = $4, capacity = $5, notes = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING `+locationColumns,
		in.Code, in.Name, in.Type, in.Area, in.Capacity, nullable(in.Notes), id)
	l, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "location", ID: id}
		}
		if dup := asDuplicate(err, "location", "code", in.Code); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update location %d: %w", id, err)
	}
	return l, nil
}

func (s *locationService) UpdateStatus(ctx context.Context, id int64, status LocationStatus) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown location status %q", status)}
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE locations SET status = $1, updated_at = NOW() WHERE id = $2", string(status), id)
	if err != nil {
		return fmt.Errorf("update location status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "location", ID: id}
	}
	return nil
}

func (s *locationService) Delete(ctx context.Context, id int64) error {
	var productCount int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products WHERE location_id = $1", id).Scan(&productCount); err != nil {
		return fmt.Errorf("check location dependents: %w", err)
	}
	if productCount > 0 {
		return &DependencyConflictError{
			Resource:   "location",
			ID:         id,
			Dependents: map[string]int64{"products": productCount},
		}
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM locations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete location %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "location", ID: id}
	}
	return nil
}
