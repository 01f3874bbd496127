package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductInput holds the writable fields of a product.
type ProductInput struct {
	SKU          string
	Name         string
	Description  string
	Manufacturer string
	Category     string
	Unit         string
	WarehouseID  *int64
	LocationID   *int64
	MinStock     decimal.Decimal
	MaxStock     decimal.Decimal
	UnitPrice    decimal.Decimal
	Notes        string
}

// ProductService provides product master data operations. A product becomes an
// immutable ledger reference once any transaction exists: deletion is refused
// with the blocking count.
type ProductService interface {
	Create(ctx context.Context, in ProductInput) (*Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Search(ctx context.Context, keyword string) ([]Product, error)
	Update(ctx context.Context, id int64, in ProductInput) (*Product, error)
	Delete(ctx context.Context, id int64) error
}

type productService struct {
	pool *pgxpool.Pool
}

// NewProductService constructs a ProductService backed by PostgreSQL.
func NewProductService(pool *pgxpool.Pool) ProductService {
	return &productService{pool: pool}
}

func (in *ProductInput) validate() error {
	if in.SKU == "" {
		return &ValidationError{Field: "sku", Reason: "is required"}
	}
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if in.Unit == "" {
		in.Unit = "unit"
	}
	if in.MinStock.IsNegative() || in.MaxStock.IsNegative() {
		return &ValidationError{Field: "minStock", Reason: "thresholds cannot be negative"}
	}
	if in.MaxStock.IsZero() {
		in.MaxStock = decimal.NewFromInt(999999)
	}
	if in.MaxStock.LessThan(in.MinStock) {
		return &ValidationError{Field: "maxStock", Reason: "cannot be below minStock"}
	}
	if in.UnitPrice.IsNegative() {
		return &ValidationError{Field: "unitPrice", Reason: "cannot be negative"}
	}
	return nil
}

const productColumns = `
	id, sku, name, description, manufacturer, category, unit, warehouse_id, location_id,
	min_stock, max_stock, unit_price, notes, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.Manufacturer, &p.Category, &p.Unit,
		&p.WarehouseID, &p.LocationID, &p.MinStock, &p.MaxStock, &p.UnitPrice,
		&p.Notes, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *productService) Create(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.WarehouseID != nil {
		var exists bool
		if err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM warehouses WHERE id = $1)", *in.WarehouseID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check warehouse: %w", err)
		}
		if !exists {
			return nil, &NotFoundError{Resource: "warehouse", ID: *in.WarehouseID}
		}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (sku, name, description, manufacturer, category, unit,
		                      warehouse_id, location_id, min_stock, max_stock, unit_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+productColumns,
		in.SKU, in.Name, nullable(in.Description), nullable(in.Manufacturer), nullable(in.Category),
		in.Unit, in.WarehouseID, in.LocationID, in.MinStock, in.MaxStock, in.UnitPrice, nullable(in.Notes))
	p, err := scanProduct(row)
	if err != nil {
		if dup := asDuplicate(err, "product", "sku", in.SKU); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("create product %q: %w", in.SKU, err)
	}
	return p, nil
}

func (s *productService) Get(ctx context.Context, id int64) (*Product, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "product", ID: id}
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *productService) List(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *productService) Search(ctx context.Context, keyword string) ([]Product, error) {
	pattern := "%" + keyword + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE name ILIKE $1 OR sku ILIKE $1 OR description ILIKE $1 OR manufacturer ILIKE $1
		ORDER BY name`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *productService) Update(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE products
		SET sku = $1, name = $2, description = $3, manufacturer = $4, category = $5, unit = $6,
		    warehouse_id = $7, location_id = $8, min_stock = $9, max_stock = $10,
		    unit_price = $11, notes = $12, updated_at = NOW()
		WHERE id = $13
		RETURNING `+productColumns,
		in.SKU, in.Name, nullable(in.Description), nullable(in.Manufacturer), nullable(in.Category),
		in.Unit, in.WarehouseID, in.LocationID, in.MinStock, in.MaxStock, in.UnitPrice, nullable(in.Notes), id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "product", ID: id}
		}
		if dup := asDuplicate(err, "product", "sku", in.SKU); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	return p, nil
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	var transactionCount, invoiceItemCount int64
	err := s.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM transactions WHERE product_id = $1),
		       (SELECT COUNT(*) FROM invoice_items WHERE product_id = $1)`, id,
	).Scan(&transactionCount, &invoiceItemCount)
	if err != nil {
		return fmt.Errorf("check product dependents: %w", err)
	}
	if transactionCount > 0 || invoiceItemCount > 0 {
		return &DependencyConflictError{
			Resource: "product",
			ID:       id,
			Dependents: map[string]int64{
				"transactions":  transactionCount,
				"invoice_items": invoiceItemCount,
			},
		}
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "product", ID: id}
	}
	return nil
}
