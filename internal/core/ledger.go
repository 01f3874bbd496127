package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// MovementInput describes a direct inbound or outbound ledger entry.
// Transfers, adjustments and stocktakes have their own operations and are
// rejected here: they decide sign and reference themselves.
type MovementInput struct {
	Type        TransactionType
	ProductID   int64
	WarehouseID int64
	LocationID  *int64
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Supplier    string
	Customer    string
	Reference   string
	Notes       string
	Date        time.Time
}

// TransferInput moves stock between two warehouses as one atomic pair of rows.
type TransferInput struct {
	ProductID       int64
	FromWarehouseID int64
	ToWarehouseID   int64
	FromLocationID  *int64
	ToLocationID    *int64
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	Reference       string
	Notes           string
	Date            time.Time
}

// TransferResult identifies the two legs written for a transfer. Both rows
// carry Reference; a reference with only one leg is never observable.
type TransferResult struct {
	OutboundID int64  `json:"outbound_id"`
	InboundID  int64  `json:"inbound_id"`
	Reference  string `json:"reference"`
}

// AdjustmentInput corrects stock by a signed quantity. Positive quantities
// become inbound rows, negative ones outbound rows of the absolute magnitude.
type AdjustmentInput struct {
	ProductID   int64
	WarehouseID int64
	LocationID  *int64
	Quantity    decimal.Decimal // signed
	Reason      string
	Notes       string
	Date        time.Time
}

// StocktakeInput reconciles a physical count against the derived on-hand sum.
type StocktakeInput struct {
	ProductID   int64
	WarehouseID int64
	LocationID  *int64
	CountedQty  decimal.Decimal
	Reference   string
	Notes       string
	Date        time.Time
}

// MovementUpdate is an administrative correction of an existing row. It is
// deliberately not re-validated against on-hand (see DESIGN.md).
type MovementUpdate struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Supplier  string
	Customer  string
	Reference string
	Notes     string
	Date      time.Time
}

// MovementFilter narrows ListMovements. Zero limit means 100.
type MovementFilter struct {
	Type        *TransactionType
	ProductID   *int64
	WarehouseID *int64
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
}

// MovementSummary aggregates ledger activity for a warehouse/date window.
type MovementSummary struct {
	TotalTransactions int64           `json:"total_transactions"`
	TotalInbound      int64           `json:"total_inbound"`
	TotalOutbound     int64           `json:"total_outbound"`
	InQuantity        decimal.Decimal `json:"in_quantity"`
	OutQuantity       decimal.Decimal `json:"out_quantity"`
	InValue           decimal.Decimal `json:"in_value"`
	OutValue          decimal.Decimal `json:"out_value"`
}

// DailyActivity is one day of ledger traffic.
type DailyActivity struct {
	Date        string          `json:"date"`
	Count       int64           `json:"count"`
	InQuantity  decimal.Decimal `json:"in_quantity"`
	OutQuantity decimal.Decimal `json:"out_quantity"`
	InValue     decimal.Decimal `json:"in_value"`
	OutValue    decimal.Decimal `json:"out_value"`
}

// LedgerService records inventory movements and gates every stock-reducing
// write on the derived on-hand quantity. All check-then-insert sequences run
// inside one transaction holding an advisory lock on the (product, warehouse)
// pair, so concurrent writers against the same pair serialize.
type LedgerService interface {
	RecordMovement(ctx context.Context, in MovementInput) (int64, error)
	RecordTransfer(ctx context.Context, in TransferInput) (*TransferResult, error)
	RecordAdjustment(ctx context.Context, in AdjustmentInput) (int64, error)
	// RecordStocktake writes the signed variance between the physical count and
	// the ledger sum. A zero variance writes nothing and returns id 0.
	RecordStocktake(ctx context.Context, in StocktakeInput) (int64, error)

	GetMovement(ctx context.Context, id int64) (*Transaction, error)
	ListMovements(ctx context.Context, f MovementFilter) ([]Transaction, error)
	UpdateMovement(ctx context.Context, id int64, u MovementUpdate) error
	DeleteMovement(ctx context.Context, id int64) error

	Summary(ctx context.Context, warehouseID *int64, start, end *time.Time) (*MovementSummary, error)
	DailyActivity(ctx context.Context, warehouseID *int64, days int) ([]DailyActivity, error)
}

type ledgerService struct {
	pool *pgxpool.Pool
}

// NewLedgerService constructs a LedgerService backed by PostgreSQL.
func NewLedgerService(pool *pgxpool.Pool) LedgerService {
	return &ledgerService{pool: pool}
}

// lockStockPair takes a transaction-scoped advisory lock on one
// (product, warehouse) pair. Released automatically at commit/rollback.
func lockStockPair(ctx context.Context, tx pgx.Tx, productID, warehouseID int64) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", int32(productID), int32(warehouseID)); err != nil {
		return fmt.Errorf("lock stock pair (%d, %d): %w", productID, warehouseID, err)
	}
	return nil
}

func (s *ledgerService) resolveRefs(ctx context.Context, tx pgx.Tx, productID, warehouseID int64, locationID *int64) error {
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", productID).Scan(&exists); err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return &NotFoundError{Resource: "product", ID: productID}
	}
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM warehouses WHERE id = $1)", warehouseID).Scan(&exists); err != nil {
		return fmt.Errorf("check warehouse: %w", err)
	}
	if !exists {
		return &NotFoundError{Resource: "warehouse", ID: warehouseID}
	}
	if locationID != nil {
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1)", *locationID).Scan(&exists); err != nil {
			return fmt.Errorf("check location: %w", err)
		}
		if !exists {
			return &NotFoundError{Resource: "location", ID: *locationID}
		}
	}
	return nil
}

// insertRow appends exactly one ledger row and returns its id.
func insertRow(ctx context.Context, tx pgx.Tx, t TransactionType, in MovementInput) (int64, error) {
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO transactions (type, product_id, warehouse_id, location_id, quantity, unit_price,
		                          supplier, customer, reference, notes, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		string(t), in.ProductID, in.WarehouseID, in.LocationID, in.Quantity, in.UnitPrice,
		nullable(in.Supplier), nullable(in.Customer), nullable(in.Reference), nullable(in.Notes), date,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert %s row: %w", t, err)
	}
	return id, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *ledgerService) RecordMovement(ctx context.Context, in MovementInput) (int64, error) {
	switch in.Type {
	case TypeInbound, TypeOutbound:
	case TypeTransfer, TypeAdjustment, TypeStocktake:
		return 0, &ValidationError{Field: "type", Reason: fmt.Sprintf("%s movements must use their dedicated operation", in.Type)}
	default:
		return 0, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown movement type %q", in.Type)}
	}
	if !in.Quantity.IsPositive() {
		return 0, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if in.UnitPrice.IsNegative() {
		return 0, &ValidationError{Field: "unitPrice", Reason: "cannot be negative"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin movement transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockStockPair(ctx, tx, in.ProductID, in.WarehouseID); err != nil {
		return 0, err
	}
	if err := s.resolveRefs(ctx, tx, in.ProductID, in.WarehouseID, in.LocationID); err != nil {
		return 0, err
	}

	if in.Type == TypeOutbound {
		onHand, err := sumOnHand(ctx, tx, in.ProductID, in.WarehouseID)
		if err != nil {
			return 0, err
		}
		if onHand.LessThan(in.Quantity) {
			return 0, &InsufficientStockError{
				ProductID:   in.ProductID,
				WarehouseID: in.WarehouseID,
				Available:   onHand,
				Requested:   in.Quantity,
			}
		}
	}

	id, err := insertRow(ctx, tx, in.Type, in)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit movement: %w", err)
	}
	return id, nil
}

func (s *ledgerService) RecordTransfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if !in.Quantity.IsPositive() {
		return nil, &ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return nil, &ValidationError{Field: "toWarehouseId", Reason: "source and destination warehouses must differ"}
	}

	// Transfer references always carry the TRF- prefix so the two legs can
	// be re-paired later.
	reference := in.Reference
	if reference == "" {
		reference = "TRF-" + uuid.NewString()
	} else if !strings.HasPrefix(reference, "TRF-") {
		reference = "TRF-" + reference
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transfer transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock both pairs in warehouse-id order so two opposing transfers for the
	// same product cannot deadlock.
	first, second := in.FromWarehouseID, in.ToWarehouseID
	if second < first {
		first, second = second, first
	}
	if err := lockStockPair(ctx, tx, in.ProductID, first); err != nil {
		return nil, err
	}
	if err := lockStockPair(ctx, tx, in.ProductID, second); err != nil {
		return nil, err
	}

	if err := s.resolveRefs(ctx, tx, in.ProductID, in.FromWarehouseID, in.FromLocationID); err != nil {
		return nil, err
	}
	if err := s.resolveRefs(ctx, tx, in.ProductID, in.ToWarehouseID, in.ToLocationID); err != nil {
		return nil, err
	}

	onHand, err := sumOnHand(ctx, tx, in.ProductID, in.FromWarehouseID)
	if err != nil {
		return nil, err
	}
	if onHand.LessThan(in.Quantity) {
		return nil, &InsufficientStockError{
			ProductID:   in.ProductID,
			WarehouseID: in.FromWarehouseID,
			Available:   onHand,
			Requested:   in.Quantity,
		}
	}

	outboundID, err := insertRow(ctx, tx, TypeOutbound, MovementInput{
		ProductID:   in.ProductID,
		WarehouseID: in.FromWarehouseID,
		LocationID:  in.FromLocationID,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Reference:   reference,
		Notes:       in.Notes,
		Date:        in.Date,
	})
	if err != nil {
		return nil, err
	}
	inboundID, err := insertRow(ctx, tx, TypeInbound, MovementInput{
		ProductID:   in.ProductID,
		WarehouseID: in.ToWarehouseID,
		LocationID:  in.ToLocationID,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		Reference:   reference,
		Notes:       in.Notes,
		Date:        in.Date,
	})
	if err != nil {
		return nil, err
	}

	// Single commit: both legs land together or not at all.
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}
	return &TransferResult{OutboundID: outboundID, InboundID: inboundID, Reference: reference}, nil
}

func (s *ledgerService) RecordAdjustment(ctx context.Context, in AdjustmentInput) (int64, error) {
	if in.Quantity.IsZero() {
		return 0, &ValidationError{Field: "quantity", Reason: "must be non-zero"}
	}
	if in.Reason == "" {
		return 0, &ValidationError{Field: "reason", Reason: "is required"}
	}

	rowType := TypeInbound
	magnitude := in.Quantity
	if in.Quantity.IsNegative() {
		rowType = TypeOutbound
		magnitude = in.Quantity.Abs()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin adjustment transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockStockPair(ctx, tx, in.ProductID, in.WarehouseID); err != nil {
		return 0, err
	}
	if err := s.resolveRefs(ctx, tx, in.ProductID, in.WarehouseID, in.LocationID); err != nil {
		return 0, err
	}

	// Negative adjustments pass through the same sufficiency gate as outbound
	// movements: an adjustment must never be the write that drives the derived
	// on-hand negative.
	if rowType == TypeOutbound {
		onHand, err := sumOnHand(ctx, tx, in.ProductID, in.WarehouseID)
		if err != nil {
			return 0, err
		}
		if onHand.LessThan(magnitude) {
			return 0, &InsufficientStockError{
				ProductID:   in.ProductID,
				WarehouseID: in.WarehouseID,
				Available:   onHand,
				Requested:   magnitude,
			}
		}
	}

	id, err := insertRow(ctx, tx, rowType, MovementInput{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		LocationID:  in.LocationID,
		Quantity:    magnitude,
		Reference:   "ADJUSTMENT: " + in.Reason,
		Notes:       in.Notes,
		Date:        in.Date,
	})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit adjustment: %w", err)
	}
	return id, nil
}

func (s *ledgerService) RecordStocktake(ctx context.Context, in StocktakeInput) (int64, error) {
	if in.CountedQty.IsNegative() {
		return 0, &ValidationError{Field: "countedQuantity", Reason: "cannot be negative"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin stocktake transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockStockPair(ctx, tx, in.ProductID, in.WarehouseID); err != nil {
		return 0, err
	}
	if err := s.resolveRefs(ctx, tx, in.ProductID, in.WarehouseID, in.LocationID); err != nil {
		return 0, err
	}

	onHand, err := sumOnHand(ctx, tx, in.ProductID, in.WarehouseID)
	if err != nil {
		return 0, err
	}
	delta := in.CountedQty.Sub(onHand)
	if delta.IsZero() {
		// Count matches the ledger; nothing to correct.
		return 0, tx.Commit(ctx)
	}

	rowType := TypeInbound
	if delta.IsNegative() {
		rowType = TypeOutbound
	}
	reference := "STOCKTAKE"
	if in.Reference != "" {
		reference = "STOCKTAKE: " + in.Reference
	}
	id, err := insertRow(ctx, tx, rowType, MovementInput{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		LocationID:  in.LocationID,
		Quantity:    delta.Abs(),
		Reference:   reference,
		Notes:       in.Notes,
		Date:        in.Date,
	})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit stocktake: %w", err)
	}
	return id, nil
}

const movementColumns = `
	t.id, t.type, t.product_id, t.warehouse_id, t.location_id, t.quantity, t.unit_price,
	t.supplier, t.customer, t.reference, t.notes, t.transaction_date, t.created_at, t.updated_at,
	p.name, p.sku, w.name, l.name`

func scanMovement(row pgx.Row) (*Transaction, error) {
	var t Transaction
	if err := row.Scan(
		&t.ID, &t.Type, &t.ProductID, &t.WarehouseID, &t.LocationID, &t.Quantity, &t.UnitPrice,
		&t.Supplier, &t.Customer, &t.Reference, &t.Notes, &t.TransactionDate, &t.CreatedAt, &t.UpdatedAt,
		&t.ProductName, &t.ProductSKU, &t.WarehouseName, &t.LocationName,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *ledgerService) GetMovement(ctx context.Context, id int64) (*Transaction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+movementColumns+`
		FROM transactions t
		JOIN products p   ON p.id = t.product_id
		JOIN warehouses w ON w.id = t.warehouse_id
		LEFT JOIN locations l ON l.id = t.location_id
		WHERE t.id = $1`, id)
	t, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "transaction", ID: id}
		}
		return nil, fmt.Errorf("get movement %d: %w", id, err)
	}
	return t, nil
}

func (s *ledgerService) ListMovements(ctx context.Context, f MovementFilter) ([]Transaction, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM transactions t
		JOIN products p   ON p.id = t.product_id
		JOIN warehouses w ON w.id = t.warehouse_id
		LEFT JOIN locations l ON l.id = t.location_id
		WHERE 1=1`
	var args []any
	if f.Type != nil {
		args = append(args, string(*f.Type))
		query += fmt.Sprintf(" AND t.type = $%d", len(args))
	}
	if f.ProductID != nil {
		args = append(args, *f.ProductID)
		query += fmt.Sprintf(" AND t.product_id = $%d", len(args))
	}
	if f.WarehouseID != nil {
		args = append(args, *f.WarehouseID)
		query += fmt.Sprintf(" AND t.warehouse_id = $%d", len(args))
	}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		query += fmt.Sprintf(" AND t.transaction_date >= $%d", len(args))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		query += fmt.Sprintf(" AND t.transaction_date <= $%d", len(args))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY t.transaction_date DESC, t.id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *ledgerService) UpdateMovement(ctx context.Context, id int64, u MovementUpdate) error {
	date := u.Date
	if date.IsZero() {
		date = time.Now()
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions
		SET quantity = $1, unit_price = $2, supplier = $3, customer = $4,
		    reference = $5, notes = $6, transaction_date = $7, updated_at = NOW()
		WHERE id = $8`,
		u.Quantity, u.UnitPrice, nullable(u.Supplier), nullable(u.Customer),
		nullable(u.Reference), nullable(u.Notes), date, id)
	if err != nil {
		return fmt.Errorf("update movement %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "transaction", ID: id}
	}
	return nil
}

func (s *ledgerService) DeleteMovement(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM transactions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete movement %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "transaction", ID: id}
	}
	return nil
}

func (s *ledgerService) Summary(ctx context.Context, warehouseID *int64, start, end *time.Time) (*MovementSummary, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE type = 'inbound'),
		       COUNT(*) FILTER (WHERE type = 'outbound'),
		       COALESCE(SUM(quantity) FILTER (WHERE type = 'inbound'), 0),
		       COALESCE(SUM(quantity) FILTER (WHERE type = 'outbound'), 0),
		       COALESCE(SUM(quantity * unit_price) FILTER (WHERE type = 'inbound'), 0),
		       COALESCE(SUM(quantity * unit_price) FILTER (WHERE type = 'outbound'), 0)
		FROM transactions
		WHERE 1=1`
	var args []any
	if warehouseID != nil {
		args = append(args, *warehouseID)
		query += fmt.Sprintf(" AND warehouse_id = $%d", len(args))
	}
	if start != nil {
		args = append(args, *start)
		query += fmt.Sprintf(" AND transaction_date >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += fmt.Sprintf(" AND transaction_date <= $%d", len(args))
	}

	var sum MovementSummary
	if err := s.pool.QueryRow(ctx, query, args...).Scan(
		&sum.TotalTransactions, &sum.TotalInbound, &sum.TotalOutbound,
		&sum.InQuantity, &sum.OutQuantity, &sum.InValue, &sum.OutValue,
	); err != nil {
		return nil, fmt.Errorf("movement summary: %w", err)
	}
	return &sum, nil
}

func (s *ledgerService) DailyActivity(ctx context.Context, warehouseID *int64, days int) ([]DailyActivity, error) {
	if days <= 0 {
		days = 30
	}
	query := `
		SELECT TO_CHAR(transaction_date::date, 'YYYY-MM-DD'),
		       COUNT(*),
		       COALESCE(SUM(quantity) FILTER (WHERE type = 'inbound'), 0),
		       COALESCE(SUM(quantity) FILTER (WHERE type = 'outbound'), 0),
		       COALESCE(SUM(quantity * unit_price) FILTER (WHERE type = 'inbound'), 0),
		       COALESCE(SUM(quantity * unit_price) FILTER (WHERE type = 'outbound'), 0)
		FROM transactions
		WHERE transaction_date >= NOW() - ($1 || ' days')::interval`
	args := []any{fmt.Sprint(days)}
	if warehouseID != nil {
		args = append(args, *warehouseID)
		query += fmt.Sprintf(" AND warehouse_id = $%d", len(args))
	}
	query += " GROUP BY transaction_date::date ORDER BY transaction_date::date DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("daily activity: %w", err)
	}
	defer rows.Close()

	var out []DailyActivity
	for rows.Next() {
		var d DailyActivity
		if err := rows.Scan(&d.Date, &d.Count, &d.InQuantity, &d.OutQuantity, &d.InValue, &d.OutValue); err != nil {
			return nil, fmt.Errorf("scan daily activity: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
