package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InvoiceItemInput is one line on an invoice.
type InvoiceItemInput struct {
	ProductID int64
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Notes     string
}

// InvoiceInput holds the writable fields of an invoice. Totals are
// computed from the items, never accepted from the caller.
type InvoiceInput struct {
	InvoiceNumber string
	CustomerID    int64
	InvoiceDate   time.Time
	DueDate       *time.Time
	TaxRate       decimal.Decimal
	Status        string
	Notes         string
	Items         []InvoiceItemInput
}

// InvoiceSummary aggregates invoice counts and amounts by status.
type InvoiceSummary struct {
	TotalCount     int64           `json:"total_count"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidCount      int64           `json:"paid_count"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	UnpaidCount    int64           `json:"unpaid_count"`
	UnpaidAmount   decimal.Decimal `json:"unpaid_amount"`
	DraftCount     int64           `json:"draft_count"`
	CancelledCount int64           `json:"cancelled_count"`
}

// MonthlyInvoiceStat is one month of invoicing volume.
type MonthlyInvoiceStat struct {
	Month       string          `json:"month"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// InvoiceService manages billing documents. The header and its lines are
// written in a single transaction so an invoice never exists half-formed.
type InvoiceService interface {
	Create(ctx context.Context, in InvoiceInput) (*Invoice, error)
	Get(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, status string, customerID int64) ([]Invoice, error)
	Update(ctx context.Context, id int64, in InvoiceInput) (*Invoice, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*Invoice, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context) (*InvoiceSummary, error)
	MonthlyStats(ctx context.Context, months int) ([]MonthlyInvoiceStat, error)
}

type invoiceService struct {
	pool *pgxpool.Pool
}

// NewInvoiceService constructs an InvoiceService backed by PostgreSQL.
func NewInvoiceService(pool *pgxpool.Pool) InvoiceService {
	return &invoiceService{pool: pool}
}

var invoiceStatuses = map[string]bool{
	"draft": true, "sent": true, "paid": true, "cancelled": true,
}

func (in *InvoiceInput) validate() error {
	if in.InvoiceNumber == "" {
		return &ValidationError{Field: "invoiceNumber", Reason: "is required"}
	}
	if in.CustomerID == 0 {
		return &ValidationError{Field: "customerId", Reason: "is required"}
	}
	if len(in.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one line is required"}
	}
	for i, item := range in.Items {
		if item.ProductID == 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].productId", i), Reason: "is required"}
		}
		if !item.Quantity.IsPositive() {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be positive"}
		}
		if item.UnitPrice.IsNegative() {
			return &ValidationError{Field: fmt.Sprintf("items[%d].unitPrice", i), Reason: "must not be negative"}
		}
	}
	if in.TaxRate.IsNegative() {
		return &ValidationError{Field: "taxRate", Reason: "must not be negative"}
	}
	if in.Status == "" {
		in.Status = "draft"
	}
	if !invoiceStatuses[in.Status] {
		return &ValidationError{Field: "status", Reason: "must be one of draft, sent, paid, cancelled"}
	}
	if in.InvoiceDate.IsZero() {
		in.InvoiceDate = time.Now()
	}
	return nil
}

// totals folds the lines into subtotal, tax amount and grand total.
func (in *InvoiceInput) totals() (subtotal, taxAmount, total decimal.Decimal) {
	for _, item := range in.Items {
		subtotal = subtotal.Add(item.Quantity.Mul(item.UnitPrice))
	}
	subtotal = subtotal.Round(2)
	taxAmount = subtotal.Mul(in.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	total = subtotal.Add(taxAmount)
	return subtotal, taxAmount, total
}

const invoiceColumns = `
	i.id, i.invoice_number, i.customer_id, c.name, i.invoice_date, i.due_date,
	i.subtotal, i.tax_rate, i.tax_amount, i.total, i.status, i.notes, i.created_at, i.updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	if err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.CustomerName, &inv.InvoiceDate, &inv.DueDate,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total, &inv.Status, &inv.Notes,
		&inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *invoiceService) Create(ctx context.Context, in InvoiceInput) (*Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	subtotal, taxAmount, total := in.totals()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)", in.CustomerID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check customer: %w", err)
	}
	if !exists {
		return nil, &NotFoundError{Resource: "customer", ID: in.CustomerID}
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, customer_id, invoice_date, due_date, subtotal, tax_rate, tax_amount, total, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		in.InvoiceNumber, in.CustomerID, in.InvoiceDate, in.DueDate,
		subtotal, in.TaxRate, taxAmount, total, in.Status, nullable(in.Notes)).Scan(&id)
	if err != nil {
		if dup := asDuplicate(err, "invoice", "invoice_number", in.InvoiceNumber); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("create invoice %q: %w", in.InvoiceNumber, err)
	}

	if err := insertInvoiceItems(ctx, tx, id, in.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit invoice: %w", err)
	}
	return s.Get(ctx, id)
}

func insertInvoiceItems(ctx context.Context, tx pgx.Tx, invoiceID int64, items []InvoiceItemInput) error {
	for _, item := range items {
		lineTotal := item.Quantity.Mul(item.UnitPrice).Round(2)
		_, err := tx.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price, total, notes)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			invoiceID, item.ProductID, item.Quantity, item.UnitPrice, lineTotal, nullable(item.Notes))
		if err != nil {
			return fmt.Errorf("insert invoice item for product %d: %w", item.ProductID, err)
		}
	}
	return nil
}

func (s *invoiceService) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "invoice", ID: id}
		}
		return nil, fmt.Errorf("get invoice %d: %w", id, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ii.id, ii.invoice_id, ii.product_id, p.sku, ii.quantity, ii.unit_price, ii.total, ii.notes
		FROM invoice_items ii
		JOIN products p ON p.id = ii.product_id
		WHERE ii.invoice_id = $1
		ORDER BY ii.id`, id)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.ProductSKU,
			&item.Quantity, &item.UnitPrice, &item.Total, &item.Notes); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		inv.Items = append(inv.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) List(ctx context.Context, status string, customerID int64) ([]Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE 1=1`
	args := []any{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND i.status = $%d", len(args))
	}
	if customerID != 0 {
		args = append(args, customerID)
		query += fmt.Sprintf(" AND i.customer_id = $%d", len(args))
	}
	query += " ORDER BY i.invoice_date DESC, i.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// Update replaces the header fields and all lines in one transaction.
func (s *invoiceService) Update(ctx context.Context, id int64, in InvoiceInput) (*Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	subtotal, taxAmount, total := in.totals()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE invoices
		SET invoice_number = $1, customer_id = $2, invoice_date = $3, due_date = $4,
		    subtotal = $5, tax_rate = $6, tax_amount = $7, total = $8, status = $9, notes = $10,
		    updated_at = NOW()
		WHERE id = $11`,
		in.InvoiceNumber, in.CustomerID, in.InvoiceDate, in.DueDate,
		subtotal, in.TaxRate, taxAmount, total, in.Status, nullable(in.Notes), id)
	if err != nil {
		if dup := asDuplicate(err, "invoice", "invoice_number", in.InvoiceNumber); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update invoice %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Resource: "invoice", ID: id}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM invoice_items WHERE invoice_id = $1", id); err != nil {
		return nil, fmt.Errorf("clear invoice items: %w", err)
	}
	if err := insertInvoiceItems(ctx, tx, id, in.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit invoice update: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *invoiceService) UpdateStatus(ctx context.Context, id int64, status string) (*Invoice, error) {
	if !invoiceStatuses[status] {
		return nil, &ValidationError{Field: "status", Reason: "must be one of draft, sent, paid, cancelled"}
	}
	tag, err := s.pool.Exec(ctx, "UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return nil, fmt.Errorf("update invoice status %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Resource: "invoice", ID: id}
	}
	return s.Get(ctx, id)
}

// Delete removes the lines then the header in one transaction.
func (s *invoiceService) Delete(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM invoice_items WHERE invoice_id = $1", id); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	tag, err := tx.Exec(ctx, "DELETE FROM invoices WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "invoice", ID: id}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit invoice delete: %w", err)
	}
	return nil
}

func (s *invoiceService) Summary(ctx context.Context) (*InvoiceSummary, error) {
	var sum InvoiceSummary
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(total), 0),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COALESCE(SUM(total) FILTER (WHERE status = 'paid'), 0),
			COUNT(*) FILTER (WHERE status = 'sent'),
			COALESCE(SUM(total) FILTER (WHERE status = 'sent'), 0),
			COUNT(*) FILTER (WHERE status = 'draft'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM invoices`).Scan(
		&sum.TotalCount, &sum.TotalAmount,
		&sum.PaidCount, &sum.PaidAmount,
		&sum.UnpaidCount, &sum.UnpaidAmount,
		&sum.DraftCount, &sum.CancelledCount)
	if err != nil {
		return nil, fmt.Errorf("invoice summary: %w", err)
	}
	return &sum, nil
}

func (s *invoiceService) MonthlyStats(ctx context.Context, months int) ([]MonthlyInvoiceStat, error) {
	if months <= 0 {
		months = 12
	}
	rows, err := s.pool.Query(ctx, `
		SELECT TO_CHAR(invoice_date, 'YYYY-MM') AS month, COUNT(*), COALESCE(SUM(total), 0)
		FROM invoices
		WHERE invoice_date >= NOW() - ($1 || ' months')::interval
		GROUP BY month
		ORDER BY month DESC`, fmt.Sprint(months))
	if err != nil {
		return nil, fmt.Errorf("monthly invoice stats: %w", err)
	}
	defer rows.Close()

	var out []MonthlyInvoiceStat
	for rows.Next() {
		var st MonthlyInvoiceStat
		if err := rows.Scan(&st.Month, &st.Count, &st.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan monthly stat: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
