package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CustomerInput holds the writable fields of a customer.
type CustomerInput struct {
	Code          string
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
	City          string
	Country       string
	TaxCode       string
	CreditLimit   decimal.Decimal
	Notes         string
}

// CustomerService provides customer master data operations. Deletion is
// refused while invoices reference the customer.
type CustomerService interface {
	Create(ctx context.Context, in CustomerInput) (*Customer, error)
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context) ([]Customer, error)
	Search(ctx context.Context, keyword string) ([]Customer, error)
	Update(ctx context.Context, id int64, in CustomerInput) (*Customer, error)
	Delete(ctx context.Context, id int64) error
}

type customerService struct {
	pool *pgxpool.Pool
}

// NewCustomerService constructs a CustomerService backed by PostgreSQL.
func NewCustomerService(pool *pgxpool.Pool) CustomerService {
	return &customerService{pool: pool}
}

func (in *CustomerInput) validate() error {
	if in.Code == "" {
		return &ValidationError{Field: "code", Reason: "is required"}
	}
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if in.Country == "" {
		in.Country = "Vietnam"
	}
	return nil
}

const customerColumns = `
	id, code, name, contact_person, phone, email, address, city, country,
	tax_code, credit_limit, status, notes, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.ContactPerson, &c.Phone, &c.Email, &c.Address, &c.City,
		&c.Country, &c.TaxCode, &c.CreditLimit, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *customerService) Create(ctx context.Context, in CustomerInput) (*Customer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO customers (code, name, contact_person, phone, email, address, city, country, tax_code, credit_limit, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+customerColumns,
		in.Code, in.Name, nullable(in.ContactPerson), nullable(in.Phone), nullable(in.Email),
		nullable(in.Address), nullable(in.City), in.Country, nullable(in.TaxCode), in.CreditLimit, nullable(in.Notes))
	c, err := scanCustomer(row)
	if err != nil {
		if dup := asDuplicate(err, "customer", "code", in.Code); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("create customer %q: %w", in.Code, err)
	}
	return c, nil
}

func (s *customerService) Get(ctx context.Context, id int64) (*Customer, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+customerColumns+" FROM customers WHERE id = $1", id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "customer", ID: id}
		}
		return nil, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, nil
}

func (s *customerService) List(ctx context.Context) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	return collectCustomers(rows)
}

func (s *customerService) Search(ctx context.Context, keyword string) ([]Customer, error) {
	pattern := "%" + keyword + "%"
	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE name ILIKE $1 OR code ILIKE $1 OR contact_person ILIKE $1 OR email ILIKE $1
		ORDER BY name`, pattern)
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	defer rows.Close()
	return collectCustomers(rows)
}

func collectCustomers(rows pgx.Rows) ([]Customer, error) {
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *customerService) Update(ctx context.Context, id int64, in CustomerInput) (*Customer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE customers
		SET code = $1, name = $2, contact_person = $3, phone = $4, email = $5, address = $6,
		    city = $7, country = $8, tax_code = $9, credit_limit = $10, notes = $11, updated_at = NOW()
		WHERE id = $12
		RETURNING `+customerColumns,
		in.Code, in.Name, nullable(in.ContactPerson), nullable(in.Phone), nullable(in.Email),
		nullable(in.Address), nullable(in.City), in.Country, nullable(in.TaxCode), in.CreditLimit, nullable(in.Notes), id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "customer", ID: id}
		}
		if dup := asDuplicate(err, "customer", "code", in.Code); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update customer %d: %w", id, err)
	}
	return c, nil
}

func (s *customerService) Delete(ctx context.Context, id int64) error {
	var invoiceCount int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices WHERE customer_id = $1", id).Scan(&invoiceCount); err != nil {
		return fmt.Errorf("check customer dependents: %w", err)
	}
	if invoiceCount > 0 {
		return &DependencyConflictError{
			Resource:   "customer",
			ID:         id,
			Dependents: map[string]int64{"invoices": invoiceCount},
		}
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM customers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "customer", ID: id}
	}
	return nil
}
