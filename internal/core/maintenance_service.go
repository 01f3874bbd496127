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

// MaintenancePlanInput holds the writable fields of a maintenance plan.
type MaintenancePlanInput struct {
	WarehouseID       int64
	Title             string
	Description       string
	Type              string
	Priority          string
	PlannedDate       time.Time
	EstimatedDuration int
	EstimatedCost     decimal.Decimal
	ResponsibleStaff  string
	Notes             string
}

// ProgressInput is one progress entry against a plan.
type ProgressInput struct {
	Status          string
	ProgressPercent int
	ActualStartDate *time.Time
	ActualEndDate   *time.Time
	ActualCost      decimal.Decimal
	Notes           string
	UpdatedBy       string
}

// IncidentInput holds the writable fields of an incident report.
type IncidentInput struct {
	WarehouseID int64
	Title       string
	Description string
	Type        string
	Severity    string
	Reporter    string
	Phone       string
	Action      string
}

// StaffInput holds the writable fields of a maintenance staff record.
type StaffInput struct {
	Code      string
	Name      string
	Position  string
	Specialty string
	Phone     string
	Email     string
	Status    string
	Notes     string
}

// MaintenanceStats aggregates plan and incident counts for dashboards.
type MaintenanceStats struct {
	PlannedCount    int64           `json:"planned_count"`
	InProgressCount int64           `json:"in_progress_count"`
	CompletedCount  int64           `json:"completed_count"`
	OverdueCount    int64           `json:"overdue_count"`
	OpenIncidents   int64           `json:"open_incidents"`
	CriticalOpen    int64           `json:"critical_open"`
	TotalEstimated  decimal.Decimal `json:"total_estimated"`
	TotalActual     decimal.Decimal `json:"total_actual"`
}

// MaintenanceService manages upkeep plans, their progress trail, incident
// reports and the maintenance staff roster.
type MaintenanceService interface {
	CreatePlan(ctx context.Context, in MaintenancePlanInput) (*MaintenancePlan, error)
	GetPlan(ctx context.Context, id int64) (*MaintenancePlan, error)
	ListPlans(ctx context.Context, warehouseID int64, status string) ([]MaintenancePlan, error)
	UpdatePlan(ctx context.Context, id int64, in MaintenancePlanInput) (*MaintenancePlan, error)
	DeletePlan(ctx context.Context, id int64) error

	AddProgress(ctx context.Context, planID int64, in ProgressInput) (*MaintenanceProgress, error)
	ListProgress(ctx context.Context, planID int64) ([]MaintenanceProgress, error)

	ReportIncident(ctx context.Context, in IncidentInput) (*Incident, error)
	GetIncident(ctx context.Context, id int64) (*Incident, error)
	ListIncidents(ctx context.Context, warehouseID int64, status string) ([]Incident, error)
	ResolveIncident(ctx context.Context, id int64, action, resolvedBy string) (*Incident, error)

	CreateStaff(ctx context.Context, in StaffInput) (*MaintenanceStaff, error)
	ListStaff(ctx context.Context) ([]MaintenanceStaff, error)
	UpdateStaff(ctx context.Context, id int64, in StaffInput) (*MaintenanceStaff, error)
	DeleteStaff(ctx context.Context, id int64) error

	Stats(ctx context.Context) (*MaintenanceStats, error)
}

type maintenanceService struct {
	pool *pgxpool.Pool
}

// NewMaintenanceService constructs a MaintenanceService backed by PostgreSQL.
func NewMaintenanceService(pool *pgxpool.Pool) MaintenanceService {
	return &maintenanceService{pool: pool}
}

var (
	planTypes      = map[string]bool{"preventive": true, "corrective": true, "emergency": true}
	planPriorities = map[string]bool{"low": true, "medium": true, "high": true, "urgent": true}
	planStatuses   = map[string]bool{"planned": true, "in_progress": true, "completed": true, "cancelled": true}
	incidentTypes  = map[string]bool{"equipment": true, "electrical": true, "structural": true, "safety": true, "other": true}
	severities     = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}
)

func (in *MaintenancePlanInput) validate() error {
	if in.WarehouseID == 0 {
		return &ValidationError{Field: "warehouseId", Reason: "is required"}
	}
	if in.Title == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if in.Type == "" {
		in.Type = "preventive"
	}
	if !planTypes[in.Type] {
		return &ValidationError{Field: "type", Reason: "must be one of preventive, corrective, emergency"}
	}
	if in.Priority == "" {
		in.Priority = "medium"
	}
	if !planPriorities[in.Priority] {
		return &ValidationError{Field: "priority", Reason: "must be one of low, medium, high, urgent"}
	}
	if in.PlannedDate.IsZero() {
		return &ValidationError{Field: "plannedDate", Reason: "is required"}
	}
	if in.EstimatedDuration <= 0 {
		in.EstimatedDuration = 1
	}
	if in.EstimatedCost.IsNegative() {
		return &ValidationError{Field: "estimatedCost", Reason: "must not be negative"}
	}
	return nil
}

const planColumns = `
	mp.id, mp.warehouse_id, w.name, mp.title, mp.description, mp.type, mp.priority,
	mp.planned_date, mp.estimated_duration, mp.estimated_cost, mp.responsible_staff,
	mp.status, mp.notes, mp.created_at, mp.updated_at`

func scanPlan(row pgx.Row) (*MaintenancePlan, error) {
	var p MaintenancePlan
	if err := row.Scan(
		&p.ID, &p.WarehouseID, &p.WarehouseName, &p.Title, &p.Description, &p.Type, &p.Priority,
		&p.PlannedDate, &p.EstimatedDuration, &p.EstimatedCost, &p.ResponsibleStaff,
		&p.Status, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *maintenanceService) CreatePlan(ctx context.Context, in MaintenancePlanInput) (*MaintenancePlan, error) {
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
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO maintenance_plans (warehouse_id, title, description, type, priority, planned_date, estimated_duration, estimated_cost, responsible_staff, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		in.WarehouseID, in.Title, nullable(in.Description), in.Type, in.Priority, in.PlannedDate,
		in.EstimatedDuration, in.EstimatedCost, nullable(in.ResponsibleStaff), nullable(in.Notes)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create maintenance plan: %w", err)
	}
	return s.GetPlan(ctx, id)
}

func (s *maintenanceService) GetPlan(ctx context.Context, id int64) (*MaintenancePlan, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+planColumns+`
		FROM maintenance_plans mp
		JOIN warehouses w ON w.id = mp.warehouse_id
		WHERE mp.id = $1`, id)
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "maintenance plan", ID: id}
		}
		return nil, fmt.Errorf("get maintenance plan %d: %w", id, err)
	}
	return p, nil
}

func (s *maintenanceService) ListPlans(ctx context.Context, warehouseID int64, status string) ([]MaintenancePlan, error) {
	query := `
		SELECT ` + planColumns + `
		FROM maintenance_plans mp
		JOIN warehouses w ON w.id = mp.warehouse_id
		WHERE 1=1`
	args := []any{}
	if warehouseID != 0 {
		args = append(args, warehouseID)
		query += fmt.Sprintf(" AND mp.warehouse_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND mp.status = $%d", len(args))
	}
	query += " ORDER BY mp.planned_date DESC, mp.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list maintenance plans: %w", err)
	}
	defer rows.Close()

	var out []MaintenancePlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan maintenance plan: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *maintenanceService) UpdatePlan(ctx context.Context, id int64, in MaintenancePlanInput) (*MaintenancePlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE maintenance_plans
		SET warehouse_id = $1, title = $2, description = $3, type = $4, priority = $5,
		    planned_date = $6, estimated_duration = $7, estimated_cost = $8,
		    responsible_staff = $9, notes = $10, updated_at = NOW()
		WHERE id = $11`,
		in.WarehouseID, in.Title, nullable(in.Description), in.Type, in.Priority, in.PlannedDate,
		in.EstimatedDuration, in.EstimatedCost, nullable(in.ResponsibleStaff), nullable(in.Notes), id)
	if err != nil {
		return nil, fmt.Errorf("update maintenance plan %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Resource: "maintenance plan", ID: id}
	}
	return s.GetPlan(ctx, id)
}

func (s *maintenanceService) DeletePlan(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM maintenance_progress WHERE plan_id = $1", id); err != nil {
		return fmt.Errorf("delete plan progress: %w", err)
	}
	tag, err := tx.Exec(ctx, "DELETE FROM maintenance_plans WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete maintenance plan %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "maintenance plan", ID: id}
	}
	return tx.Commit(ctx)
}

// AddProgress appends a progress entry and syncs the plan's status in the
// same transaction, so a plan can never disagree with its latest entry.
func (s *maintenanceService) AddProgress(ctx context.Context, planID int64, in ProgressInput) (*MaintenanceProgress, error) {
	if !planStatuses[in.Status] {
		return nil, &ValidationError{Field: "status", Reason: "must be one of planned, in_progress, completed, cancelled"}
	}
	if in.ProgressPercent < 0 || in.ProgressPercent > 100 {
		return nil, &ValidationError{Field: "progressPercent", Reason: "must be between 0 and 100"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM maintenance_plans WHERE id = $1)", planID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check plan: %w", err)
	}
	if !exists {
		return nil, &NotFoundError{Resource: "maintenance plan", ID: planID}
	}

	var p MaintenanceProgress
	err = tx.QueryRow(ctx, `
		INSERT INTO maintenance_progress (plan_id, status, progress_percent, actual_start_date, actual_end_date, actual_cost, notes, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, plan_id, status, progress_percent, actual_start_date, actual_end_date, actual_cost, notes, updated_by, updated_at`,
		planID, in.Status, in.ProgressPercent, in.ActualStartDate, in.ActualEndDate,
		in.ActualCost, nullable(in.Notes), nullable(in.UpdatedBy)).Scan(
		&p.ID, &p.PlanID, &p.Status, &p.ProgressPercent, &p.ActualStartDate, &p.ActualEndDate,
		&p.ActualCost, &p.Notes, &p.UpdatedBy, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("add progress for plan %d: %w", planID, err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE maintenance_plans SET status = $1, updated_at = NOW() WHERE id = $2",
		in.Status, planID); err != nil {
		return nil, fmt.Errorf("sync plan status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit progress: %w", err)
	}
	return &p, nil
}

func (s *maintenanceService) ListProgress(ctx context.Context, planID int64) ([]MaintenanceProgress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, plan_id, status, progress_percent, actual_start_date, actual_end_date, actual_cost, notes, updated_by, updated_at
		FROM maintenance_progress
		WHERE plan_id = $1
		ORDER BY updated_at DESC, id DESC`, planID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []MaintenanceProgress
	for rows.Next() {
		var p MaintenanceProgress
		if err := rows.Scan(&p.ID, &p.PlanID, &p.Status, &p.ProgressPercent, &p.ActualStartDate,
			&p.ActualEndDate, &p.ActualCost, &p.Notes, &p.UpdatedBy, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (in *IncidentInput) validate() error {
	if in.WarehouseID == 0 {
		return &ValidationError{Field: "warehouseId", Reason: "is required"}
	}
	if in.Title == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if in.Type == "" {
		in.Type = "equipment"
	}
	if !incidentTypes[in.Type] {
		return &ValidationError{Field: "type", Reason: "must be one of equipment, electrical, structural, safety, other"}
	}
	if in.Severity == "" {
		in.Severity = "medium"
	}
	if !severities[in.Severity] {
		return &ValidationError{Field: "severity", Reason: "must be one of low, medium, high, critical"}
	}
	return nil
}

const incidentColumns = `
	i.id, i.warehouse_id, w.name, i.title, i.description, i.type, i.severity, i.reported_at,
	i.reporter, i.phone, i.status, i.action, i.resolved_at, i.resolved_by, i.created_at, i.updated_at`

func scanIncident(row pgx.Row) (*Incident, error) {
	var inc Incident
	if err := row.Scan(
		&inc.ID, &inc.WarehouseID, &inc.WarehouseName, &inc.Title, &inc.Description, &inc.Type,
		&inc.Severity, &inc.ReportedAt, &inc.Reporter, &inc.Phone, &inc.Status, &inc.Action,
		&inc.ResolvedAt, &inc.ResolvedBy, &inc.CreatedAt, &inc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &inc, nil
}

func (s *maintenanceService) ReportIncident(ctx context.Context, in IncidentInput) (*Incident, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO incidents (warehouse_id, title, description, type, severity, reporter, phone, action)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		in.WarehouseID, in.Title, nullable(in.Description), in.Type, in.Severity,
		nullable(in.Reporter), nullable(in.Phone), nullable(in.Action)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("report incident: %w", err)
	}
	return s.GetIncident(ctx, id)
}

func (s *maintenanceService) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+incidentColumns+`
		FROM incidents i
		JOIN warehouses w ON w.id = i.warehouse_id
		WHERE i.id = $1`, id)
	inc, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "incident", ID: id}
		}
		return nil, fmt.Errorf("get incident %d: %w", id, err)
	}
	return inc, nil
}

func (s *maintenanceService) ListIncidents(ctx context.Context, warehouseID int64, status string) ([]Incident, error) {
	query := `
		SELECT ` + incidentColumns + `
		FROM incidents i
		JOIN warehouses w ON w.id = i.warehouse_id
		WHERE 1=1`
	args := []any{}
	if warehouseID != 0 {
		args = append(args, warehouseID)
		query += fmt.Sprintf(" AND i.warehouse_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND i.status = $%d", len(args))
	}
	query += " ORDER BY i.reported_at DESC, i.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, *inc)
	}
	return out, rows.Err()
}

func (s *maintenanceService) ResolveIncident(ctx context.Context, id int64, action, resolvedBy string) (*Incident, error) {
	if action == "" {
		return nil, &ValidationError{Field: "action", Reason: "is required"}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE incidents
		SET status = 'resolved', action = $1, resolved_at = NOW(), resolved_by = $2, updated_at = NOW()
		WHERE id = $3`, action, nullable(resolvedBy), id)
	if err != nil {
		return nil, fmt.Errorf("resolve incident %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Resource: "incident", ID: id}
	}
	return s.GetIncident(ctx, id)
}

func (in *StaffInput) validate() error {
	if in.Code == "" {
		return &ValidationError{Field: "code", Reason: "is required"}
	}
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if in.Status == "" {
		in.Status = "active"
	}
	if in.Status != "active" && in.Status != "inactive" {
		return &ValidationError{Field: "status", Reason: "must be active or inactive"}
	}
	return nil
}

const staffColumns = `
	id, code, name, position, specialty, phone, email, status, notes, created_at, updated_at`

func scanStaff(row pgx.Row) (*MaintenanceStaff, error) {
	var st MaintenanceStaff
	if err := row.Scan(
		&st.ID, &st.Code, &st.Name, &st.Position, &st.Specialty, &st.Phone, &st.Email,
		&st.Status, &st.Notes, &st.CreatedAt, &st.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *maintenanceService) CreateStaff(ctx context.Context, in StaffInput) (*MaintenanceStaff, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO maintenance_staff (code, name, position, specialty, phone, email, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+staffColumns,
		in.Code, in.Name, nullable(in.Position), nullable(in.Specialty),
		nullable(in.Phone), nullable(in.Email), in.Status, nullable(in.Notes))
	st, err := scanStaff(row)
	if err != nil {
		if dup := asDuplicate(err, "maintenance staff", "code", in.Code); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("create staff %q: %w", in.Code, err)
	}
	return st, nil
}

func (s *maintenanceService) ListStaff(ctx context.Context) ([]MaintenanceStaff, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+staffColumns+" FROM maintenance_staff ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []MaintenanceStaff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *maintenanceService) UpdateStaff(ctx context.Context, id int64, in StaffInput) (*MaintenanceStaff, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE maintenance_staff
		SET code = $1, name = $2, position = $3, specialty = $4, phone = $5, email = $6,
		    status = $7, notes = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING `+staffColumns,
		in.Code, in.Name, nullable(in.Position), nullable(in.Specialty),
		nullable(in.Phone), nullable(in.Email), in.Status, nullable(in.Notes), id)
	st, err := scanStaff(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Resource: "maintenance staff", ID: id}
		}
		if dup := asDuplicate(err, "maintenance staff", "code", in.Code); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update staff %d: %w", id, err)
	}
	return st, nil
}

func (s *maintenanceService) DeleteStaff(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM maintenance_staff WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete staff %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Resource: "maintenance staff", ID: id}
	}
	return nil
}

func (s *maintenanceService) Stats(ctx context.Context) (*MaintenanceStats, error) {
	var st MaintenanceStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'planned'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status IN ('planned', 'in_progress') AND planned_date < CURRENT_DATE),
			COALESCE(SUM(estimated_cost), 0)
		FROM maintenance_plans`).Scan(
		&st.PlannedCount, &st.InProgressCount, &st.CompletedCount, &st.OverdueCount, &st.TotalEstimated)
	if err != nil {
		return nil, fmt.Errorf("maintenance stats: %w", err)
	}
	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status IN ('reported', 'investigating')),
			COUNT(*) FILTER (WHERE status IN ('reported', 'investigating') AND severity = 'critical')
		FROM incidents`).Scan(&st.OpenIncidents, &st.CriticalOpen)
	if err != nil {
		return nil, fmt.Errorf("incident stats: %w", err)
	}
	err = s.pool.QueryRow(ctx,
		"SELECT COALESCE(SUM(actual_cost), 0) FROM maintenance_progress").Scan(&st.TotalActual)
	if err != nil {
		return nil, fmt.Errorf("progress cost stats: %w", err)
	}
	return &st, nil
}
