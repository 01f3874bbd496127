package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"warehouse-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

func TestMaintenance_PlanLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	maintenance := core.NewMaintenanceService(pool)
	ctx := context.Background()

	plan, err := maintenance.CreatePlan(ctx, core.MaintenancePlanInput{
		WarehouseID: 1, Title: "Forklift overhaul",
		Type: "preventive", Priority: "medium",
		PlannedDate:   time.Now().AddDate(0, 0, 14),
		EstimatedCost: decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if plan.Status != "planned" {
		t.Errorf("expected new plan status planned, got %q", plan.Status)
	}

	// Progress entries drive the plan status.
	if _, err := maintenance.AddProgress(ctx, plan.ID, core.ProgressInput{
		Status: "in_progress", ProgressPercent: 40, UpdatedBy: "Tran Van Minh",
	}); err != nil {
		t.Fatalf("AddProgress failed: %v", err)
	}
	plan, err = maintenance.GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if plan.Status != "in_progress" {
		t.Errorf("expected plan status in_progress after progress entry, got %q", plan.Status)
	}

	if _, err := maintenance.AddProgress(ctx, plan.ID, core.ProgressInput{
		Status: "completed", ProgressPercent: 100,
		ActualCost: decimal.NewFromInt(4200), UpdatedBy: "Tran Van Minh",
	}); err != nil {
		t.Fatalf("completing progress failed: %v", err)
	}

	trail, err := maintenance.ListProgress(ctx, plan.ID)
	if err != nil {
		t.Fatalf("ListProgress failed: %v", err)
	}
	if len(trail) != 2 {
		t.Errorf("expected 2 progress entries, got %d", len(trail))
	}

	var validation *core.ValidationError
	if _, err := maintenance.CreatePlan(ctx, core.MaintenancePlanInput{
		WarehouseID: 1, Title: "Bad type", Type: "cosmetic", Priority: "medium",
		PlannedDate: time.Now(),
	}); !errors.As(err, &validation) {
		t.Errorf("expected ValidationError for unknown plan type, got %v", err)
	}
}

func TestMaintenance_IncidentResolution(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	maintenance := core.NewMaintenanceService(pool)
	ctx := context.Background()

	incident, err := maintenance.ReportIncident(ctx, core.IncidentInput{
		WarehouseID: 1, Title: "Roof leak over aisle A",
		Type: "structural", Severity: "high", Reporter: "Nguyen Thi Lan",
	})
	if err != nil {
		t.Fatalf("ReportIncident failed: %v", err)
	}
	if incident.Status != "reported" {
		t.Errorf("expected new incident status reported, got %q", incident.Status)
	}

	resolved, err := maintenance.ResolveIncident(ctx, incident.ID, "Patched membrane, scheduled full repair", "Tran Van Minh")
	if err != nil {
		t.Fatalf("ResolveIncident failed: %v", err)
	}
	if resolved.Status != "resolved" {
		t.Errorf("expected status resolved, got %q", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Error("expected resolved_at to be set")
	}

	open, err := maintenance.ListIncidents(ctx, 1, "reported")
	if err != nil {
		t.Fatalf("ListIncidents failed: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("expected no open incidents after resolution, got %d", len(open))
	}
}

func TestMaintenance_StaffAndStats(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	maintenance := core.NewMaintenanceService(pool)
	ctx := context.Background()

	staff, err := maintenance.CreateStaff(ctx, core.StaffInput{
		Code: "MS-001", Name: "Tran Van Minh", Position: "Technician", Specialty: "electrical",
	})
	if err != nil {
		t.Fatalf("CreateStaff failed: %v", err)
	}
	if staff.Status != "active" {
		t.Errorf("expected default staff status active, got %q", staff.Status)
	}

	_, err = maintenance.CreateStaff(ctx, core.StaffInput{Code: "MS-001", Name: "Duplicate"})
	var duplicate *core.DuplicateKeyError
	if !errors.As(err, &duplicate) {
		t.Fatalf("expected DuplicateKeyError for repeated staff code, got %v", err)
	}

	// One overdue plan and one critical open incident for the stats fold.
	if _, err := maintenance.CreatePlan(ctx, core.MaintenancePlanInput{
		WarehouseID: 1, Title: "Overdue inspection",
		Type: "preventive", Priority: "high",
		PlannedDate:   time.Now().AddDate(0, 0, -7),
		EstimatedCost: decimal.NewFromInt(1000),
	}); err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if _, err := maintenance.ReportIncident(ctx, core.IncidentInput{
		WarehouseID: 1, Title: "Main breaker tripping",
		Type: "electrical", Severity: "critical", Reporter: "Nguyen Thi Lan",
	}); err != nil {
		t.Fatalf("ReportIncident failed: %v", err)
	}

	stats, err := maintenance.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.PlannedCount != 1 {
		t.Errorf("expected 1 planned, got %d", stats.PlannedCount)
	}
	if stats.OverdueCount != 1 {
		t.Errorf("expected 1 overdue, got %d", stats.OverdueCount)
	}
	if stats.OpenIncidents != 1 || stats.CriticalOpen != 1 {
		t.Errorf("expected 1 open / 1 critical incident, got %d / %d", stats.OpenIncidents, stats.CriticalOpen)
	}
	if !stats.TotalEstimated.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected estimated total 1000, got %s", stats.TotalEstimated)
	}
}
