package web

import (
	"encoding/json"
	"net/http"
	"time"

	"warehouse-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

type planRequest struct {
	WarehouseID       int64           `json:"warehouse_id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Type              string          `json:"type"`
	Priority          string          `json:"priority"`
	PlannedDate       *time.Time      `json:"planned_date"`
	EstimatedDuration int             `json:"estimated_duration"`
	EstimatedCost     decimal.Decimal `json:"estimated_cost"`
	ResponsibleStaff  string          `json:"responsible_staff"`
	Notes             string          `json:"notes"`
}

func (req *planRequest) input() core.MaintenancePlanInput {
	in := core.MaintenancePlanInput{
		WarehouseID:       req.WarehouseID,
		Title:             req.Title,
		Description:       req.Description,
		Type:              req.Type,
		Priority:          req.Priority,
		EstimatedDuration: req.EstimatedDuration,
		EstimatedCost:     req.EstimatedCost,
		ResponsibleStaff:  req.ResponsibleStaff,
		Notes:             req.Notes,
	}
	if req.PlannedDate != nil {
		in.PlannedDate = *req.PlannedDate
	}
	return in
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	p, err := h.app.Maintenance.CreatePlan(r.Context(), req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.app.Maintenance.GetPlan(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.app.Maintenance.ListPlans(r.Context(), int64Query(r, "warehouse_id"), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, plans)
}

func (h *Handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	p, err := h.app.Maintenance.UpdatePlan(r.Context(), id, req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) deletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.app.Maintenance.DeletePlan(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type progressRequest struct {
	Status          string          `json:"status"`
	ProgressPercent int             `json:"progress_percent"`
	ActualStartDate *time.Time      `json:"actual_start_date"`
	ActualEndDate   *time.Time      `json:"actual_end_date"`
	ActualCost      decimal.Decimal `json:"actual_cost"`
	Notes           string          `json:"notes"`
	UpdatedBy       string          `json:"updated_by"`
}

func (h *Handler) addProgress(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	p, err := h.app.Maintenance.AddProgress(r.Context(), id, core.ProgressInput{
		Status:          req.Status,
		ProgressPercent: req.ProgressPercent,
		ActualStartDate: req.ActualStartDate,
		ActualEndDate:   req.ActualEndDate,
		ActualCost:      req.ActualCost,
		Notes:           req.Notes,
		UpdatedBy:       req.UpdatedBy,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

func (h *Handler) listProgress(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	entries, err := h.app.Maintenance.ListProgress(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, entries)
}

type incidentRequest struct {
	WarehouseID int64  `json:"warehouse_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Reporter    string `json:"reporter"`
	Phone       string `json:"phone"`
	Action      string `json:"action"`
}

func (h *Handler) reportIncident(w http.ResponseWriter, r *http.Request) {
	var req incidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	inc, err := h.app.Maintenance.ReportIncident(r.Context(), core.IncidentInput{
		WarehouseID: req.WarehouseID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Severity:    req.Severity,
		Reporter:    req.Reporter,
		Phone:       req.Phone,
		Action:      req.Action,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, inc)
}

func (h *Handler) getIncident(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	inc, err := h.app.Maintenance.GetIncident(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, inc)
}

func (h *Handler) listIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.app.Maintenance.ListIncidents(r.Context(), int64Query(r, "warehouse_id"), r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, incidents)
}

func (h *Handler) resolveIncident(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req struct {
		Action     string `json:"action"`
		ResolvedBy string `json:"resolved_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	inc, err := h.app.Maintenance.ResolveIncident(r.Context(), id, req.Action, req.ResolvedBy)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, inc)
}

type staffRequest struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Position  string `json:"position"`
	Specialty string `json:"specialty"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

func (req *staffRequest) input() core.StaffInput {
	return core.StaffInput{
		Code:      req.Code,
		Name:      req.Name,
		Position:  req.Position,
		Specialty: req.Specialty,
		Phone:     req.Phone,
		Email:     req.Email,
		Status:    req.Status,
		Notes:     req.Notes,
	}
}

func (h *Handler) createStaff(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	st, err := h.app.Maintenance.CreateStaff(r.Context(), req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, st)
}

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.app.Maintenance.ListStaff(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, staff)
}

func (h *Handler) updateStaff(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req staffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	st, err := h.app.Maintenance.UpdateStaff(r.Context(), id, req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, st)
}

func (h *Handler) deleteStaff(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.app.Maintenance.DeleteStaff(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) maintenanceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Maintenance.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, stats)
}
