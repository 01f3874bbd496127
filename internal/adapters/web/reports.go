package web

import (
	"net/http"

	"github.com/shopspring/decimal"
)

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.app.Dashboard(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, d)
}

func (h *Handler) inventoryByWarehouse(w http.ResponseWriter, r *http.Request) {
	report, err := h.app.Reports.InventoryByWarehouse(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) movementTimeline(w http.ResponseWriter, r *http.Request) {
	points, err := h.app.Reports.MovementTimeline(r.Context(), intQuery(r, "days", 30))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, points)
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	top, err := h.app.Reports.TopOutboundProducts(r.Context(), intQuery(r, "days", 30), intQuery(r, "limit", 10))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, top)
}

func (h *Handler) warehousePerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.app.Reports.WarehousePerformance(r.Context(), intQuery(r, "days", 30))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, perf)
}

func (h *Handler) storageCost(w http.ResponseWriter, r *http.Request) {
	rate, err := decimalQuery(r, "rate", decimal.NewFromInt(1))
	if err != nil {
		respondError(w, r, err)
		return
	}
	report, err := h.app.Reports.StorageCost(r.Context(), rate)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) transferReport(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.app.Reports.Transfers(r.Context(), intQuery(r, "days", 30))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, transfers)
}

func (h *Handler) adjustmentReport(w http.ResponseWriter, r *http.Request) {
	adjustments, err := h.app.Reports.Adjustments(r.Context(), intQuery(r, "days", 30))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, adjustments)
}
