package web

import (
	"encoding/json"
	"net/http"
	"time"

	"warehouse-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

type invoiceItemRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Notes     string          `json:"notes"`
}

type invoiceRequest struct {
	InvoiceNumber string               `json:"invoice_number"`
	CustomerID    int64                `json:"customer_id"`
	InvoiceDate   *time.Time           `json:"invoice_date"`
	DueDate       *time.Time           `json:"due_date"`
	TaxRate       decimal.Decimal      `json:"tax_rate"`
	Status        string               `json:"status"`
	Notes         string               `json:"notes"`
	Items         []invoiceItemRequest `json:"items"`
}

func (req *invoiceRequest) input() core.InvoiceInput {
	in := core.InvoiceInput{
		InvoiceNumber: req.InvoiceNumber,
		CustomerID:    req.CustomerID,
		DueDate:       req.DueDate,
		TaxRate:       req.TaxRate,
		Status:        req.Status,
		Notes:         req.Notes,
	}
	if req.InvoiceDate != nil {
		in.InvoiceDate = *req.InvoiceDate
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, core.InvoiceItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Notes:     item.Notes,
		})
	}
	return in
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	inv, err := h.app.Invoices.Create(r.Context(), req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, inv)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	inv, err := h.app.Invoices.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.app.Invoices.List(r.Context(), r.URL.Query().Get("status"), int64Query(r, "customer_id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, invoices)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req invoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	inv, err := h.app.Invoices.Update(r.Context(), id, req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) updateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	inv, err := h.app.Invoices.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.app.Invoices.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invoiceSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.app.Invoices.Summary(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, sum)
}

func (h *Handler) monthlyInvoiceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Invoices.MonthlyStats(r.Context(), intQuery(r, "months", 12))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, stats)
}
