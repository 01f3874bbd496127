package web

import (
	"encoding/json"
	"net/http"
	"time"

	"warehouse-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

type movementRequest struct {
	Type        string          `json:"type"`
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	LocationID  *int64          `json:"location_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Supplier    string          `json:"supplier"`
	Customer    string          `json:"customer"`
	Reference   string          `json:"reference"`
	Notes       string          `json:"notes"`
	Date        *time.Time      `json:"transaction_date"`
}

func (h *Handler) createMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	in := core.MovementInput{
		Type:        core.TransactionType(req.Type),
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		LocationID:  req.LocationID,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Supplier:    req.Supplier,
		Customer:    req.Customer,
		Reference:   req.Reference,
		Notes:       req.Notes,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	id, err := h.app.Ledger.RecordMovement(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	tx, err := h.app.Ledger.GetMovement(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, tx)
}

type transferRequest struct {
	ProductID       int64           `json:"product_id"`
	FromWarehouseID int64           `json:"from_warehouse_id"`
	ToWarehouseID   int64           `json:"to_warehouse_id"`
	FromLocationID  *int64          `json:"from_location_id"`
	ToLocationID    *int64          `json:"to_location_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Reference       string          `json:"reference"`
	Notes           string          `json:"notes"`
	Date            *time.Time      `json:"transaction_date"`
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	in := core.TransferInput{
		ProductID:       req.ProductID,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		FromLocationID:  req.FromLocationID,
		ToLocationID:    req.ToLocationID,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		Reference:       req.Reference,
		Notes:           req.Notes,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	res, err := h.app.Ledger.RecordTransfer(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, res)
}

type adjustmentRequest struct {
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	LocationID  *int64          `json:"location_id"`
	Quantity    decimal.Decimal `json:"quantity"` // signed
	Reason      string          `json:"reason"`
	Notes       string          `json:"notes"`
	Date        *time.Time      `json:"transaction_date"`
}

func (h *Handler) createAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	in := core.AdjustmentInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		LocationID:  req.LocationID,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		Notes:       req.Notes,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	id, err := h.app.Ledger.RecordAdjustment(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	tx, err := h.app.Ledger.GetMovement(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, tx)
}

type stocktakeRequest struct {
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	LocationID  *int64          `json:"location_id"`
	CountedQty  decimal.Decimal `json:"counted_quantity"`
	Reference   string          `json:"reference"`
	Notes       string          `json:"notes"`
	Date        *time.Time      `json:"transaction_date"`
}

func (h *Handler) createStocktake(w http.ResponseWriter, r *http.Request) {
	var req stocktakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	in := core.StocktakeInput{
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		LocationID:  req.LocationID,
		CountedQty:  req.CountedQty,
		Reference:   req.Reference,
		Notes:       req.Notes,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	id, err := h.app.Ledger.RecordStocktake(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if id == 0 {
		// Count matched the ledger, nothing was written.
		writeJSON(w, map[string]any{"reconciled": true, "variance": false})
		return
	}
	tx, err := h.app.Ledger.GetMovement(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, tx)
}

func (h *Handler) getMovement(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	tx, err := h.app.Ledger.GetMovement(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, tx)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	f := core.MovementFilter{Limit: intQuery(r, "limit", 0)}
	if t := r.URL.Query().Get("type"); t != "" {
		tt := core.TransactionType(t)
		f.Type = &tt
	}
	if id := int64Query(r, "product_id"); id != 0 {
		f.ProductID = &id
	}
	if id := int64Query(r, "warehouse_id"); id != 0 {
		f.WarehouseID = &id
	}
	if d, ok := dateQuery(r, "start_date"); ok {
		f.StartDate = &d
	}
	if d, ok := dateQuery(r, "end_date"); ok {
		f.EndDate = &d
	}
	txs, err := h.app.Ledger.ListMovements(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"transactions": txs, "count": len(txs)})
}

type movementUpdateRequest struct {
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Supplier  string          `json:"supplier"`
	Customer  string          `json:"customer"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
	Date      *time.Time      `json:"transaction_date"`
}

func (h *Handler) updateMovement(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req movementUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	u := core.MovementUpdate{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Supplier:  req.Supplier,
		Customer:  req.Customer,
		Reference: req.Reference,
		Notes:     req.Notes,
	}
	if req.Date != nil {
		u.Date = *req.Date
	}
	if err := h.app.Ledger.UpdateMovement(r.Context(), id, u); err != nil {
		respondError(w, r, err)
		return
	}
	tx, err := h.app.Ledger.GetMovement(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, tx)
}

func (h *Handler) deleteMovement(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.app.Ledger.DeleteMovement(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) movementSummary(w http.ResponseWriter, r *http.Request) {
	var warehouseID *int64
	if id := int64Query(r, "warehouse_id"); id != 0 {
		warehouseID = &id
	}
	var start, end *time.Time
	if d, ok := dateQuery(r, "start_date"); ok {
		start = &d
	}
	if d, ok := dateQuery(r, "end_date"); ok {
		end = &d
	}
	sum, err := h.app.Ledger.Summary(r.Context(), warehouseID, start, end)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, sum)
}

func (h *Handler) dailyActivity(w http.ResponseWriter, r *http.Request) {
	var warehouseID *int64
	if id := int64Query(r, "warehouse_id"); id != 0 {
		warehouseID = &id
	}
	days, err := h.app.Ledger.DailyActivity(r.Context(), warehouseID, intQuery(r, "days", 30))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, days)
}

// ── Derived stock ────────────────────────────────────────────────────────────

func (h *Handler) onHand(w http.ResponseWriter, r *http.Request) {
	productID := int64Query(r, "product_id")
	warehouseID := int64Query(r, "warehouse_id")
	if productID == 0 || warehouseID == 0 {
		respondError(w, r, &core.ValidationError{Field: "product_id/warehouse_id", Reason: "are required"})
		return
	}
	onHand, err := h.app.Stock.OnHand(r.Context(), productID, warehouseID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	status, err := h.app.Stock.Status(r.Context(), productID, warehouseID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	value, err := h.app.Stock.InventoryValue(r.Context(), productID, warehouseID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"product_id":   productID,
		"warehouse_id": warehouseID,
		"on_hand":      onHand,
		"status":       status,
		"value":        value,
	})
}

func (h *Handler) productStock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	ps, err := h.app.Stock.ProductStock(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, ps)
}

func (h *Handler) warehouseStock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	stock, err := h.app.Stock.WarehouseStock(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, stock)
}

func (h *Handler) lowStockAlerts(w http.ResponseWriter, r *http.Request) {
	var warehouseID *int64
	if id := int64Query(r, "warehouse_id"); id != 0 {
		warehouseID = &id
	}
	alerts, err := h.app.Stock.LowStockAlerts(r.Context(), warehouseID, intQuery(r, "limit", 10))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, alerts)
}

// dateQuery parses a query parameter as RFC 3339 or YYYY-MM-DD.
func dateQuery(r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		return d, true
	}
	if d, err := time.Parse("2006-01-02", raw); err == nil {
		return d, true
	}
	return time.Time{}, false
}
