package web

import (
	"encoding/json"
	"net/http"

	"warehouse-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// ── Warehouses ───────────────────────────────────────────────────────────────

type warehouseRequest struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	Country     string          `json:"country"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email"`
	Manager     string          `json:"manager"`
	TotalArea   decimal.Decimal `json:"total_area"`
	Type        string          `json:"type"`
	RentalPrice decimal.Decimal `json:"rental_price"`
	Notes       string          `json:"notes"`
}

func (req *warehouseRequest) input() core.WarehouseInput {
	return core.WarehouseInput{
		Code:        req.Code,
		Name:        req.Name,
		Address:     req.Address,
		City:        req.City,
		Country:     req.Country,
		Phone:       req.Phone,
		Email:       req.Email,
		Manager:     req.Manager,
		TotalArea:   req.TotalArea,
		Type:        core.WarehouseType(req.Type),
		RentalPrice: req.RentalPrice,
		Notes:       req.Notes,
	}
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var req warehouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	wh, err := h.app.Warehouses.Create(r.Context(), req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, wh)
}

func (h *Handler) getWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	wh, err := h.app.Warehouses.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, wh)
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.app.Warehouses.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, warehouses)
}

func (h *Handler) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req warehouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	wh, err := h.app.Warehouses.Update(r.Context(), id, req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, wh)
}

func (h *Handler) deleteWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.app.Warehouses.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) warehouseStats(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	stats, err := h.app.Warehouses.Stats(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, stats)
}

func (h *Handler) updateUsedArea(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req struct {
		UsedArea decimal.Decimal `json:"used_area"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	if err := h.app.Warehouses.UpdateUsedArea(r.Context(), id, req.UsedArea); err != nil {
		respondError(w, r, err)
		return
	}
	wh, err := h.app.Warehouses.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, wh)
}

// ── Locations ────────────────────────────────────────────────────────────────

type locationRequest struct {
	WarehouseID int64           `json:"warehouse_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Area        decimal.Decimal `json:"area"`
	Capacity    decimal.Decimal `json:"capacity"`
	Notes       string          `json:"notes"`
}

func (req *locationRequest) input() core.LocationInput {
	return core.LocationInput{
		WarehouseID: req.WarehouseID,
		Code:        req.Code,
		Name:        req.Name,
		Type:        req.Type,
		Area:        req.Area,
		Capacity:    req.Capacity,
		Notes:       req.Notes,
	}
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	loc, err := h.app.Locations.Create(r.Context(), req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, loc)
}

func (h *Handler) getLocation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	loc, err := h.app.Locations.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, loc)
}

// listLocations handles GET /api/warehouses/{id}/locations.
func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	locs, err := h.app.Locations.ListByWarehouse(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, locs)
}

func (h *Handler) listAvailableLocations(w http.ResponseWriter, r *http.Request) {
	var warehouseID *int64
	if id := int64Query(r, "warehouse_id"); id != 0 {
		warehouseID = &id
	}
	locs, err := h.app.Locations.ListAvailable(r.Context(), warehouseID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, locs)
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	loc, err := h.app.Locations.Update(r.Context(), id, req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, loc)
}

func (h *Handler) updateLocationStatus(w http.ResponseWriter, r *http.Request) {
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
	if err := h.app.Locations.UpdateStatus(r.Context(), id, core.LocationStatus(req.Status)); err != nil {
		respondError(w, r, err)
		return
	}
	loc, err := h.app.Locations.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, loc)
}

func (h *Handler) deleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.app.Locations.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Products ─────────────────────────────────────────────────────────────────

type productRequest struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Manufacturer string          `json:"manufacturer"`
	Category     string          `json:"category"`
	Unit         string          `json:"unit"`
	WarehouseID  *int64          `json:"warehouse_id"`
	LocationID   *int64          `json:"location_id"`
	MinStock     decimal.Decimal `json:"min_stock"`
	MaxStock     decimal.Decimal `json:"max_stock"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Notes        string          `json:"notes"`
}

func (req *productRequest) input() core.ProductInput {
	return core.ProductInput{
		SKU:          req.SKU,
		Name:         req.Name,
		Description:  req.Description,
		Manufacturer: req.Manufacturer,
		Category:     req.Category,
		Unit:         req.Unit,
		WarehouseID:  req.WarehouseID,
		LocationID:   req.LocationID,
		MinStock:     req.MinStock,
		MaxStock:     req.MaxStock,
		UnitPrice:    req.UnitPrice,
		Notes:        req.Notes,
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	p, err := h.app.Products.Create(r.Context(), req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.app.Products.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, p)
}

// listProducts returns all products, or a keyword search when ?q= is present.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []core.Product
		err      error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		products, err = h.app.Products.Search(r.Context(), q)
	} else {
		products, err = h.app.Products.List(r.Context())
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, products)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	p, err := h.app.Products.Update(r.Context(), id, req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.app.Products.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Customers ────────────────────────────────────────────────────────────────

type customerRequest struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	ContactPerson string          `json:"contact_person"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	Country       string          `json:"country"`
	TaxCode       string          `json:"tax_code"`
	CreditLimit   decimal.Decimal `json:"credit_limit"`
	Notes         string          `json:"notes"`
}

func (req *customerRequest) input() core.CustomerInput {
	return core.CustomerInput{
		Code:          req.Code,
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		City:          req.City,
		Country:       req.Country,
		TaxCode:       req.TaxCode,
		CreditLimit:   req.CreditLimit,
		Notes:         req.Notes,
	}
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	c, err := h.app.Customers.Create(r.Context(), req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, c)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	c, err := h.app.Customers.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, c)
}

// listCustomers returns all customers, or a keyword search when ?q= is present.
func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	var (
		customers []core.Customer
		err       error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		customers, err = h.app.Customers.Search(r.Context(), q)
	} else {
		customers, err = h.app.Customers.List(r.Context())
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, customers)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	c, err := h.app.Customers.Update(r.Context(), id, req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.app.Customers.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
