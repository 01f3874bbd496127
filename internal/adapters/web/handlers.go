package web

import (
	"net/http"
	"strconv"

	"warehouse-backoffice/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the application facade and the chi router.
type Handler struct {
	app    *app.App
	logger *zap.Logger
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(a *app.App, logger *zap.Logger, allowedOrigins string) http.Handler {
	h := &Handler{app: a, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Get("/api/health", h.health)

	// Ledger
	r.Route("/api/transactions", func(r chi.Router) {
		r.Get("/", h.listMovements)
		r.Post("/", h.createMovement)
		r.Post("/transfer", h.createTransfer)
		r.Post("/adjustment", h.createAdjustment)
		r.Post("/stocktake", h.createStocktake)
		r.Get("/summary", h.movementSummary)
		r.Get("/daily", h.dailyActivity)
		r.Get("/{id}", h.getMovement)
		r.Put("/{id}", h.updateMovement)
		r.Delete("/{id}", h.deleteMovement)
	})

	// Derived stock
	r.Route("/api/stock", func(r chi.Router) {
		r.Get("/alerts", h.lowStockAlerts)
		r.Get("/product/{id}", h.productStock)
		r.Get("/warehouse/{id}", h.warehouseStock)
		r.Get("/on-hand", h.onHand)
	})

	// Registries
	r.Route("/api/warehouses", func(r chi.Router) {
		r.Get("/", h.listWarehouses)
		r.Post("/", h.createWarehouse)
		r.Get("/{id}", h.getWarehouse)
		r.Put("/{id}", h.updateWarehouse)
		r.Delete("/{id}", h.deleteWarehouse)
		r.Get("/{id}/stats", h.warehouseStats)
		r.Patch("/{id}/used-area", h.updateUsedArea)
		r.Get("/{id}/locations", h.listLocations)
	})
	r.Route("/api/locations", func(r chi.Router) {
		r.Get("/available", h.listAvailableLocations)
		r.Post("/", h.createLocation)
		r.Get("/{id}", h.getLocation)
		r.Put("/{id}", h.updateLocation)
		r.Patch("/{id}/status", h.updateLocationStatus)
		r.Delete("/{id}", h.deleteLocation)
	})
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})
	r.Route("/api/customers", func(r chi.Router) {
		r.Get("/", h.listCustomers)
		r.Post("/", h.createCustomer)
		r.Get("/{id}", h.getCustomer)
		r.Put("/{id}", h.updateCustomer)
		r.Delete("/{id}", h.deleteCustomer)
	})

	// Invoices
	r.Route("/api/invoices", func(r chi.Router) {
		r.Get("/", h.listInvoices)
		r.Post("/", h.createInvoice)
		r.Get("/summary", h.invoiceSummary)
		r.Get("/monthly", h.monthlyInvoiceStats)
		r.Get("/{id}", h.getInvoice)
		r.Put("/{id}", h.updateInvoice)
		r.Patch("/{id}/status", h.updateInvoiceStatus)
		r.Delete("/{id}", h.deleteInvoice)
	})

	// Maintenance
	r.Route("/api/maintenance", func(r chi.Router) {
		r.Get("/plans", h.listPlans)
		r.Post("/plans", h.createPlan)
		r.Get("/plans/{id}", h.getPlan)
		r.Put("/plans/{id}", h.updatePlan)
		r.Delete("/plans/{id}", h.deletePlan)
		r.Get("/plans/{id}/progress", h.listProgress)
		r.Post("/plans/{id}/progress", h.addProgress)
		r.Get("/incidents", h.listIncidents)
		r.Post("/incidents", h.reportIncident)
		r.Get("/incidents/{id}", h.getIncident)
		r.Post("/incidents/{id}/resolve", h.resolveIncident)
		r.Get("/staff", h.listStaff)
		r.Post("/staff", h.createStaff)
		r.Put("/staff/{id}", h.updateStaff)
		r.Delete("/staff/{id}", h.deleteStaff)
		r.Get("/stats", h.maintenanceStats)
	})

	// Reports
	r.Route("/api/reports", func(r chi.Router) {
		r.Get("/dashboard", h.dashboard)
		r.Get("/inventory", h.inventoryByWarehouse)
		r.Get("/timeline", h.movementTimeline)
		r.Get("/top-products", h.topProducts)
		r.Get("/performance", h.warehousePerformance)
		r.Get("/storage-cost", h.storageCost)
		r.Get("/transfers", h.transferReport)
		r.Get("/adjustments", h.adjustmentReport)
	})

	// Assistant
	r.Route("/api/assistant", func(r chi.Router) {
		r.Post("/movements", h.interpretMovement)
		r.Post("/movements/apply", h.applyProposal)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// intQuery parses an integer query parameter, falling back to def when absent
// or malformed.
func intQuery(r *http.Request, name string, def int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return def
}

// int64Query parses an int64 query parameter, returning 0 when absent.
func int64Query(r *http.Request, name string) int64 {
	if raw := r.URL.Query().Get(name); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
