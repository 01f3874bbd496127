package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"warehouse-backoffice/internal/app"
	"warehouse-backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// errBadID rejects non-numeric or non-positive {id} URL parameters.
var errBadID = &core.ValidationError{Field: "id", Reason: "must be a positive integer"}

type errorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorDetails(w, r, message, code, status, nil)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, message, code string, status int, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
		Details:   details,
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps the domain error taxonomy onto HTTP statuses. Anything
// unrecognized becomes a 500 without leaking internals.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound     *core.NotFoundError
		duplicate    *core.DuplicateKeyError
		insufficient *core.InsufficientStockError
		validation   *core.ValidationError
		conflict     *core.DependencyConflictError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, r, validation.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
	case errors.As(err, &notFound):
		writeError(w, r, notFound.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.As(err, &duplicate):
		writeError(w, r, duplicate.Error(), "DUPLICATE_KEY", http.StatusConflict)
	case errors.As(err, &insufficient):
		writeErrorDetails(w, r, insufficient.Error(), "INSUFFICIENT_STOCK", http.StatusConflict, map[string]any{
			"available": insufficient.Available,
			"requested": insufficient.Requested,
			"shortfall": insufficient.Requested.Sub(insufficient.Available),
		})
	case errors.As(err, &conflict):
		deps := make(map[string]any, len(conflict.Dependents))
		for name, n := range conflict.Dependents {
			deps[name] = n
		}
		writeErrorDetails(w, r, conflict.Error(), "DEPENDENCY_CONFLICT", http.StatusConflict, deps)
	case errors.Is(err, app.ErrAssistantDisabled):
		writeError(w, r, err.Error(), "ASSISTANT_DISABLED", http.StatusServiceUnavailable)
	default:
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// decimalQuery parses a decimal query parameter, falling back to def when absent.
func decimalQuery(r *http.Request, name string, def decimal.Decimal) (decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &core.ValidationError{Field: name, Reason: "must be a decimal"}
	}
	return d, nil
}
