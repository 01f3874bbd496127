package web

import (
	"encoding/json"
	"net/http"

	"warehouse-backoffice/internal/core"
)

// interpretMovement handles POST /api/assistant/movements. The interpreted
// proposal is returned for confirmation, never applied directly.
func (h *Handler) interpretMovement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		respondError(w, r, &core.ValidationError{Field: "text", Reason: "is required"})
		return
	}
	proposal, err := h.app.InterpretMovement(r.Context(), req.Text)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, proposal)
}

// applyProposal handles POST /api/assistant/movements/apply after the user
// has confirmed the proposal.
func (h *Handler) applyProposal(w http.ResponseWriter, r *http.Request) {
	var proposal core.MovementProposal
	if err := json.NewDecoder(r.Body).Decode(&proposal); err != nil {
		writeError(w, r, "invalid JSON body", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	applied, err := h.app.ApplyProposal(r.Context(), proposal)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, applied)
}
