package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"shopen/internal/store"
)

// handleReset wipes and reseeds all stores. It is gated by the
// super-admin token, not by a session.
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if h.reset == nil {
		respondError(w, r, errors.New("reset is not configured"))
		return
	}
	if h.superToken == "" || bearerToken(r) != h.superToken {
		respondError(w, r, fmt.Errorf("%w: invalid super admin token", store.ErrForbidden))
		return
	}
	if err := h.reset(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "stores reset"})
}
