package handlers

import (
	"net/http"
	"strings"

	"shopen/internal/models"
)

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	showOwn := true
	if raw := q.Get("showOwn"); raw != "" {
		showOwn = !strings.EqualFold(raw, "false")
	}
	txs, err := h.shop.ListTransactions(r.Context(), userFrom(r), showOwn, q.Get("status"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (h *Handler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	tx, err := h.shop.GetTransaction(r.Context(), userFrom(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

func (h *Handler) handleRequestTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Order []models.OrderLine `json:"order"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	tx, err := h.shop.RequestTransaction(r.Context(), userFrom(r), req.Order)
	observeTransaction("request", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"transaction": tx})
}

func (h *Handler) handleCompleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	err = h.shop.CompleteTransaction(r.Context(), userFrom(r), id)
	observeTransaction("complete", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "transaction completed"})
}

func (h *Handler) handleCancelTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	err = h.shop.CancelTransaction(r.Context(), userFrom(r), id)
	observeTransaction("cancel", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "transaction cancelled"})
}

func (h *Handler) handleRefundTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	err = h.shop.RefundTransaction(r.Context(), userFrom(r), id)
	observeTransaction("refund", err)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "transaction refunded"})
}
