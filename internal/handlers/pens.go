package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"shopen/internal/store"
)

// penFilterFromQuery parses the listing filters. List-valued params
// accept both repetition and comma separation.
func penFilterFromQuery(q url.Values) (store.PenFilter, error) {
	filter := store.PenFilter{
		Brands: splitList(q["brand"]),
		Colors: splitList(q["color"]),
	}

	var err error
	if filter.MinPrice, err = decimalParam(q, "minPrice"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = decimalParam(q, "maxPrice"); err != nil {
		return filter, err
	}
	if filter.MinStock, err = intParam(q, "minStock"); err != nil {
		return filter, err
	}
	if filter.MinLength, err = intParam(q, "minLength"); err != nil {
		return filter, err
	}
	if filter.MaxLength, err = intParam(q, "maxLength"); err != nil {
		return filter, err
	}
	return filter, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func decimalParam(q url.Values, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &d, nil
}

func intParam(q url.Values, name string) (*int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return &n, nil
}

func (h *Handler) handleListPens(w http.ResponseWriter, r *http.Request) {
	filter, err := penFilterFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	pens, err := h.shop.ListPens(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"pens": pens})
}

func (h *Handler) handleGetPen(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	pen, err := h.shop.GetPen(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"pen": pen})
}

func (h *Handler) handleAddPen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Brand  string          `json:"brand"`
		Price  decimal.Decimal `json:"price"`
		Stock  int             `json:"stock"`
		Color  *string         `json:"color"`
		Length *int            `json:"length"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	pen, err := h.shop.AddPen(r.Context(), userFrom(r), req.Brand, req.Price, req.Stock, req.Color, req.Length)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"pen": pen})
}

func (h *Handler) handleRestockPen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    uint `json:"id"`
		Count int  `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	pen, err := h.shop.RestockPen(r.Context(), userFrom(r), req.ID, req.Count)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"pen": pen})
}

func (h *Handler) handleDeletePen(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	if err := h.shop.DeletePen(r.Context(), userFrom(r), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "pen deleted"})
}
