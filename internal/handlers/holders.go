package handlers

import "net/http"

type penHolder struct {
	PenID    uint   `json:"penId"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// handleListHolders serves the static pen-holder catalogue. It is public
// and not backed by a store.
func (h *Handler) handleListHolders(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"list": []penHolder{
		{PenID: 1, Name: "holderMax", Capacity: 10},
		{PenID: 1, Name: "Thule", Capacity: 25},
		{PenID: 3, Name: "HELLo", Capacity: 666},
	}})
}
