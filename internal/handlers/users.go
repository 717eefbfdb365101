package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	token, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"token": token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	token, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), tokenFrom(r)); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"user": userFrom(r)})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context(), userFrom(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	user, err := h.auth.GetUser(r.Context(), userFrom(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	if err := h.auth.Promote(r.Context(), userFrom(r), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "user promoted"})
}

func (h *Handler) handleSetCredit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	var req struct {
		Credit decimal.Decimal `json:"credit"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	if err := h.auth.SetCredit(r.Context(), userFrom(r), id, req.Credit); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "user credit set"})
}

func (h *Handler) handleEditUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, badRequest(err))
		return
	}
	if err := h.auth.EditProfile(r.Context(), userFrom(r), id, req.Username, req.Password); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"message": "user edited"})
}
