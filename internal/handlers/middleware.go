package handlers

import (
	"context"
	"net/http"
	"strings"

	"shopen/internal/models"
)

type contextKey string

const userKey contextKey = "user"
const tokenKey contextKey = "token"

// bearerToken extracts the session token from the Authorization header.
// A "Bearer " prefix is optional; the original clients send the bare token.
func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

// requireUser resolves the session token and stashes the acting user in
// the request context.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		user, err := h.auth.ResolveSession(r.Context(), token)
		if err != nil {
			respondError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(r *http.Request) *models.User {
	user, _ := r.Context().Value(userKey).(*models.User)
	return user
}

func tokenFrom(r *http.Request) string {
	token, _ := r.Context().Value(tokenKey).(string)
	return token
}
