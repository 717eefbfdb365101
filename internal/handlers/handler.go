// Package handlers exposes the shop over REST. Routing and JSON
// shuttling live here; all business rules live in auth and shop.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shopen/internal/auth"
	"shopen/internal/shop"
)

// Options wires the handler dependencies.
type Options struct {
	Auth            *auth.Service
	Shop            *shop.Service
	SuperAdminToken string
	AllowedOrigins  []string
	// Reset wipes and reseeds all stores; nil disables the endpoint.
	Reset func(context.Context) error
}

// Handler carries the services behind the REST surface.
type Handler struct {
	auth       *auth.Service
	shop       *shop.Service
	superToken string
	reset      func(context.Context) error
}

// New builds a Handler from Options.
func New(opts Options) *Handler {
	return &Handler{
		auth:       opts.Auth,
		shop:       opts.Shop,
		superToken: opts.SuperAdminToken,
		reset:      opts.Reset,
	}
}

// Router builds the HTTP router with health, metrics and the /api/v1 surface.
func Router(opts Options) http.Handler {
	h := New(opts)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	allowed := opts.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Use(httprate.Limit(100, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", h.handleRegister)
			r.Post("/login", h.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(h.requireUser)
				r.Get("/logout", h.handleLogout)
				r.Get("/me", h.handleMe)
				r.Get("/", h.handleListUsers)
				r.Get("/{id}", h.handleGetUser)
				r.Put("/{id}/promote", h.handlePromote)
				r.Patch("/{id}/credit", h.handleSetCredit)
				r.Put("/{id}/edit", h.handleEditUser)
			})
		})

		r.Route("/pens", func(r chi.Router) {
			r.Get("/", h.handleListPens)
			r.Get("/{id}", h.handleGetPen)

			r.Group(func(r chi.Router) {
				r.Use(h.requireUser)
				r.Post("/", h.handleAddPen)
				r.Patch("/restock", h.handleRestockPen)
				r.Delete("/{id}", h.handleDeletePen)
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Use(h.requireUser)
			r.Get("/", h.handleListTransactions)
			r.Get("/{id}", h.handleGetTransaction)
			r.Post("/request", h.handleRequestTransaction)
			r.Post("/{id}/complete", h.handleCompleteTransaction)
			r.Post("/{id}/cancel", h.handleCancelTransaction)
			r.Post("/{id}/refund", h.handleRefundTransaction)
		})

		r.Get("/holders", h.handleListHolders)

		r.Post("/service/reset", h.handleReset)
	})

	return r
}
