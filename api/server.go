/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Maps URLs to handlers and sets up the middleware stack. All routes live
  under /api; everything else 404s.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/config/*      Run configuration upload and fetch
  /api/periods/*     Roster import, preview, run, payment/voucher queries
  /api/vouchers/*    Voucher reversal
  /api/fixtures/*    Demo fixtures

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Configuration routes
		r.Post("/config", h.SaveConfig)
		r.Get("/config/{periodID}", h.GetConfig)
		r.Get("/periods", h.ListPeriods)

		// Period routes
		r.Route("/periods/{periodID}", func(r chi.Router) {
			r.Post("/roster", h.ImportRoster)
			r.Get("/preview", h.PreviewPayroll)
			r.Post("/run", h.RunPayroll)
			r.Get("/payments", h.ListPayments)
			r.Get("/vouchers", h.ListVouchers)
		})

		// Voucher routes
		r.Route("/vouchers", func(r chi.Router) {
			r.Post("/{id}/reverse", h.ReverseVoucher)
		})

		// Fixture routes
		r.Route("/fixtures", func(r chi.Router) {
			r.Get("/", h.ListFixtures)
			r.Post("/load", h.LoadFixture)
		})
	})

	return r
}
