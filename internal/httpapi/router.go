// Package httpapi wires the HTTP surface of the books service.
// It keeps handlers thin, delegating business rules to the voucher engine.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Server wires handlers and middleware using Chi.
type Server struct {
	eng      Engine
	ready    ReadyChecker
	currency string
	validate *validator.Validate
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware. ready may be nil
// when the store has no readiness probe.
func New(eng Engine, ready ReadyChecker, currency string, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		eng:      eng,
		ready:    ready,
		currency: currency,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      logger,
		rt:       r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches per-route middleware.
func (s *Server) routes() {
	// Vouchers
	s.rt.With(s.requireActor).Post("/v1/vouchers", s.postVoucher)
	s.rt.Get("/v1/vouchers", s.listVouchers)
	s.rt.Get("/v1/vouchers/next-number", s.nextNumber)
	s.rt.Get("/v1/vouchers/{number}", s.getVoucher)
	s.rt.With(s.requireActor).Post("/v1/vouchers/{number}/cancel", s.cancelVoucher)
	// Ledger
	s.rt.Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/v1/accounts/{name}/ledger", s.ledgerStatement)
	// Products
	s.rt.With(s.requireActor).Post("/v1/products", s.postProduct)
	s.rt.Get("/v1/products", s.listProducts)
	s.rt.Get("/v1/products/{name}", s.getProduct)
	// Audit
	s.rt.Get("/v1/audit", s.auditTrail)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
