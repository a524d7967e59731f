// Package httpx is the JSON/HTTP surface of the API.
package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/factory-orders/internal/auth"
	"github.com/ariefcatur/factory-orders/internal/catalog"
	"github.com/ariefcatur/factory-orders/internal/orders"
	"github.com/ariefcatur/factory-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	Auth    *auth.Service
	Catalog *catalog.Service
	Orders  *orders.Service
	Cache   *redisx.Cache // nil disables caching, idempotency keys and the low-stock report
}

func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/users", h.register)
	r.Post("/auth/token", h.token)

	r.Group(func(r chi.Router) {
		r.Use(authenticate(h.Auth.Verify))
		r.Get("/me", h.me)
		h.catalogRoutes(r)
		h.orderRoutes(r)
		h.reportRoutes(r)
	})
	return r
}
