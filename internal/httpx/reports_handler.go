package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/factory-orders/internal/orders"
	"github.com/ariefcatur/factory-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) reportRoutes(r chi.Router) {
	r.Get("/reports/best-clients", func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit")
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond[[]orders.TopClient](w, r, http.StatusOK)(cached(r.Context(), h, redisx.ReportKey(redisx.ReportBestClients, limit),
			func(ctx context.Context) ([]orders.TopClient, error) { return h.Orders.BestClients(ctx, limit) }))
	})
	r.Get("/reports/best-sellers", func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit")
		if err != nil {
			writeError(w, r, err)
			return
		}
		respond[[]orders.TopSeller](w, r, http.StatusOK)(cached(r.Context(), h, redisx.ReportKey(redisx.ReportBestSellers, limit),
			func(ctx context.Context) ([]orders.TopSeller, error) { return h.Orders.BestSellers(ctx, limit) }))
	})
	r.Get("/reports/low-stock", func(w http.ResponseWriter, r *http.Request) {
		ids := []string{}
		if h.Cache != nil {
			var err error
			if ids, err = h.Cache.LowStock(r.Context()); err != nil {
				writeError(w, r, err)
				return
			}
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"products": ids})
	})
}

func cached[T any](ctx context.Context, h *Handler, key string, load func(context.Context) (T, error)) (T, error) {
	if h.Cache == nil {
		return load(ctx)
	}
	return redisx.Remember(ctx, h.Cache, key, redisx.TTLReportCache, load)
}
