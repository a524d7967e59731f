package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/orders"
	"github.com/ariefcatur/factory-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func (h *Handler) orderRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", list(h.Orders.List))
		r.Get("/mine", h.myOrders)
		r.Post("/", h.createOrder)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.updateOrder)
		r.Delete("/{id}", h.deleteOrder)
	})
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	actor := actorOf(r)
	if st := r.URL.Query().Get("status"); st != "" {
		respond[[]orders.Order](w, r, http.StatusOK)(h.Orders.ListByStatus(r.Context(), actor, orders.Status(st)))
		return
	}
	respond[[]orders.Order](w, r, http.StatusOK)(h.Orders.ListMine(r.Context(), actor))
}

// idemPending marks an Idempotency-Key whose first request is still placing its order.
const idemPending = "pending"

// createOrder honours an optional Idempotency-Key. The key is claimed before placing:
// a replay of a finished key returns the order it created with 200, a replay while the
// first request is still running gets 409.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.PlaceInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	actor := actorOf(r)

	idemKey := ""
	if k := r.Header.Get("Idempotency-Key"); k != "" && h.Cache != nil {
		key := redisx.IdemOrderKey(actor.ID, k)
		prev, fresh, err := h.Cache.Claim(ctx, key, idemPending, redisx.TTLIdempotency)
		switch {
		case err != nil:
			log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("idempotency claim")
		case !fresh && (prev == idemPending || prev == ""):
			writeError(w, r, apperr.Conflict("request with Idempotency-Key %q is still in progress", k))
			return
		case !fresh:
			respond[orders.Order](w, r, http.StatusOK)(h.Orders.Get(ctx, actor, prev))
			return
		default:
			idemKey = key
		}
	}

	ord, err := h.Orders.Place(ctx, actor, in)
	if err != nil {
		if idemKey != "" {
			if derr := h.Cache.Delete(ctx, idemKey); derr != nil {
				log.Ctx(ctx).Warn().Err(derr).Str("key", idemKey).Msg("release idempotency key")
			}
		}
		writeError(w, r, err)
		return
	}
	if idemKey != "" {
		if err := h.Cache.Set(ctx, idemKey, ord.ID, redisx.TTLIdempotency); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("key", idemKey).Msg("store idempotency key")
		}
	}
	h.cacheOrder(ctx, ord)
	writeJSON(w, http.StatusCreated, ord)
}

// getOrder serves from the order cache when possible. Ownership is checked on cached
// documents too.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	actor := actorOf(r)

	if h.Cache != nil {
		var cached orders.Order
		if ok, err := h.Cache.GetJSON(ctx, redisx.OrderKey(id), &cached); err == nil && ok {
			if cached.Seller != actor.ID {
				writeError(w, r, apperr.Forbidden("order %s belongs to another seller", id))
				return
			}
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}
	ord, err := h.Orders.Get(ctx, actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cacheOrder(ctx, ord)
	writeJSON(w, http.StatusOK, ord)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.UpdateInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ord, err := h.Orders.Update(r.Context(), actorOf(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.dropOrder(r.Context(), ord.ID)
	writeJSON(w, http.StatusOK, ord)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Orders.Delete(r.Context(), actorOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.dropOrder(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cacheOrder(ctx context.Context, ord orders.Order) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.SetJSON(ctx, redisx.OrderKey(ord.ID), ord, redisx.TTLOrderCache); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("order_id", ord.ID).Msg("cache order")
	}
}

func (h *Handler) dropOrder(ctx context.Context, id string) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Delete(ctx, redisx.OrderKey(id)); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("order_id", id).Msg("invalidate order")
	}
}
