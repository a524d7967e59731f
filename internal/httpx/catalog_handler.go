package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/factory-orders/internal/catalog"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) catalogRoutes(r chi.Router) {
	c := h.Catalog
	r.Route("/products", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			if q := r.URL.Query().Get("q"); q != "" {
				respond[[]catalog.Product](w, r, http.StatusOK)(c.SearchProducts(r.Context(), q))
				return
			}
			respond[[]catalog.Product](w, r, http.StatusOK)(c.Products(r.Context()))
		})
		r.Post("/", create(c.CreateProduct))
		r.Get("/{id}", byID(c.Product))
		r.Put("/{id}", update(c.UpdateProduct))
		r.Delete("/{id}", remove(c.DeleteProduct))
	})
	r.Route("/insumos", func(r chi.Router) {
		r.Get("/", list(c.Insumos))
		r.Post("/", create(c.CreateInsumo))
		r.Get("/{id}", byID(c.Insumo))
		r.Put("/{id}", update(c.UpdateInsumo))
		r.Delete("/{id}", remove(c.DeleteInsumo))
	})
	r.Route("/stock/products", func(r chi.Router) {
		r.Get("/", list(c.ProductLots))
		r.Post("/", create(c.CreateProductLot))
		r.Get("/{id}", byID(c.ProductLot))
		r.Get("/{id}/exists", exists(c.ProductLotExists))
		r.Put("/{id}", update(c.UpdateProductLot))
		r.Delete("/{id}", remove(c.DeleteProductLot))
	})
	r.Route("/stock/insumos", func(r chi.Router) {
		r.Get("/", list(c.InsumoLots))
		r.Post("/", create(c.CreateInsumoLot))
		r.Get("/{id}", byID(c.InsumoLot))
		r.Get("/{id}/exists", exists(c.InsumoLotExists))
		r.Put("/{id}", update(c.UpdateInsumoLot))
		r.Delete("/{id}", remove(c.DeleteInsumoLot))
	})
	r.Route("/clients", func(r chi.Router) {
		r.Get("/", list(c.Clients))
		r.Get("/mine", func(w http.ResponseWriter, r *http.Request) {
			respond[[]catalog.Client](w, r, http.StatusOK)(c.ClientsOf(r.Context(), actorOf(r)))
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in catalog.ClientInput
			if err := decode(r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			respond[catalog.Client](w, r, http.StatusCreated)(c.CreateClient(r.Context(), actorOf(r), in))
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			respond[catalog.Client](w, r, http.StatusOK)(c.Client(r.Context(), actorOf(r), chi.URLParam(r, "id")))
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var in catalog.ClientInput
			if err := decode(r, &in); err != nil {
				writeError(w, r, err)
				return
			}
			respond[catalog.Client](w, r, http.StatusOK)(c.UpdateClient(r.Context(), actorOf(r), chi.URLParam(r, "id"), in))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := c.DeleteClient(r.Context(), actorOf(r), chi.URLParam(r, "id")); err != nil {
				writeError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

// respond writes v with code, or the error.
func respond[T any](w http.ResponseWriter, r *http.Request, code int) func(T, error) {
	return func(v T, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, code, v)
	}
}

func list[T any](fn func(context.Context) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond[[]T](w, r, http.StatusOK)(fn(r.Context()))
	}
}

func byID[T any](fn func(context.Context, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond[T](w, r, http.StatusOK)(fn(r.Context(), chi.URLParam(r, "id")))
	}
}

func create[In, Out any](fn func(context.Context, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		respond[Out](w, r, http.StatusCreated)(fn(r.Context(), in))
	}
}

func update[In, Out any](fn func(context.Context, string, In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := decode(r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		respond[Out](w, r, http.StatusOK)(fn(r.Context(), chi.URLParam(r, "id"), in))
	}
}

func remove(fn func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func exists(fn func(context.Context, string) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"exists": ok})
	}
}
