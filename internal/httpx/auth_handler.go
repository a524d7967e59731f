package httpx

import (
	"net/http"

	"github.com/ariefcatur/factory-orders/internal/auth"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u.Public())
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	var in auth.Credentials
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := h.Auth.Authenticate(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actorOf(r))
}
