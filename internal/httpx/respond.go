package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type errorBody struct {
	Error   string                        `json:"error"`
	Details *apperr.InsufficientStockError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status. Internal errors are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.HTTPStatus(err)
	body := errorBody{Error: err.Error()}
	if code == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		body.Error = "internal error"
	}
	var se *apperr.InsufficientStockError
	if errors.As(err, &se) {
		body.Details = se
	}
	writeJSON(w, code, body)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Invalid("invalid json: %v", err)
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Invalid("%s must be a non-negative integer", name)
	}
	return n, nil
}
