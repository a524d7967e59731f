package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/auth"
	"github.com/ariefcatur/factory-orders/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// requestLogger puts a request-scoped logger into the context and logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		lc := log.With().Str("request_id", middleware.GetReqID(ctx))
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			lc = lc.Str("trace_id", sc.TraceID().String())
		}
		logger := lc.Logger()
		ctx = logger.WithContext(ctx)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		elapsed := time.Since(start)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
		logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).
			Int("bytes", ww.BytesWritten()).Dur("duration", elapsed).Msg("request")
	})
}

// authenticate resolves the bearer token into an Actor. Requests without a valid token
// are rejected.
func authenticate(verify func(string) (auth.Actor, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || token == "" {
				writeError(w, r, apperr.ErrAuth)
				return
			}
			actor, err := verify(token)
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := auth.WithActor(r.Context(), actor)
			logger := log.Ctx(ctx).With().Str("actor", actor.ID).Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}

// actorOf is only called behind authenticate.
func actorOf(r *http.Request) auth.Actor {
	a, _ := auth.ActorFrom(r.Context())
	return a
}
