package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpClient "github.com/andrapiyadisha/cardio-risk-ml-system/pkg/http"
)

const traceHeader = "X-Trace-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Str("service", serviceName).
			Msg("Request started")

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("service", serviceName).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request completed")
	})
}

// tracingMiddleware forwards the caller's trace ID or mints one, and hands it
// to the remote client through the request context.
func tracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := httpClient.WithTraceID(r.Context(), traceID)
		w.Header().Set(traceHeader, traceID)

		log.Debug().Str("trace_id", traceID).Msg("Processing request with trace ID")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
