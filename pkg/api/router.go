// Package api exposes the core's observability surface over HTTP: health
// probes, aggregated component stats, and the Prometheus scrape endpoint.
// It serves read-only structured data and performs no mutation.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
)

// StatsSource supplies the aggregated component stats served by the API.
type StatsSource interface {
	Stats() any
}

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// Routes:
//   - GET /healthz - Liveness probe
//   - GET /api/v1/stats - Aggregated component stats
//   - GET /metrics - Prometheus scrape endpoint (when a handler is given)
func NewRouter(stats StatsSource, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		JSON(w, http.StatusOK, HealthyResponse(nil))
	})

	r.Get("/api/v1/stats", func(w http.ResponseWriter, req *http.Request) {
		JSON(w, http.StatusOK, OKResponse(stats.Stats()))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	// Root redirect to the liveness probe for convenience
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/healthz", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDuration, logger.Duration(start),
		)
	})
}
