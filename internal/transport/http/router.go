package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apierrors "bullboard/internal/errors"
	"bullboard/internal/infrastructure"
	"bullboard/internal/services"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Analytics    *services.AnalyticsService
	Health       *services.HealthService
	Metrics      *infrastructure.Metrics
	Logger       *slog.Logger
	ErrorHandler *apierrors.ErrorHandler
}

// NewRouter assembles the full HTTP surface: the analytics API, health
// probes, and the Prometheus scrape endpoint.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(deps.ErrorHandler.Middleware)

	r.NotFound(deps.ErrorHandler.NotFound)
	r.MethodNotAllowed(deps.ErrorHandler.MethodNotAllowed)

	analyticsHandler := NewAnalyticsHandler(deps.Analytics, deps.Logger, deps.ErrorHandler)
	healthHandler := NewHealthHandler(deps.Health, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/analytics", analyticsHandler.Routes())
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	return r
}

// requestLogger logs one line per request with the chi request ID, so API
// logs correlate with problem responses.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http request",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()))
		})
	}
}
