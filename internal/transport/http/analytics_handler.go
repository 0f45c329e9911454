// Package http contains the chi HTTP handlers for the analytics API.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "bullboard/internal/errors"
	"bullboard/internal/services"
)

// AnalyticsHandler handles pipeline runs and result queries with RFC 7807
// error responses.
type AnalyticsHandler struct {
	service      *services.AnalyticsService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(service *services.AnalyticsService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalyticsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "analytics")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analytics routes.
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/run", h.Run)
	r.Get("/result", h.LatestResult)
	r.Get("/result/{symbol}", h.SymbolResult)
	r.Get("/summaries", h.Summaries)

	return r
}

// runRequest is the POST /run body. Dates are inclusive calendar days.
type runRequest struct {
	Symbols []string `json:"symbols"`
	Start   string   `json:"start,omitempty"`
	End     string   `json:"end,omitempty"`
}

// Run handles POST /api/analytics/run. The response contains per-symbol
// outcomes; HTTP 200 means the run itself completed, individual symbols may
// still have failed.
func (h *AnalyticsHandler) Run(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	req := services.RunRequest{Symbols: body.Symbols}
	var err error
	if req.Start, err = parseDate(body.Start); err != nil {
		h.badDate(w, r, "start", body.Start)
		return
	}
	if req.End, err = parseDate(body.End); err != nil {
		h.badDate(w, r, "end", body.End)
		return
	}

	result, err := h.service.Run(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "run completed",
		slog.String("run_id", result.RunID),
		slog.Int("succeeded", result.Succeeded()),
		slog.Int("failed", result.Failed()))
	render.JSON(w, r, result)
}

// LatestResult handles GET /api/analytics/result.
func (h *AnalyticsHandler) LatestResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Latest()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// SymbolResult handles GET /api/analytics/result/{symbol}.
func (h *AnalyticsHandler) SymbolResult(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.SymbolOutcome(chi.URLParam(r, "symbol"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, outcome)
}

// Summaries handles GET /api/analytics/summaries.
func (h *AnalyticsHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.Summaries()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summaries)
}

func (h *AnalyticsHandler) badDate(w http.ResponseWriter, r *http.Request, field, value string) {
	problem := apierrors.NewProblemDetails(
		http.StatusBadRequest,
		apierrors.TypeValidation,
		"Invalid Date",
		field+" must be a YYYY-MM-DD date, got "+value,
		r.URL.Path,
	)
	render.Render(w, r, problem)
}

// parseDate accepts an empty string (zero time) or a YYYY-MM-DD date.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
