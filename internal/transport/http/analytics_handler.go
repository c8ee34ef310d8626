package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"salesinsights/internal/analytics"
	apperrors "salesinsights/internal/errors"
	"salesinsights/internal/forecast"
	"salesinsights/internal/services"
)

// AnalyticsHandler serves derived views of the active dataset: totals,
// statistics, correlation, pivots, insights and forecasts.
type AnalyticsHandler struct {
	service      *services.DashboardService
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
	validate     *validator.Validate
}

// NewAnalyticsHandler creates the analytics handler.
func NewAnalyticsHandler(service *services.DashboardService, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "analytics_handler")),
		errorHandler: errorHandler,
		validate:     validator.New(),
	}
}

// Routes returns the analytics routes, mounted at /api/analytics.
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/totals", h.Totals)
	r.Get("/stats", h.Stats)
	r.Get("/correlation", h.Correlation)
	r.Post("/pivot", h.Pivot)
	return r
}

// Totals handles GET /api/analytics/totals.
func (h *AnalyticsHandler) Totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.Totals(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, totals)
}

// Stats handles GET /api/analytics/stats.
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}

// Correlation handles GET /api/analytics/correlation.
func (h *AnalyticsHandler) Correlation(w http.ResponseWriter, r *http.Request) {
	corr, err := h.service.Correlation(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, corr)
}

// Pivot handles POST /api/analytics/pivot.
func (h *AnalyticsHandler) Pivot(w http.ResponseWriter, r *http.Request) {
	var spec analytics.PivotSpec
	if err := render.DecodeJSON(r.Body, &spec); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError("invalid JSON body"))
		return
	}
	if err := h.validate.Struct(spec); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError(err.Error()))
		return
	}
	result, err := h.service.Pivot(r.Context(), sessionID(r), spec)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Insights handles GET /api/insights.
func (h *AnalyticsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.Insights(r.Context(), sessionID(r))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, set)
}

// Forecast handles POST /api/forecast.
func (h *AnalyticsHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	var req forecast.Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError("invalid JSON body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apperrors.NewValidationError(err.Error()))
		return
	}
	result, err := h.service.Forecast(r.Context(), sessionID(r), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}
