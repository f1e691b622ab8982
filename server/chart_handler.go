package server

import (
	"errors"
	"net/http"

	"waveger/core/charts"
	"waveger/logger"
)

// GetChartHandler serves GET /api/chart?id=<chart_id>&week=<YYYY-MM-DD>.
// Both parameters are optional: id defaults to hot-100 and week to the
// current chart week.
func (h *APIHandler) GetChartHandler(w http.ResponseWriter, r *http.Request) {
	chartID := r.URL.Query().Get("id")
	week := r.URL.Query().Get("week")

	result, err := h.chartService.GetChart(r.Context(), chartID, week)
	if err != nil {
		if errors.Is(err, charts.ErrInvalidWeek) {
			respondError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		logger.Error("Chart request failed",
			logger.String("chart", chartID),
			logger.String("week", week),
			logger.ErrorField(err))
		respondError(w, http.StatusBadGateway, "Failed to retrieve chart")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetTopChartsHandler serves GET /api/top-charts.
func (h *APIHandler) GetTopChartsHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.chartService.GetTopCharts(r.Context())
	if err != nil {
		logger.Error("Top charts request failed", logger.ErrorField(err))
		respondError(w, http.StatusBadGateway, "Failed to retrieve chart list")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
