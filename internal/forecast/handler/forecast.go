package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockflow/stockflow-backend/internal/forecast/repository"
	"github.com/stockflow/stockflow-backend/internal/forecast/service"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// ForecastHandler handles forecasting endpoints
type ForecastHandler struct {
	engine    *service.Engine
	suggester *service.Suggester
	repo      *repository.ForecastRepository
	logger    *logger.Logger
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(engine *service.Engine, suggester *service.Suggester, repo *repository.ForecastRepository, log *logger.Logger) *ForecastHandler {
	return &ForecastHandler{engine: engine, suggester: suggester, repo: repo, logger: log}
}

// ComputeRequest is the payload to compute a forecast on demand
type ComputeRequest struct {
	ArticleID   string `json:"article_id" validate:"required,uuid"`
	StoreID     string `json:"store_id" validate:"required,uuid"`
	HorizonDays int    `json:"horizon_jours" validate:"gte=0,lte=90"`
}

// Compute computes a forecast for one article now
func (h *ForecastHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	forecast, err := h.engine.ComputeForecast(r.Context(), req.ArticleID, req.StoreID, req.HorizonDays)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	if forecast == nil {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"forecast": nil,
			"reason":   "insufficient sales history",
		})
		return
	}
	httputil.JSON(w, http.StatusOK, forecast)
}

// Latest returns the freshest forecast for an article
func (h *ForecastHandler) Latest(w http.ResponseWriter, r *http.Request) {
	forecast, err := h.repo.GetLatest(r.Context(), chi.URLParam(r, "articleID"), chi.URLParam(r, "storeID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, forecast)
}

// History lists the forecast history of an article
func (h *ForecastHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	forecasts, err := h.repo.ListByArticle(r.Context(), chi.URLParam(r, "articleID"), chi.URLParam(r, "storeID"), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, forecasts)
}

// Suggestions lists purchase suggestions for a store
func (h *ForecastHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.suggester.Suggestions(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, suggestions)
}

// RunBatch triggers the forecast batch for all stores
func (h *ForecastHandler) RunBatch(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.ComputeAll(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}
