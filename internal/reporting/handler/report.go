package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/reporting/service"
	apperrors "github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// ReportHandler handles reporting endpoints
type ReportHandler struct {
	service *service.ReportingService
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.ReportingService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{service: svc, logger: log}
}

// Dashboard returns the store summary
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.StoreDashboard(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, dashboard)
}

// Valuation returns the stock valuation of a store
func (h *ReportHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	valuation, err := h.service.StoreValuation(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, valuation)
}

// SlowMovers lists articles with stock but no recent outgoing movement
func (h *ReportHandler) SlowMovers(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	movers, err := h.service.SlowMovers(r.Context(), chi.URLParam(r, "storeID"), days)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, movers)
}

// ArticleStats returns rotation and margin metrics for one article
func (h *ReportHandler) ArticleStats(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	stats, err := h.service.ArticleStats(r.Context(), chi.URLParam(r, "id"), days)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stats)
}

// VAT applies the Tunisian VAT rate to an amount passed as query parameter
func (h *ReportHandler) VAT(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("montant_ht"))
	if err != nil {
		httputil.Error(w, apperrors.BadRequest("invalid amount"))
		return
	}

	rate := service.DefaultVATRate
	if raw := r.URL.Query().Get("taux"); raw != "" {
		rate, err = decimal.NewFromString(raw)
		if err != nil || rate.IsNegative() {
			httputil.Error(w, apperrors.BadRequest("invalid rate"))
			return
		}
	}

	httputil.JSON(w, http.StatusOK, service.VAT(amount, rate))
}
