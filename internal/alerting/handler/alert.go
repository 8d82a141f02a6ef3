package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockflow/stockflow-backend/internal/alerting/repository"
	"github.com/stockflow/stockflow-backend/internal/alerting/service"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// AlertHandler handles alert endpoints
type AlertHandler struct {
	repo    *repository.AlertRepository
	scanner *service.Scanner
	logger  *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(repo *repository.AlertRepository, scanner *service.Scanner, log *logger.Logger) *AlertHandler {
	return &AlertHandler{repo: repo, scanner: scanner, logger: log}
}

// List lists alerts of a store
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	filter := repository.AlertFilter{
		StoreID:    chi.URLParam(r, "storeID"),
		Kind:       r.URL.Query().Get("type"),
		Severity:   r.URL.Query().Get("niveau"),
		UnseenOnly: r.URL.Query().Get("unseen") == "true",
		Unresolved: r.URL.Query().Get("unresolved") == "true",
		Page:       page,
		PerPage:    perPage,
	}

	alerts, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	httputil.JSONWithMeta(w, http.StatusOK, alerts, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// MarkSeen flags an alert as seen
func (h *AlertHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.MarkSeen(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Resolve flags an alert as resolved
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Resolve(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}

// Scan runs a stock scan for one store on demand
func (h *AlertHandler) Scan(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.ScanStore(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}
