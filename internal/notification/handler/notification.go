package handler

import (
	"net/http"
	"strconv"

	"github.com/stockflow/stockflow-backend/internal/notification/repository"
	"github.com/stockflow/stockflow-backend/internal/notification/service"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// NotificationHandler handles notification endpoints
type NotificationHandler struct {
	repo      *repository.NotificationRepository
	processor *service.Processor
	logger    *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(repo *repository.NotificationRepository, processor *service.Processor, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, processor: processor, logger: log}
}

// List lists the most recent notifications of the caller's company
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	companyID := httputil.GetCompanyID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	notifications, err := h.repo.ListByCompany(r.Context(), companyID, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, notifications)
}

// Stats returns notification counts by status for the caller's company
func (h *NotificationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.CountByStatus(r.Context(), httputil.GetCompanyID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, counts)
}

// Process drains the pending queue on demand
func (h *NotificationHandler) Process(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.processor.ProcessPending(r.Context(), limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}
