package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/stock/repository"
	"github.com/stockflow/stockflow-backend/internal/stock/service"
	apperrors "github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// MovementHandler handles stock movement endpoints
type MovementHandler struct {
	service *service.StockService
	repo    *repository.MovementRepository
	logger  *logger.Logger
}

// NewMovementHandler creates a new movement handler
func NewMovementHandler(svc *service.StockService, repo *repository.MovementRepository, log *logger.Logger) *MovementHandler {
	return &MovementHandler{service: svc, repo: repo, logger: log}
}

// MovementRequest is the payload for recording a stock movement
type MovementRequest struct {
	ArticleID    string  `json:"article_id" validate:"required,uuid"`
	SupplierID   *string `json:"supplier_id,omitempty" validate:"omitempty,uuid"`
	Type         string  `json:"type" validate:"required,oneof=entree sortie ajustement retour"`
	Quantity     int     `json:"quantite" validate:"gte=0"`
	UnitPrice    *string `json:"unit_price,omitempty"`
	Reason       *string `json:"motif,omitempty"`
	ReferenceDoc *string `json:"reference_doc,omitempty"`
}

// Create records a stock movement
func (h *MovementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req MovementRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	input := service.MovementInput{
		ArticleID:    req.ArticleID,
		SupplierID:   req.SupplierID,
		Type:         req.Type,
		Quantity:     req.Quantity,
		Reason:       req.Reason,
		ReferenceDoc: req.ReferenceDoc,
	}
	if req.UnitPrice != nil {
		price, err := decimal.NewFromString(*req.UnitPrice)
		if err != nil {
			httputil.Error(w, apperrors.BadRequest("invalid price format"))
			return
		}
		input.UnitPrice = &price
	}

	result, err := h.service.RecordMovement(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().
		Str("movement_id", result.Movement.ID).
		Str("type", result.Movement.MovementType).
		Int("new_stock", result.NewStock).
		Msg("stock movement recorded")
	httputil.Created(w, result)
}

// List lists movements of a store
func (h *MovementHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	filter := repository.MovementFilter{
		StoreID:   chi.URLParam(r, "storeID"),
		ArticleID: r.URL.Query().Get("article_id"),
		Type:      r.URL.Query().Get("type"),
		Page:      page,
		PerPage:   perPage,
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			httputil.Error(w, apperrors.BadRequest("invalid from date"))
			return
		}
		filter.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			httputil.Error(w, apperrors.BadRequest("invalid to date"))
			return
		}
		filter.To = &t
	}

	movements, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	httputil.JSONWithMeta(w, http.StatusOK, movements, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}
