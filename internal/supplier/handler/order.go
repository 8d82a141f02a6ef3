package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/supplier/repository"
	"github.com/stockflow/stockflow-backend/internal/supplier/service"
	apperrors "github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// OrderHandler handles purchase order endpoints
type OrderHandler struct {
	service *service.OrderService
	repo    *repository.OrderRepository
	logger  *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(svc *service.OrderService, repo *repository.OrderRepository, log *logger.Logger) *OrderHandler {
	return &OrderHandler{service: svc, repo: repo, logger: log}
}

// OrderLineRequest is one line on a new purchase order
type OrderLineRequest struct {
	ArticleID string `json:"article_id" validate:"required,uuid"`
	Quantity  int    `json:"quantite_commandee" validate:"required,gt=0"`
	UnitPrice string `json:"prix_unitaire" validate:"required"`
}

// OrderRequest is the payload for creating a purchase order
type OrderRequest struct {
	SupplierID string             `json:"supplier_id" validate:"required,uuid"`
	StoreID    string             `json:"store_id" validate:"required,uuid"`
	Lines      []OrderLineRequest `json:"lignes" validate:"required,min=1,dive"`
	Notes      *string            `json:"notes,omitempty"`
}

// Create creates a draft purchase order
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	input := service.OrderInput{
		SupplierID: req.SupplierID,
		StoreID:    req.StoreID,
		Notes:      req.Notes,
	}
	for _, l := range req.Lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			httputil.Error(w, apperrors.BadRequest("invalid price format"))
			return
		}
		input.Lines = append(input.Lines, service.OrderLineInput{
			ArticleID: l.ArticleID,
			Quantity:  l.Quantity,
			UnitPrice: price,
		})
	}

	order, err := h.service.Create(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, order)
}

// List lists the purchase orders of the caller's company
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	orders, total, err := h.repo.ListByCompany(r.Context(), httputil.GetCompanyID(r.Context()), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	httputil.JSONWithMeta(w, http.StatusOK, orders, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get returns an order with its lines
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, order)
}

// ConfirmRequest carries the expected delivery date
type ConfirmRequest struct {
	ExpectedDelivery *time.Time `json:"date_livraison_prevue,omitempty"`
}

// Confirm confirms a draft order
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	order, err := h.service.Confirm(r.Context(), chi.URLParam(r, "id"), req.ExpectedDelivery)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, order)
}

// ReceiptRequest books received quantities against order lines
type ReceiptRequest struct {
	Receipts []LineReceiptRequest `json:"receipts" validate:"required,min=1,dive"`
}

// LineReceiptRequest is one received quantity
type LineReceiptRequest struct {
	LineID   string `json:"line_id" validate:"required,uuid"`
	Quantity int    `json:"quantite_recue" validate:"required,gt=0"`
}

// Receive books a full or partial receipt on a confirmed order
func (h *OrderHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var req ReceiptRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	receipts := make([]service.LineReceipt, 0, len(req.Receipts))
	for _, rec := range req.Receipts {
		receipts = append(receipts, service.LineReceipt{LineID: rec.LineID, Quantity: rec.Quantity})
	}

	order, err := h.service.Receive(r.Context(), chi.URLParam(r, "id"), receipts)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, order)
}

// Cancel cancels an order that has not received stock
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
