package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stockflow/stockflow-backend/internal/stock/repository"
	"github.com/stockflow/stockflow-backend/internal/stock/service"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// TransferHandler handles inter-store transfer endpoints
type TransferHandler struct {
	service *service.StockService
	repo    *repository.TransferRepository
	logger  *logger.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(svc *service.StockService, repo *repository.TransferRepository, log *logger.Logger) *TransferHandler {
	return &TransferHandler{service: svc, repo: repo, logger: log}
}

// TransferRequest is the payload for creating a transfer
type TransferRequest struct {
	ArticleID   string  `json:"article_id" validate:"required,uuid"`
	DestStoreID string  `json:"dest_store_id" validate:"required,uuid"`
	Quantity    int     `json:"quantite" validate:"required,gt=0"`
	Notes       *string `json:"notes,omitempty"`
}

// Create creates a pending transfer
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	transfer, err := h.service.CreateTransfer(r.Context(), service.TransferInput{
		ArticleID:   req.ArticleID,
		DestStoreID: req.DestStoreID,
		Quantity:    req.Quantity,
		Notes:       req.Notes,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().Str("transfer_id", transfer.ID).Str("reference", transfer.Reference).Msg("transfer created")
	httputil.Created(w, transfer)
}

// List lists transfers touching a store
func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.repo.ListByStore(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, transfers)
}

// Get returns a transfer by ID
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	transfer, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, transfer)
}

// Ship marks a transfer as shipped
func (h *TransferHandler) Ship(w http.ResponseWriter, r *http.Request) {
	transfer, err := h.service.ShipTransfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, transfer)
}

// Receive marks a transfer as received
func (h *TransferHandler) Receive(w http.ResponseWriter, r *http.Request) {
	transfer, err := h.service.ReceiveTransfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, transfer)
}

// Cancel cancels a pending transfer
func (h *TransferHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
