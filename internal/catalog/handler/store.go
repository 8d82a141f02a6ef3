package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stockflow/stockflow-backend/internal/catalog/repository"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// StoreHandler handles store endpoints
type StoreHandler struct {
	repo   *repository.StoreRepository
	logger *logger.Logger
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(repo *repository.StoreRepository, log *logger.Logger) *StoreHandler {
	return &StoreHandler{repo: repo, logger: log}
}

// StoreRequest is the create/update payload for a store
type StoreRequest struct {
	Name    string  `json:"name" validate:"required,min=2,max=100"`
	Code    string  `json:"code" validate:"required,min=2,max=20"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	IsMain  bool    `json:"is_main"`
}

// Create creates a store under the caller's company
func (h *StoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req StoreRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	store := &repository.Store{
		CompanyID: httputil.GetCompanyID(r.Context()),
		Name:      req.Name,
		Code:      req.Code,
		Address:   req.Address,
		City:      req.City,
		Phone:     req.Phone,
		IsMain:    req.IsMain,
	}
	if err := h.repo.Create(r.Context(), store); err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().Str("store_id", store.ID).Str("code", store.Code).Msg("store created")
	httputil.Created(w, store)
}

// List lists the caller's stores
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	stores, err := h.repo.ListByCompany(r.Context(), httputil.GetCompanyID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, stores)
}

// Get returns a store by ID
func (h *StoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	store, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, store)
}

// Update updates a store
func (h *StoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req StoreRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	store, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	store.Name = req.Name
	store.Code = req.Code
	store.Address = req.Address
	store.City = req.City
	store.Phone = req.Phone
	store.IsMain = req.IsMain

	if err := h.repo.Update(r.Context(), store); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, store)
}

// Delete removes a store
func (h *StoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "storeID")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
