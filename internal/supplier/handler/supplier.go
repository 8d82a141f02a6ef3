package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stockflow/stockflow-backend/internal/supplier/repository"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// SupplierHandler handles supplier endpoints
type SupplierHandler struct {
	repo   *repository.SupplierRepository
	logger *logger.Logger
}

// NewSupplierHandler creates a new supplier handler
func NewSupplierHandler(repo *repository.SupplierRepository, log *logger.Logger) *SupplierHandler {
	return &SupplierHandler{repo: repo, logger: log}
}

// SupplierRequest is the payload for creating or updating a supplier
type SupplierRequest struct {
	Name             string  `json:"name" validate:"required,min=2,max=100"`
	Type             string  `json:"type" validate:"omitempty,oneof=FORMEL INFORMEL"`
	Phone            *string `json:"phone,omitempty"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	Address          *string `json:"address,omitempty"`
	City             *string `json:"city,omitempty"`
	TaxID            *string `json:"tax_id,omitempty"`
	LeadTimeDays     *int    `json:"lead_time_days,omitempty" validate:"omitempty,gte=0"`
	ReliabilityScore float64 `json:"reliability_score" validate:"gte=0,lte=100"`
	Notes            *string `json:"notes,omitempty"`
}

// Create creates a supplier
func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SupplierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	supplier := &repository.Supplier{
		CompanyID:        httputil.GetCompanyID(r.Context()),
		Name:             req.Name,
		Type:             req.Type,
		Phone:            req.Phone,
		Email:            req.Email,
		Address:          req.Address,
		City:             req.City,
		TaxID:            req.TaxID,
		LeadTimeDays:     req.LeadTimeDays,
		ReliabilityScore: req.ReliabilityScore,
		Notes:            req.Notes,
	}
	if err := h.repo.Create(r.Context(), supplier); err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().Str("supplier_id", supplier.ID).Str("name", supplier.Name).Msg("supplier created")
	httputil.Created(w, supplier)
}

// List lists the suppliers of the caller's company
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.repo.ListByCompany(r.Context(), httputil.GetCompanyID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, suppliers)
}

// Get returns a supplier by ID
func (h *SupplierHandler) Get(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, supplier)
}

// Update updates a supplier
func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req SupplierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	supplier, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	supplier.Name = req.Name
	if req.Type != "" {
		supplier.Type = req.Type
	}
	supplier.Phone = req.Phone
	supplier.Email = req.Email
	supplier.Address = req.Address
	supplier.City = req.City
	supplier.TaxID = req.TaxID
	supplier.LeadTimeDays = req.LeadTimeDays
	supplier.ReliabilityScore = req.ReliabilityScore
	supplier.Notes = req.Notes

	if err := h.repo.Update(r.Context(), supplier); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, supplier)
}

// Delete deletes a supplier
func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
