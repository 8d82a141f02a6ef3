package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stockflow/stockflow-backend/internal/catalog/repository"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// CompanyHandler handles company endpoints
type CompanyHandler struct {
	repo   *repository.CompanyRepository
	logger *logger.Logger
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(repo *repository.CompanyRepository, log *logger.Logger) *CompanyHandler {
	return &CompanyHandler{repo: repo, logger: log}
}

// CompanyRequest is the create/update payload for a company
type CompanyRequest struct {
	Name              string  `json:"name" validate:"required,min=2,max=100"`
	TaxID             *string `json:"tax_id,omitempty"`
	Address           *string `json:"address,omitempty"`
	City              *string `json:"city,omitempty"`
	PostalCode        *string `json:"postal_code,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email"`
	Currency          string  `json:"currency" validate:"omitempty,len=3"`
	SecondaryCurrency *string `json:"secondary_currency,omitempty" validate:"omitempty,len=3"`
}

// Create creates a company
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	company := &repository.Company{
		Name:              req.Name,
		TaxID:             req.TaxID,
		Address:           req.Address,
		City:              req.City,
		PostalCode:        req.PostalCode,
		Phone:             req.Phone,
		Email:             req.Email,
		Currency:          req.Currency,
		SecondaryCurrency: req.SecondaryCurrency,
	}
	if err := h.repo.Create(r.Context(), company); err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().Str("company_id", company.ID).Msg("company created")
	httputil.Created(w, company)
}

// Get returns a company by ID
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	company, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, company)
}

// Update updates a company
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	company, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	company.Name = req.Name
	company.TaxID = req.TaxID
	company.Address = req.Address
	company.City = req.City
	company.PostalCode = req.PostalCode
	company.Phone = req.Phone
	company.Email = req.Email
	if req.Currency != "" {
		company.Currency = req.Currency
	}
	company.SecondaryCurrency = req.SecondaryCurrency

	if err := h.repo.Update(r.Context(), company); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, company)
}
