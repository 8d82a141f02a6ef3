package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/internal/catalog/repository"
	apperrors "github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// ArticleHandler handles article endpoints
type ArticleHandler struct {
	repo   *repository.ArticleRepository
	logger *logger.Logger
}

// NewArticleHandler creates a new article handler
func NewArticleHandler(repo *repository.ArticleRepository, log *logger.Logger) *ArticleHandler {
	return &ArticleHandler{repo: repo, logger: log}
}

// ArticleRequest is the create/update payload for an article
type ArticleRequest struct {
	Code          string     `json:"code" validate:"required,min=1,max=50"`
	Designation   string     `json:"designation" validate:"required,min=1,max=200"`
	Description   *string    `json:"description,omitempty"`
	Barcode       *string    `json:"barcode,omitempty"`
	Unit          string     `json:"unit"`
	PurchasePrice string     `json:"purchase_price" validate:"required"`
	SalePrice     string     `json:"sale_price" validate:"required"`
	InitialStock  int        `json:"initial_stock" validate:"gte=0"`
	MinStock      int        `json:"min_stock" validate:"gte=0"`
	MaxStock      int        `json:"max_stock" validate:"gte=0"`
	SafetyStock   int        `json:"safety_stock" validate:"gte=0"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
}

func (req *ArticleRequest) prices() (purchase, sale decimal.Decimal, err error) {
	purchase, err = decimal.NewFromString(req.PurchasePrice)
	if err != nil {
		return
	}
	sale, err = decimal.NewFromString(req.SalePrice)
	return
}

// Create creates an article in a store
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}
	purchase, sale, err := req.prices()
	if err != nil {
		httputil.Error(w, apperrors.BadRequest("invalid price format"))
		return
	}

	article := &repository.Article{
		StoreID:       chi.URLParam(r, "storeID"),
		Code:          req.Code,
		Designation:   req.Designation,
		Description:   req.Description,
		Barcode:       req.Barcode,
		Unit:          req.Unit,
		PurchasePrice: purchase,
		SalePrice:     sale,
		CurrentStock:  req.InitialStock,
		MinStock:      req.MinStock,
		MaxStock:      req.MaxStock,
		SafetyStock:   req.SafetyStock,
		ExpiryDate:    req.ExpiryDate,
	}
	if err := h.repo.Create(r.Context(), article); err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().Str("article_id", article.ID).Str("code", article.Code).Msg("article created")
	httputil.Created(w, article)
}

// List lists articles of a store with search and pagination
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	filter := repository.ArticleFilter{
		StoreID:    chi.URLParam(r, "storeID"),
		Search:     r.URL.Query().Get("search"),
		ActiveOnly: r.URL.Query().Get("include_inactive") != "true",
		Page:       page,
		PerPage:    perPage,
	}

	articles, total, err := h.repo.List(r.Context(), filter)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}
	httputil.JSONWithMeta(w, http.StatusOK, articles, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// ListLowStock lists articles at or below their minimum stock
func (h *ArticleHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	articles, err := h.repo.ListLowStock(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, articles)
}

// Get returns an article by ID
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	article, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, article)
}

// Update updates an article's catalog fields
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}
	purchase, sale, err := req.prices()
	if err != nil {
		httputil.Error(w, apperrors.BadRequest("invalid price format"))
		return
	}

	article, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	article.Code = req.Code
	article.Designation = req.Designation
	article.Description = req.Description
	article.Barcode = req.Barcode
	if req.Unit != "" {
		article.Unit = req.Unit
	}
	article.PurchasePrice = purchase
	article.SalePrice = sale
	article.MinStock = req.MinStock
	article.MaxStock = req.MaxStock
	article.SafetyStock = req.SafetyStock
	article.ExpiryDate = req.ExpiryDate

	if err := h.repo.Update(r.Context(), article); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, article)
}

// Delete soft deletes an article
func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.NoContent(w)
}
