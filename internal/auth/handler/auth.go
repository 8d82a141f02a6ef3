package handler

import (
	"net/http"

	"github.com/stockflow/stockflow-backend/internal/auth/repository"
	"github.com/stockflow/stockflow-backend/internal/auth/service"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	service  *service.AuthService
	userRepo *repository.UserRepository
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *service.AuthService, userRepo *repository.UserRepository, log *logger.Logger) *AuthHandler {
	return &AuthHandler{service: svc, userRepo: userRepo, logger: log}
}

// RegisterRequest is the payload for creating an account
type RegisterRequest struct {
	CompanyID string  `json:"company_id" validate:"required,uuid"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	FullName  string  `json:"full_name" validate:"required,min=2,max=100"`
	Phone     *string `json:"phone,omitempty"`
	Role      string  `json:"role" validate:"omitempty,oneof=OWNER MANAGER EMPLOYEE"`
}

// Register creates an account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		CompanyID: req.CompanyID,
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Role:      req.Role,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.Created(w, user)
}

// LoginRequest is the payload for logging in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse bundles the user with their token
type LoginResponse struct {
	User  *repository.User   `json:"user"`
	Token *service.TokenPair `json:"token"`
}

// Login checks credentials and returns a token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	h.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	httputil.JSON(w, http.StatusOK, LoginResponse{User: user, Token: token})
}

// RefreshRequest is the payload for renewing tokens
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh exchanges a refresh token for a new token pair
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	token, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, token)
}

// Me returns the authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userRepo.GetByID(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, user)
}
