package service

import (
	"net/http"
	"strings"

	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
)

// Middleware authenticates requests with a Bearer token and puts the
// caller's identity on the context
func (s *AuthService) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httputil.Error(w, errors.Unauthorized("missing authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.Error(w, errors.Unauthorized("malformed authorization header"))
			return
		}

		claims, err := s.ValidateToken(parts[1])
		if err != nil {
			httputil.Error(w, err)
			return
		}
		if claims.TokenType != tokenTypeAccess {
			httputil.Error(w, errors.TokenInvalid())
			return
		}

		ctx := httputil.WithUserContext(r.Context(), claims.UserID, claims.Role, claims.CompanyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers whose role is not in the allowed set
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[httputil.GetUserRole(r.Context())] {
				httputil.Error(w, errors.Forbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
