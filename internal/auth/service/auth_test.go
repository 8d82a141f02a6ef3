package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/auth/repository"
	"github.com/stockflow/stockflow-backend/internal/auth/service"
	"github.com/stockflow/stockflow-backend/pkg/config"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func jwtConfig(expiry time.Duration) config.JWTConfig {
	return config.JWTConfig{
		Secret:        "test-secret-at-least-32-characters!!",
		AccessExpiry:  expiry,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "stockflow-test",
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()

	userRepo := repository.NewUserRepository(suite.DB)
	svc := service.NewAuthService(userRepo, jwtConfig(time.Hour), logger.Nop())

	company := suite.Fixtures.CreateCompany(ctx)

	user, err := svc.Register(ctx, service.RegisterInput{
		CompanyID: company.String(),
		Email:     "owner@boutique.tn",
		Password:  "correct-horse",
		FullName:  "Amine B",
		Role:      repository.RoleOwner,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	loggedIn, token, err := svc.Login(ctx, "owner@boutique.tn", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	require.NotNil(t, token)

	claims, err := svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, company.String(), claims.CompanyID)
	assert.Equal(t, repository.RoleOwner, claims.Role)

	_, _, err = svc.Login(ctx, "owner@boutique.tn", "wrong-password")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))

	_, _, err = svc.Login(ctx, "nobody@boutique.tn", "whatever")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCredentials))
}

func TestAuthService_Refresh(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()

	userRepo := repository.NewUserRepository(suite.DB)
	svc := service.NewAuthService(userRepo, jwtConfig(time.Hour), logger.Nop())

	company := suite.Fixtures.CreateCompany(ctx)
	user, err := svc.Register(ctx, service.RegisterInput{
		CompanyID: company.String(),
		Email:     "refresh@boutique.tn",
		Password:  "correct-horse",
		FullName:  "Re Fresh",
	})
	require.NoError(t, err)

	_, token, err := svc.Login(ctx, "refresh@boutique.tn", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, token.RefreshToken)

	renewed, err := svc.Refresh(ctx, token.RefreshToken)
	require.NoError(t, err)
	claims, err := svc.ValidateToken(renewed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	// An access token is not accepted in place of a refresh token
	_, err = svc.Refresh(ctx, token.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))

	require.NoError(t, userRepo.Deactivate(ctx, user.ID))
	_, err = svc.Refresh(ctx, token.RefreshToken)
	require.Error(t, err)
}

func TestAuthService_RegisterRejectsShortPassword(t *testing.T) {
	svc := service.NewAuthService(nil, jwtConfig(time.Hour), logger.Nop())

	_, err := svc.Register(context.Background(), service.RegisterInput{
		Email:    "short@test.tn",
		Password: "short",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestAuthService_ExpiredToken(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()

	userRepo := repository.NewUserRepository(suite.DB)
	svc := service.NewAuthService(userRepo, jwtConfig(-time.Minute), logger.Nop())

	company := suite.Fixtures.CreateCompany(ctx)
	_, err := svc.Register(ctx, service.RegisterInput{
		CompanyID: company.String(),
		Email:     "expired@boutique.tn",
		Password:  "correct-horse",
		FullName:  "Exp Ired",
	})
	require.NoError(t, err)

	_, token, err := svc.Login(ctx, "expired@boutique.tn", "correct-horse")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
}

func TestAuthService_TokenFromOtherSecret(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()

	userRepo := repository.NewUserRepository(suite.DB)
	issuer := service.NewAuthService(userRepo, jwtConfig(time.Hour), logger.Nop())

	company := suite.Fixtures.CreateCompany(ctx)
	_, err := issuer.Register(ctx, service.RegisterInput{
		CompanyID: company.String(),
		Email:     "forged@boutique.tn",
		Password:  "correct-horse",
		FullName:  "For Ged",
	})
	require.NoError(t, err)

	_, token, err := issuer.Login(ctx, "forged@boutique.tn", "correct-horse")
	require.NoError(t, err)

	other := config.JWTConfig{Secret: "a-completely-different-secret-value", AccessExpiry: time.Hour}
	verifier := service.NewAuthService(userRepo, other, logger.Nop())

	_, err = verifier.ValidateToken(token.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}
