package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/catalog/repository"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func setupStore(t *testing.T, ctx context.Context, s *testutil.IntegrationSuite) string {
	t.Helper()
	company := s.Fixtures.CreateCompany(ctx)
	return s.Fixtures.CreateStore(ctx, company).String()
}

func TestArticleRepository_CreateAndGet(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	storeID := setupStore(t, ctx, suite)

	repo := repository.NewArticleRepository(suite.DB)

	article := &repository.Article{
		StoreID:       storeID,
		Code:          "HUILE-1L",
		Designation:   "Huile vegetale 1L",
		PurchasePrice: decimal.NewFromFloat(3.2),
		SalePrice:     decimal.NewFromFloat(4.5),
		CurrentStock:  20,
		MinStock:      5,
		MaxStock:      100,
		SafetyStock:   3,
	}
	err := repo.Create(ctx, article)
	require.NoError(t, err)
	assert.NotEmpty(t, article.ID)
	assert.True(t, article.IsActive)
	assert.False(t, article.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, "HUILE-1L", got.Code)
	assert.Equal(t, 20, got.CurrentStock)
	assert.True(t, got.SalePrice.Equal(decimal.NewFromFloat(4.5)))

	byCode, err := repo.GetByCode(ctx, storeID, "HUILE-1L")
	require.NoError(t, err)
	assert.Equal(t, article.ID, byCode.ID)
}

func TestArticleRepository_DuplicateCode(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	storeID := setupStore(t, ctx, suite)

	repo := repository.NewArticleRepository(suite.DB)

	first := &repository.Article{StoreID: storeID, Code: "DUP-1", Designation: "Premier"}
	require.NoError(t, repo.Create(ctx, first))

	second := &repository.Article{StoreID: storeID, Code: "DUP-1", Designation: "Deuxieme"}
	err := repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestArticleRepository_ListLowStock(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	storeID := setupStore(t, ctx, suite)

	repo := repository.NewArticleRepository(suite.DB)

	low := &repository.Article{StoreID: storeID, Code: "LOW-1", Designation: "Bas", CurrentStock: 2, MinStock: 5}
	ok := &repository.Article{StoreID: storeID, Code: "OK-1", Designation: "Bon", CurrentStock: 50, MinStock: 5}
	require.NoError(t, repo.Create(ctx, low))
	require.NoError(t, repo.Create(ctx, ok))

	articles, err := repo.ListLowStock(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "LOW-1", articles[0].Code)
}

func TestArticleRepository_Deactivate(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	storeID := setupStore(t, ctx, suite)

	repo := repository.NewArticleRepository(suite.DB)

	article := &repository.Article{StoreID: storeID, Code: "DEL-1", Designation: "A supprimer"}
	require.NoError(t, repo.Create(ctx, article))

	require.NoError(t, repo.Deactivate(ctx, article.ID))

	got, err := repo.GetByID(ctx, article.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err := repo.ListActiveByStore(ctx, storeID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestArticleRepository_StockDeltaBelowZero(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	storeID := setupStore(t, ctx, suite)

	repo := repository.NewArticleRepository(suite.DB)

	article := &repository.Article{StoreID: storeID, Code: "NEG-1", Designation: "Negatif", CurrentStock: 3}
	require.NoError(t, repo.Create(ctx, article))

	tx, err := suite.Raw.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = repo.ApplyStockDelta(ctx, tx, article.ID, -5)
	require.Error(t, err)
}

func TestArticleRepository_DaysUntilExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no expiry date", func(t *testing.T) {
		a := &repository.Article{}
		assert.Nil(t, a.DaysUntilExpiry(now))
	})

	t.Run("expires in 10 days", func(t *testing.T) {
		exp := now.AddDate(0, 0, 10)
		a := &repository.Article{ExpiryDate: &exp}
		require.NotNil(t, a.DaysUntilExpiry(now))
		assert.Equal(t, 10, *a.DaysUntilExpiry(now))
	})

	t.Run("already expired", func(t *testing.T) {
		exp := now.AddDate(0, 0, -2)
		a := &repository.Article{ExpiryDate: &exp}
		assert.Equal(t, -2, *a.DaysUntilExpiry(now))
	})
}
