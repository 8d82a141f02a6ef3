package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	"github.com/stockflow/stockflow-backend/internal/forecast/repository"
	"github.com/stockflow/stockflow-backend/internal/forecast/service"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func newEngine(s *testutil.IntegrationSuite) *service.Engine {
	return service.NewEngine(
		repository.NewSaleRepository(s.DB),
		repository.NewForecastRepository(s.DB),
		catalogrepo.NewArticleRepository(s.DB),
		catalogrepo.NewStoreRepository(s.DB),
		nil,
		logger.Nop(),
	)
}

func TestEngine_ComputeForecast_InsufficientHistory(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	engine := newEngine(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)
	article := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 10})

	// Three sales, one short of the minimum
	suite.Fixtures.CreateSalesHistory(ctx, article, store, 3, 5)

	forecast, err := engine.ComputeForecast(ctx, article.String(), store.String(), 7)
	require.NoError(t, err)
	assert.Nil(t, forecast, "no forecast below the sample minimum")

	_, err = repository.NewForecastRepository(suite.DB).GetLatest(ctx, article.String(), store.String())
	require.Error(t, err, "nothing must be written either")
}

func TestEngine_ComputeForecast_WritesAndUpserts(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	engine := newEngine(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)
	article := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 10})

	suite.Fixtures.CreateSalesHistory(ctx, article, store, 6, 10)

	first, err := engine.ComputeForecast(ctx, article.String(), store.String(), 7)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, service.Algorithm, first.Algorithm)
	assert.Equal(t, 6, first.SampleCount)
	assert.InDelta(t, 10.0, first.PredictedQuantity, 0.01)
	assert.InDelta(t, 0.95, first.Confidence, 0.001)
	assert.True(t, first.PeriodEnd.After(first.PeriodStart))

	// Recomputing the same day must replace, not duplicate
	second, err := engine.ComputeForecast(ctx, article.String(), store.String(), 7)
	require.NoError(t, err)
	require.NotNil(t, second)

	history, err := repository.NewForecastRepository(suite.DB).ListByArticle(ctx, article.String(), store.String(), 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSuggester_Suggestions(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)

	forecastRepo := repository.NewForecastRepository(suite.DB)
	articleRepo := catalogrepo.NewArticleRepository(suite.DB)
	suggester := service.NewSuggester(forecastRepo, articleRepo, logger.Nop())

	now := time.Now()
	seed := func(opts testutil.ArticleOpts, predicted float64, computedAt time.Time) string {
		id := suite.Fixtures.CreateArticle(ctx, store, opts).String()
		require.NoError(t, forecastRepo.Upsert(ctx, &repository.Forecast{
			ArticleID:         id,
			StoreID:           store.String(),
			PeriodStart:       now.AddDate(0, 0, 1),
			PeriodEnd:         now.AddDate(0, 0, 8),
			PredictedQuantity: predicted,
			Confidence:        0.8,
			Algorithm:         service.Algorithm,
			ModelVersion:      service.ModelVersion,
			ComputedAt:        computedAt,
		}))
		return id
	}

	// Needs 20+5-2=23, stock at minimum: HIGH
	urgent := seed(testutil.ArticleOpts{CurrentStock: 2, MinStock: 5, SafetyStock: 5}, 20, now)
	// Needs 10+2-8=4, stock above minimum: NORMAL
	normal := seed(testutil.ArticleOpts{CurrentStock: 8, MinStock: 3, SafetyStock: 2}, 10, now)
	// Well stocked, no suggestion
	seed(testutil.ArticleOpts{CurrentStock: 100, MinStock: 3, SafetyStock: 2}, 10, now)
	// Stale forecast, no suggestion even though stock is empty
	seed(testutil.ArticleOpts{CurrentStock: 0, MinStock: 5, SafetyStock: 5}, 20, now.Add(-48*time.Hour))

	suggestions, err := suggester.Suggestions(ctx, store.String())
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, urgent, suggestions[0].ArticleID)
	assert.Equal(t, service.PriorityHigh, suggestions[0].Priority)
	assert.Equal(t, 23, suggestions[0].QuantityToOrder)

	assert.Equal(t, normal, suggestions[1].ArticleID)
	assert.Equal(t, service.PriorityNormal, suggestions[1].Priority)
	assert.Equal(t, 4, suggestions[1].QuantityToOrder)
}
