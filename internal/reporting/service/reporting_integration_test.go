package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alertrepo "github.com/stockflow/stockflow-backend/internal/alerting/repository"
	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	"github.com/stockflow/stockflow-backend/internal/reporting/service"
	stockrepo "github.com/stockflow/stockflow-backend/internal/stock/repository"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func newReportingService(s *testutil.IntegrationSuite) *service.ReportingService {
	return service.NewReportingService(
		catalogrepo.NewArticleRepository(s.DB),
		stockrepo.NewMovementRepository(s.DB),
		alertrepo.NewAlertRepository(s.DB),
		logger.Nop(),
	)
}

func TestReportingService_StoreDashboard(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc := newReportingService(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)

	healthy := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 30, MinStock: 5, SalePrice: 10})
	suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 2, MinStock: 5, SalePrice: 10})
	stockout := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 0, MinStock: 5, SalePrice: 10})

	suite.Fixtures.CreateAlert(ctx, store, &stockout, alertrepo.KindStockout, alertrepo.SeverityCritical, "Rupture de stock: test")

	dashboard, err := svc.StoreDashboard(ctx, store.String())
	require.NoError(t, err)

	assert.Equal(t, 3, dashboard.TotalArticles)
	assert.Equal(t, 2, dashboard.LowStockCount)
	assert.Equal(t, 1, dashboard.StockoutCount)
	assert.Equal(t, 1, dashboard.UnresolvedAlerts[alertrepo.SeverityCritical])
	assert.Len(t, dashboard.LowStockArticles, 2)

	// 32 units at 7.0 purchase (70% of the 10.0 sale price)
	assert.True(t, dashboard.Valuation.PurchaseValue.Equal(decimal.NewFromInt(224)),
		"purchase = %s", dashboard.Valuation.PurchaseValue)
	assert.True(t, dashboard.Valuation.SaleValue.Equal(decimal.NewFromInt(320)),
		"sale = %s", dashboard.Valuation.SaleValue)

	for _, entry := range dashboard.LowStockArticles {
		assert.NotEqual(t, healthy.String(), entry.ID)
	}
}

func TestReportingService_SlowMovers(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc := newReportingService(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)

	// moving: sold last week
	moving := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 20, SalePrice: 10})
	suite.Fixtures.CreateMovement(ctx, moving, store, stockrepo.MovementSortie, 5, time.Now().AddDate(0, 0, -7))

	// dormant: last sale far outside the window, more tied-up value
	dormant := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 50, SalePrice: 20})
	suite.Fixtures.CreateMovement(ctx, dormant, store, stockrepo.MovementSortie, 2, time.Now().AddDate(0, 0, -200))

	// dormant with less value
	dormantSmall := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 3, SalePrice: 10})

	// empty shelves are not slow movers
	suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 0, SalePrice: 10})

	movers, err := svc.SlowMovers(ctx, store.String(), 90)
	require.NoError(t, err)

	require.Len(t, movers, 2)
	assert.Equal(t, dormant.String(), movers[0].ID)
	assert.Equal(t, dormantSmall.String(), movers[1].ID)
	// 50 units at 14.0 purchase price
	assert.True(t, movers[0].TiedUpValue.Equal(decimal.NewFromInt(700)),
		"tied up = %s", movers[0].TiedUpValue)
}

func TestReportingService_ArticleStats(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc := newReportingService(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)
	article := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 30, SalePrice: 10})

	suite.Fixtures.CreateMovement(ctx, article, store, stockrepo.MovementSortie, 40, time.Now().AddDate(0, 0, -10))
	suite.Fixtures.CreateMovement(ctx, article, store, stockrepo.MovementSortie, 20, time.Now().AddDate(0, 0, -3))
	// entree movements do not count as demand
	suite.Fixtures.CreateMovement(ctx, article, store, stockrepo.MovementEntree, 100, time.Now().AddDate(0, 0, -5))

	stats, err := svc.ArticleStats(ctx, article.String(), 30)
	require.NoError(t, err)

	assert.Equal(t, 60, stats.UnitsSold)
	assert.Equal(t, 2.0, stats.Rotation)
	// 30 in stock / 2 per day
	assert.Equal(t, 15, stats.CoverageDays)
	assert.Positive(t, stats.EOQ)
	require.NotNil(t, stats.Margin)
}
