package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/alerting/repository"
	"github.com/stockflow/stockflow-backend/internal/alerting/service"
	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/messaging"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

type capturingPublisher struct {
	alerts []messaging.StockAlertGeneratedEvent
}

func (p *capturingPublisher) Publish(_ context.Context, eventType string, data interface{}) error {
	if eventType == messaging.EventStockAlertGenerated {
		p.alerts = append(p.alerts, data.(messaging.StockAlertGeneratedEvent))
	}
	return nil
}

func newScanner(s *testutil.IntegrationSuite) (*service.Scanner, *repository.AlertRepository, *capturingPublisher) {
	pub := &capturingPublisher{}
	alertRepo := repository.NewAlertRepository(s.DB)
	scanner := service.NewScanner(
		catalogrepo.NewArticleRepository(s.DB),
		catalogrepo.NewStoreRepository(s.DB),
		alertRepo,
		pub,
		logger.Nop(),
	)
	return scanner, alertRepo, pub
}

func TestScanner_ScanStore(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	scanner, alertRepo, pub := newScanner(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)

	soon := time.Now().AddDate(0, 0, 5)
	later := time.Now().AddDate(0, 0, 20)
	past := time.Now().AddDate(0, 0, -1)

	// Stockout, critical
	suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 0, MinStock: 5})
	// Low stock, high
	suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 3, MinStock: 5})
	// Healthy but expiring within a week: one high expiry alert
	suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 50, MinStock: 5, ExpiryDate: &soon})
	// Healthy, expiring within the month: one medium expiry alert
	suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 50, MinStock: 5, ExpiryDate: &later})
	// Already expired: no expiry alert
	suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 50, MinStock: 5, ExpiryDate: &past})
	// Healthy, nothing to report
	suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 50, MinStock: 5})

	result, err := scanner.ScanStore(ctx, store.String())
	require.NoError(t, err)

	assert.Equal(t, 6, result.TotalArticles)
	assert.Equal(t, 1, result.Stockouts)
	assert.Equal(t, 1, result.LowStock)
	assert.Equal(t, 2, result.ExpiringSoon)
	assert.Equal(t, 4, result.AlertsGenerated)

	alerts, _, err := alertRepo.List(ctx, repository.AlertFilter{StoreID: store.String(), Page: 1, PerPage: 50})
	require.NoError(t, err)
	require.Len(t, alerts, 4)

	bySeverity := map[string]int{}
	byKind := map[string]int{}
	for _, a := range alerts {
		bySeverity[a.Severity]++
		byKind[a.Kind]++
	}
	assert.Equal(t, 1, bySeverity[repository.SeverityCritical])
	assert.Equal(t, 2, bySeverity[repository.SeverityHigh])
	assert.Equal(t, 1, bySeverity[repository.SeverityMedium])
	assert.Equal(t, 1, byKind[repository.KindStockout])
	assert.Equal(t, 1, byKind[repository.KindLowStock])
	assert.Equal(t, 2, byKind[repository.KindExpirySoon])

	// Every created alert went out as an event with the owning company
	require.Len(t, pub.alerts, 4)
	for _, e := range pub.alerts {
		assert.Equal(t, company.String(), e.CompanyID)
		assert.Equal(t, store.String(), e.StoreID)
	}
}

func TestScanner_ScanStore_AppendsOnRescan(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	scanner, alertRepo, _ := newScanner(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)
	suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 0, MinStock: 5})

	_, err := scanner.ScanStore(ctx, store.String())
	require.NoError(t, err)
	_, err = scanner.ScanStore(ctx, store.String())
	require.NoError(t, err)

	_, total, err := alertRepo.List(ctx, repository.AlertFilter{StoreID: store.String(), Page: 1, PerPage: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total, "scans append, they never dedupe")
}

func TestScanner_StockoutExcludesLowStock(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	scanner, _, _ := newScanner(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)
	// Zero stock is also below min, but only the stockout rule fires
	suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 0, MinStock: 10})

	result, err := scanner.ScanStore(ctx, store.String())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stockouts)
	assert.Equal(t, 0, result.LowStock)
	assert.Equal(t, 1, result.AlertsGenerated)
}
