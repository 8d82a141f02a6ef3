package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	forecastrepo "github.com/stockflow/stockflow-backend/internal/forecast/repository"
	"github.com/stockflow/stockflow-backend/internal/stock/repository"
	"github.com/stockflow/stockflow-backend/internal/stock/service"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	p.events = append(p.events, eventType)
	return nil
}

func newStockService(s *testutil.IntegrationSuite) (*service.StockService, *recordingPublisher) {
	pub := &recordingPublisher{}
	log := logger.Nop()
	svc := service.NewStockService(
		s.DB,
		catalogrepo.NewArticleRepository(s.DB),
		repository.NewMovementRepository(s.DB),
		repository.NewTransferRepository(s.DB),
		forecastrepo.NewSaleRepository(s.DB),
		pub,
		log,
	)
	return svc, pub
}

func seedArticle(t *testing.T, ctx context.Context, s *testutil.IntegrationSuite, stock int) (storeID, articleID string) {
	t.Helper()
	company := s.Fixtures.CreateCompany(ctx)
	store := s.Fixtures.CreateStore(ctx, company)
	article := s.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: stock, MinStock: 5})
	return store.String(), article.String()
}

func TestStockService_RecordMovement(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc, pub := newStockService(suite)

	tests := []struct {
		name         string
		initialStock int
		movementType string
		quantity     int
		wantStock    int
	}{
		{"entree adds", 10, repository.MovementEntree, 5, 15},
		{"retour adds", 10, repository.MovementRetour, 3, 13},
		{"sortie removes", 10, repository.MovementSortie, 4, 6},
		{"sortie floors at zero", 3, repository.MovementSortie, 10, 0},
		{"ajustement sets level", 10, repository.MovementAjustement, 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, articleID := seedArticle(t, ctx, suite, tt.initialStock)

			result, err := svc.RecordMovement(ctx, service.MovementInput{
				ArticleID: articleID,
				Type:      tt.movementType,
				Quantity:  tt.quantity,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStock, result.NewStock)
			assert.Equal(t, tt.quantity, result.Movement.Quantity)
			assert.NotEmpty(t, result.Movement.ID)
		})
	}

	assert.NotEmpty(t, pub.events)
}

func TestStockService_RecordMovement_Invalid(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc, _ := newStockService(suite)
	_, articleID := seedArticle(t, ctx, suite, 10)

	_, err := svc.RecordMovement(ctx, service.MovementInput{
		ArticleID: articleID,
		Type:      "vol",
		Quantity:  1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	_, err = svc.RecordMovement(ctx, service.MovementInput{
		ArticleID: articleID,
		Type:      repository.MovementEntree,
		Quantity:  -1,
	})
	require.Error(t, err)
}

func TestStockService_TransferLifecycle(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc, _ := newStockService(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	origin := suite.Fixtures.CreateStore(ctx, company)
	dest := suite.Fixtures.CreateStore(ctx, company)

	articleRepo := catalogrepo.NewArticleRepository(suite.DB)

	originArticle := suite.Fixtures.CreateArticle(ctx, origin, testutil.ArticleOpts{CurrentStock: 20})
	srcArt, err := articleRepo.GetByID(ctx, originArticle.String())
	require.NoError(t, err)

	// Same code in the destination store so receive can match it
	destArticle := &catalogrepo.Article{StoreID: dest.String(), Code: srcArt.Code, Designation: srcArt.Designation, CurrentStock: 1}
	require.NoError(t, articleRepo.Create(ctx, destArticle))

	transfer, err := svc.CreateTransfer(ctx, service.TransferInput{
		ArticleID:   originArticle.String(),
		DestStoreID: dest.String(),
		Quantity:    8,
	})
	require.NoError(t, err)
	assert.Equal(t, repository.TransferPending, transfer.Status)

	shipped, err := svc.ShipTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.TransferShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)

	after, err := articleRepo.GetByID(ctx, originArticle.String())
	require.NoError(t, err)
	assert.Equal(t, 12, after.CurrentStock)

	// Shipping twice must fail the status guard
	_, err = svc.ShipTransfer(ctx, transfer.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	received, err := svc.ReceiveTransfer(ctx, transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.TransferReceived, received.Status)

	destAfter, err := articleRepo.GetByID(ctx, destArticle.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, destAfter.CurrentStock)
}

func TestStockService_CreateTransfer_InsufficientStock(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc, _ := newStockService(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	origin := suite.Fixtures.CreateStore(ctx, company)
	dest := suite.Fixtures.CreateStore(ctx, company)
	article := suite.Fixtures.CreateArticle(ctx, origin, testutil.ArticleOpts{CurrentStock: 2})

	_, err := svc.CreateTransfer(ctx, service.TransferInput{
		ArticleID:   article.String(),
		DestStoreID: dest.String(),
		Quantity:    5,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestStockService_SortieRecordsSale(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc, _ := newStockService(suite)
	_, articleID := seedArticle(t, ctx, suite, 30)

	_, err := svc.RecordMovement(ctx, service.MovementInput{
		ArticleID: articleID,
		Type:      repository.MovementSortie,
		Quantity:  7,
	})
	require.NoError(t, err)

	// an entree leaves the demand history alone
	_, err = svc.RecordMovement(ctx, service.MovementInput{
		ArticleID: articleID,
		Type:      repository.MovementEntree,
		Quantity:  10,
	})
	require.NoError(t, err)

	var quantities []int
	require.NoError(t, suite.Raw.SelectContext(ctx, &quantities,
		`SELECT quantity FROM sales WHERE article_id = $1`, articleID))
	require.Len(t, quantities, 1)
	assert.Equal(t, 7, quantities[0])
}
