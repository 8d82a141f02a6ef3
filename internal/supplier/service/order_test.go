package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	stockrepo "github.com/stockflow/stockflow-backend/internal/stock/repository"
	"github.com/stockflow/stockflow-backend/internal/supplier/repository"
	"github.com/stockflow/stockflow-backend/internal/supplier/service"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func newOrderService(s *testutil.IntegrationSuite) (*service.OrderService, *repository.OrderRepository) {
	orderRepo := repository.NewOrderRepository(s.DB)
	svc := service.NewOrderService(
		s.DB,
		orderRepo,
		repository.NewSupplierRepository(s.DB),
		catalogrepo.NewArticleRepository(s.DB),
		stockrepo.NewMovementRepository(s.DB),
		logger.Nop(),
	)
	return svc, orderRepo
}

func TestOrderService_CreateComputesTotal(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc, _ := newOrderService(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)
	supplier := suite.Fixtures.CreateSupplier(ctx, company)
	article1 := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 5})
	article2 := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 5})

	order, err := svc.Create(ctx, service.OrderInput{
		SupplierID: supplier.String(),
		StoreID:    store.String(),
		Lines: []service.OrderLineInput{
			{ArticleID: article1.String(), Quantity: 10, UnitPrice: decimal.RequireFromString("2.500")},
			{ArticleID: article2.String(), Quantity: 3, UnitPrice: decimal.RequireFromString("7.100")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, repository.OrderDraft, order.Status)
	assert.NotEmpty(t, order.Reference)
	// 10 x 2.500 + 3 x 7.100
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("46.300")),
		"total = %s", order.TotalAmount)
	require.Len(t, order.Lines, 2)
	assert.True(t, order.Lines[0].LineTotal.Equal(decimal.RequireFromString("25.000")))
}

func TestOrderService_CreateRejectsEmptyAndUnknown(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc, _ := newOrderService(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)
	supplier := suite.Fixtures.CreateSupplier(ctx, company)

	_, err := svc.Create(ctx, service.OrderInput{
		SupplierID: supplier.String(),
		StoreID:    store.String(),
	})
	assert.ErrorIs(t, err, errors.ErrBadRequest)

	_, err = svc.Create(ctx, service.OrderInput{
		SupplierID: "00000000-0000-0000-0000-000000000000",
		StoreID:    store.String(),
		Lines:      []service.OrderLineInput{{ArticleID: store.String(), Quantity: 1, UnitPrice: decimal.New(1, 0)}},
	})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestOrderService_ReceiveLifecycle(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc, orderRepo := newOrderService(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)
	supplier := suite.Fixtures.CreateSupplier(ctx, company)
	article := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 5})

	order, err := svc.Create(ctx, service.OrderInput{
		SupplierID: supplier.String(),
		StoreID:    store.String(),
		Lines: []service.OrderLineInput{
			{ArticleID: article.String(), Quantity: 20, UnitPrice: decimal.RequireFromString("1.200")},
		},
	})
	require.NoError(t, err)
	line := order.Lines[0]

	// receiving a draft order is rejected
	_, err = svc.Receive(ctx, order.ID, []service.LineReceipt{{LineID: line.ID, Quantity: 5}})
	assert.ErrorIs(t, err, errors.ErrConflict)

	order, err = svc.Confirm(ctx, order.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.OrderConfirmed, order.Status)
	assert.NotNil(t, order.OrderedAt)

	// confirming twice is rejected
	_, err = svc.Confirm(ctx, order.ID, nil)
	assert.ErrorIs(t, err, errors.ErrConflict)

	// partial receipt: stock goes up, order stays confirmed
	order, err = svc.Receive(ctx, order.ID, []service.LineReceipt{{LineID: line.ID, Quantity: 12}})
	require.NoError(t, err)
	assert.Equal(t, repository.OrderConfirmed, order.Status)
	assert.Equal(t, 12, order.Lines[0].QuantityReceived)

	articleRepo := catalogrepo.NewArticleRepository(suite.DB)
	a, err := articleRepo.GetByID(ctx, article.String())
	require.NoError(t, err)
	assert.Equal(t, 17, a.CurrentStock)

	// over-receiving the remainder is rejected, nothing changes
	_, err = svc.Receive(ctx, order.ID, []service.LineReceipt{{LineID: line.ID, Quantity: 9}})
	assert.ErrorIs(t, err, errors.ErrConflict)
	a, err = articleRepo.GetByID(ctx, article.String())
	require.NoError(t, err)
	assert.Equal(t, 17, a.CurrentStock)

	// final receipt completes the order
	order, err = svc.Receive(ctx, order.ID, []service.LineReceipt{{LineID: line.ID, Quantity: 8}})
	require.NoError(t, err)
	assert.Equal(t, repository.OrderReceived, order.Status)
	assert.NotNil(t, order.DeliveredAt)

	a, err = articleRepo.GetByID(ctx, article.String())
	require.NoError(t, err)
	assert.Equal(t, 25, a.CurrentStock)

	// each receipt wrote an entree movement referencing the order
	movementRepo := stockrepo.NewMovementRepository(suite.DB)
	movements, _, err := movementRepo.List(ctx, stockrepo.MovementFilter{
		StoreID:   store.String(),
		ArticleID: article.String(),
		Type:      stockrepo.MovementEntree,
	})
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, m := range movements {
		require.NotNil(t, m.ReferenceDoc)
		assert.Equal(t, order.Reference, *m.ReferenceDoc)
		require.NotNil(t, m.SupplierID)
		assert.Equal(t, supplier.String(), *m.SupplierID)
	}

	_, err = orderRepo.GetByID(ctx, order.ID)
	require.NoError(t, err)
}

func TestOrderService_Cancel(t *testing.T) {
	suite := testutil.NewIntegrationSuite(t)
	ctx := context.Background()
	svc, _ := newOrderService(suite)

	company := suite.Fixtures.CreateCompany(ctx)
	store := suite.Fixtures.CreateStore(ctx, company)
	supplier := suite.Fixtures.CreateSupplier(ctx, company)
	article := suite.Fixtures.CreateArticle(ctx, store, testutil.ArticleOpts{CurrentStock: 0})

	newOrder := func() *repository.PurchaseOrder {
		order, err := svc.Create(ctx, service.OrderInput{
			SupplierID: supplier.String(),
			StoreID:    store.String(),
			Lines: []service.OrderLineInput{
				{ArticleID: article.String(), Quantity: 4, UnitPrice: decimal.New(3, 0)},
			},
		})
		require.NoError(t, err)
		return order
	}

	// draft orders cancel
	draft := newOrder()
	require.NoError(t, svc.Cancel(ctx, draft.ID))

	// confirmed orders without receipts cancel
	confirmed := newOrder()
	_, err := svc.Confirm(ctx, confirmed.ID, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, confirmed.ID))

	// orders with received stock do not
	received := newOrder()
	_, err = svc.Confirm(ctx, received.ID, nil)
	require.NoError(t, err)
	_, err = svc.Receive(ctx, received.ID, []service.LineReceipt{{LineID: received.Lines[0].ID, Quantity: 1}})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Cancel(ctx, received.ID), errors.ErrConflict)
}
