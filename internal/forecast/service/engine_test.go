package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	"github.com/stockflow/stockflow-backend/internal/forecast/repository"
	"github.com/stockflow/stockflow-backend/internal/forecast/service"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/testutil"
)

func TestWeightedAverage(t *testing.T) {
	tests := []struct {
		name       string
		quantities []float64
		want       float64
	}{
		{"empty", nil, 0},
		{"single point", []float64{2}, 2},
		{"constant demand", []float64{10, 10, 10, 10}, 10},
		{"recent point dominates", []float64{0, 12}, 8},
		{"three points", []float64{4, 8, 12}, 8.888888889},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.WeightedAverage(tt.quantities)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestWeightedAverage_RecentWeighsMore(t *testing.T) {
	// Same values in opposite order must give different results: the
	// newest sale always carries the largest weight.
	rising := service.WeightedAverage([]float64{1, 2, 3, 4, 5})
	falling := service.WeightedAverage([]float64{5, 4, 3, 2, 1})
	assert.Greater(t, rising, falling)
	assert.InDelta(t, 6.0, rising+falling, 1e-9)
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name       string
		quantities []float64
		want       float64
	}{
		{"no variance caps at max", []float64{10, 10, 10, 10}, 0.95},
		{"huge variance floors at min", []float64{0, 20}, 0.3},
		{"moderate variance", []float64{6, 14}, 0.84},
		{"empty history", nil, 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, service.Confidence(tt.quantities), 1e-9)
		})
	}
}

func TestErrorMetrics(t *testing.T) {
	t.Run("perfect prediction", func(t *testing.T) {
		mape, wmape := service.ErrorMetrics([]float64{10, 10}, 10)
		assert.Zero(t, mape)
		assert.Zero(t, wmape)
	})

	t.Run("symmetric errors", func(t *testing.T) {
		mape, wmape := service.ErrorMetrics([]float64{5, 15}, 10)
		assert.InDelta(t, 66.666666667, mape, 1e-6)
		assert.InDelta(t, 50.0, wmape, 1e-9)
	})

	t.Run("zero actuals excluded from mape", func(t *testing.T) {
		mape, wmape := service.ErrorMetrics([]float64{0, 10}, 5)
		assert.InDelta(t, 50.0, mape, 1e-9)
		assert.InDelta(t, 100.0, wmape, 1e-9)
	})

	t.Run("all zero history", func(t *testing.T) {
		mape, wmape := service.ErrorMetrics([]float64{0, 0}, 0)
		assert.Zero(t, mape)
		assert.Zero(t, wmape)
	})
}

func TestCoverage(t *testing.T) {
	assert.InDelta(t, 25.0, service.Coverage(7), 1e-9)
	assert.InDelta(t, 50.0, service.Coverage(14), 1e-9)
	assert.InDelta(t, 100.0, service.Coverage(28), 1e-9)
	assert.InDelta(t, 100.0, service.Coverage(56), 1e-9, "coverage caps at 100")
}

func TestEngine_ComputeAllIsolatesFailures(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	salesColumns := []string{"id", "quantity", "sold_at"}
	weekOfSales := func() *sqlmock.Rows {
		rows := testutil.MockRows(salesColumns...)
		for i := 0; i < 4; i++ {
			rows.AddRow(uuid.New().String(), 10, now.AddDate(0, 0, -7*i))
		}
		return rows
	}

	mockDB.ExpectQuery("SELECT * FROM stores").
		WillReturnRows(testutil.MockRows("id", "company_id", "name").
			AddRow("store-1", "company-1", "Magasin Central"))
	mockDB.ExpectQuery("SELECT * FROM articles").
		WillReturnRows(testutil.MockRows("id", "store_id", "code").
			AddRow("art-1", "store-1", "ART-001").
			AddRow("art-2", "store-1", "ART-002").
			AddRow("art-3", "store-1", "ART-003"))

	mockDB.ExpectQuery("SELECT * FROM sales").WillReturnRows(weekOfSales())
	mockDB.ExpectQuery("INSERT INTO forecasts").
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(uuid.New().String(), now))

	// the second article hits a broken connection mid-batch
	mockDB.ExpectQuery("SELECT * FROM sales").
		WillReturnError(errors.New("connection reset by peer"))

	mockDB.ExpectQuery("SELECT * FROM sales").WillReturnRows(weekOfSales())
	mockDB.ExpectQuery("INSERT INTO forecasts").
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(uuid.New().String(), now))

	engine := service.NewEngine(
		repository.NewSaleRepository(mockDB.DB),
		repository.NewForecastRepository(mockDB.DB),
		catalogrepo.NewArticleRepository(mockDB.DB),
		catalogrepo.NewStoreRepository(mockDB.DB),
		nil,
		logger.Nop(),
	)

	result, err := engine.ComputeAll(context.Background())
	require.NoError(t, err)

	// the failure stays confined to its article, the rest of the batch runs
	assert.Equal(t, 3, result.TotalArticles)
	assert.Equal(t, 2, result.TotalForecasts)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 0, result.Skipped)
	mockDB.ExpectationsWereMet(t)
}
