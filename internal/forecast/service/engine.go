package service

import (
	"context"
	"math"
	"time"

	catalogrepo "github.com/stockflow/stockflow-backend/internal/catalog/repository"
	"github.com/stockflow/stockflow-backend/internal/forecast/repository"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/messaging"
)

const (
	// Algorithm identifies the forecasting method stored with each forecast
	Algorithm    = "moving_average"
	ModelVersion = "1.0"

	// lookbackWeeks is how far back the engine reads sales history
	lookbackWeeks = 8
	// minSamples is the minimum number of sales needed to forecast at all
	minSamples = 4
	// coverageWindowDays normalizes the coverage metric, four full weeks
	coverageWindowDays = 28

	// DefaultHorizonDays is the default forecast period length
	DefaultHorizonDays = 7
)

// EventPublisher publishes forecast events
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// Engine computes demand forecasts from sales history using a weighted
// moving average. Recent sales weigh more than old ones.
type Engine struct {
	saleRepo     *repository.SaleRepository
	forecastRepo *repository.ForecastRepository
	articleRepo  *catalogrepo.ArticleRepository
	storeRepo    *catalogrepo.StoreRepository
	publisher    EventPublisher
	logger       *logger.Logger
}

// NewEngine creates a new forecast engine
func NewEngine(
	saleRepo *repository.SaleRepository,
	forecastRepo *repository.ForecastRepository,
	articleRepo *catalogrepo.ArticleRepository,
	storeRepo *catalogrepo.StoreRepository,
	publisher EventPublisher,
	log *logger.Logger,
) *Engine {
	return &Engine{
		saleRepo:     saleRepo,
		forecastRepo: forecastRepo,
		articleRepo:  articleRepo,
		storeRepo:    storeRepo,
		publisher:    publisher,
		logger:       log,
	}
}

// ComputeForecast forecasts demand for one article over the next horizon
// days. It returns nil without writing anything when fewer than four sales
// exist in the lookback window.
func (e *Engine) ComputeForecast(ctx context.Context, articleID, storeID string, horizonDays int) (*repository.Forecast, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}

	now := time.Now()
	since := now.AddDate(0, 0, -7*lookbackWeeks)

	sales, err := e.saleRepo.ListSince(ctx, articleID, storeID, since)
	if err != nil {
		return nil, err
	}
	if len(sales) < minSamples {
		e.logger.Warn().
			Str("article_id", articleID).
			Int("sales", len(sales)).
			Msg("insufficient sales history, skipping forecast")
		return nil, nil
	}

	quantities := make([]float64, len(sales))
	for i, s := range sales {
		quantities[i] = float64(s.Quantity)
	}

	predicted := WeightedAverage(quantities)
	confidence := Confidence(quantities)
	mape, wmape := ErrorMetrics(quantities, predicted)

	periodStart := now.AddDate(0, 0, 1)
	forecast := &repository.Forecast{
		ArticleID:         articleID,
		StoreID:           storeID,
		PeriodStart:       periodStart,
		PeriodEnd:         periodStart.AddDate(0, 0, horizonDays),
		PredictedQuantity: round2(predicted),
		Confidence:        round2(confidence),
		Algorithm:         Algorithm,
		ModelVersion:      ModelVersion,
		MAPE:              round2(mape),
		WMAPE:             round2(wmape),
		Coverage:          round2(Coverage(len(quantities))),
		SampleCount:       len(quantities),
		ComputedAt:        now,
	}
	if err := e.forecastRepo.Upsert(ctx, forecast); err != nil {
		return nil, err
	}

	if e.publisher != nil {
		event := messaging.ForecastComputedEvent{
			ArticleID:         articleID,
			StoreID:           storeID,
			PredictedQuantity: forecast.PredictedQuantity,
			Confidence:        forecast.Confidence,
			PeriodStart:       forecast.PeriodStart.Format(time.RFC3339),
		}
		if err := e.publisher.Publish(ctx, messaging.EventForecastComputed, event); err != nil {
			e.logger.Error().Err(err).Str("article_id", articleID).Msg("failed to publish forecast event")
		}
	}
	return forecast, nil
}

// BatchResult summarizes one forecast batch run
type BatchResult struct {
	TotalArticles  int `json:"total_articles"`
	TotalForecasts int `json:"total_forecasts"`
	Skipped        int `json:"skipped"`
	Errors         int `json:"errors"`
}

// ComputeAll forecasts every active article of every store. One failing
// article never stops the batch.
func (e *Engine) ComputeAll(ctx context.Context) (*BatchResult, error) {
	stores, err := e.storeRepo.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "FORECAST_BATCH", "failed to list stores", 500)
	}

	result := &BatchResult{}
	for _, store := range stores {
		articles, err := e.articleRepo.ListActiveByStore(ctx, store.ID)
		if err != nil {
			e.logger.Error().Err(err).Str("store_id", store.ID).Msg("failed to list articles for forecast batch")
			result.Errors++
			continue
		}

		for _, article := range articles {
			result.TotalArticles++
			forecast, err := e.ComputeForecast(ctx, article.ID, store.ID, DefaultHorizonDays)
			if err != nil {
				e.logger.Error().Err(err).
					Str("article_id", article.ID).
					Str("store_id", store.ID).
					Msg("forecast computation failed")
				result.Errors++
				continue
			}
			if forecast == nil {
				result.Skipped++
				continue
			}
			result.TotalForecasts++
		}
	}

	if e.publisher != nil {
		event := messaging.ForecastBatchCompletedEvent{
			TotalForecasts: result.TotalForecasts,
			Errors:         result.Errors,
		}
		if err := e.publisher.Publish(ctx, messaging.EventForecastBatchCompleted, event); err != nil {
			e.logger.Error().Err(err).Msg("failed to publish batch completed event")
		}
	}

	e.logger.Info().
		Int("articles", result.TotalArticles).
		Int("forecasts", result.TotalForecasts).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Msg("forecast batch completed")
	return result, nil
}

// WeightedAverage averages quantities with linearly increasing weights from
// 0.5 on the oldest point to 1.0 on the newest.
func WeightedAverage(quantities []float64) float64 {
	n := len(quantities)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return quantities[0]
	}

	var weightedSum, weightSum float64
	step := 0.5 / float64(n-1)
	for i, q := range quantities {
		w := 0.5 + step*float64(i)
		weightedSum += q * w
		weightSum += w
	}
	return weightedSum / weightSum
}

// Confidence derives a confidence score from the population variance of the
// history, clamped to [0.3, 0.95]. Stable demand scores high.
func Confidence(quantities []float64) float64 {
	v := variance(quantities)
	c := 1.0 - v/100.0
	if c < 0.3 {
		return 0.3
	}
	if c > 0.95 {
		return 0.95
	}
	return c
}

// ErrorMetrics computes MAPE and WMAPE of the prediction against the
// history, both as percentages. MAPE skips zero actuals, WMAPE returns 0
// when the history sums to zero.
func ErrorMetrics(quantities []float64, predicted float64) (mape, wmape float64) {
	var mapeSum float64
	var mapeCount int
	var totalActual, totalError float64

	for _, q := range quantities {
		if q > 0 {
			mapeSum += math.Abs((q - predicted) / q)
			mapeCount++
		}
		totalActual += q
		totalError += math.Abs(q - predicted)
	}

	if mapeCount > 0 {
		mape = mapeSum / float64(mapeCount) * 100
	}
	if totalActual > 0 {
		wmape = totalError / totalActual * 100
	}
	return mape, wmape
}

// Coverage scores how much of a four week window the history fills, capped
// at 100.
func Coverage(sampleCount int) float64 {
	c := float64(sampleCount) / coverageWindowDays * 100
	if c > 100 {
		return 100
	}
	return c
}

func variance(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(n)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
