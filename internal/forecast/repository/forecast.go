package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// Forecast is a demand prediction for one article over one period
type Forecast struct {
	ID                string    `db:"id" json:"id"`
	ArticleID         string    `db:"article_id" json:"article_id"`
	StoreID           string    `db:"store_id" json:"store_id"`
	PeriodStart       time.Time `db:"period_start" json:"period_start"`
	PeriodEnd         time.Time `db:"period_end" json:"period_end"`
	PredictedQuantity float64   `db:"predicted_quantity" json:"predicted_quantity"`
	Confidence        float64   `db:"confidence" json:"confidence"`
	Algorithm         string    `db:"algorithm" json:"algorithm"`
	ModelVersion      string    `db:"model_version" json:"model_version"`
	MAPE              float64   `db:"mape" json:"mape"`
	WMAPE             float64   `db:"wmape" json:"wmape"`
	Coverage          float64   `db:"coverage" json:"coverage"`
	SampleCount       int       `db:"sample_count" json:"sample_count"`
	ComputedAt        time.Time `db:"computed_at" json:"computed_at"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// ForecastRepository handles forecast persistence
type ForecastRepository struct {
	db *database.DB
}

// NewForecastRepository creates a new forecast repository
func NewForecastRepository(db *database.DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// Upsert writes a forecast, replacing any previous one for the same
// article, store and period start.
func (r *ForecastRepository) Upsert(ctx context.Context, f *Forecast) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.ComputedAt.IsZero() {
		f.ComputedAt = time.Now()
	}

	query := `
		INSERT INTO forecasts (
			id, article_id, store_id, period_start, period_end,
			predicted_quantity, confidence, algorithm, model_version,
			mape, wmape, coverage, sample_count, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (article_id, store_id, period_start) DO UPDATE SET
			period_end = EXCLUDED.period_end,
			predicted_quantity = EXCLUDED.predicted_quantity,
			confidence = EXCLUDED.confidence,
			algorithm = EXCLUDED.algorithm,
			model_version = EXCLUDED.model_version,
			mape = EXCLUDED.mape,
			wmape = EXCLUDED.wmape,
			coverage = EXCLUDED.coverage,
			sample_count = EXCLUDED.sample_count,
			computed_at = EXCLUDED.computed_at
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		f.ID, f.ArticleID, f.StoreID, f.PeriodStart, f.PeriodEnd,
		f.PredictedQuantity, f.Confidence, f.Algorithm, f.ModelVersion,
		f.MAPE, f.WMAPE, f.Coverage, f.SampleCount, f.ComputedAt,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetLatest returns the most recently computed forecast for an article
func (r *ForecastRepository) GetLatest(ctx context.Context, articleID, storeID string) (*Forecast, error) {
	var f Forecast
	query := `
		SELECT * FROM forecasts
		WHERE article_id = $1 AND store_id = $2
		ORDER BY computed_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &f, query, articleID, storeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("forecast")
		}
		return nil, err
	}
	return &f, nil
}

// ListComputedSince lists forecasts of a store computed after a cutoff,
// one row per article (the freshest). Purchase suggestions read these.
func (r *ForecastRepository) ListComputedSince(ctx context.Context, storeID string, since time.Time) ([]*Forecast, error) {
	var forecasts []*Forecast
	query := `
		SELECT DISTINCT ON (article_id) * FROM forecasts
		WHERE store_id = $1 AND computed_at >= $2
		ORDER BY article_id, computed_at DESC
	`
	if err := r.db.SelectContext(ctx, &forecasts, query, storeID, since); err != nil {
		return nil, err
	}
	return forecasts, nil
}

// ListByArticle lists the forecast history of an article, newest first
func (r *ForecastRepository) ListByArticle(ctx context.Context, articleID, storeID string, limit int) ([]*Forecast, error) {
	var forecasts []*Forecast
	query := `
		SELECT * FROM forecasts
		WHERE article_id = $1 AND store_id = $2
		ORDER BY computed_at DESC
		LIMIT $3
	`
	if err := r.db.SelectContext(ctx, &forecasts, query, articleID, storeID, limit); err != nil {
		return nil, err
	}
	return forecasts, nil
}
