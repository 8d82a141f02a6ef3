package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/pkg/database"
)

// Sale is one demand history record. The stock service writes one for every
// sortie movement; forecasting reads them.
type Sale struct {
	ID        string           `db:"id" json:"id"`
	ArticleID string           `db:"article_id" json:"article_id"`
	StoreID   string           `db:"store_id" json:"store_id"`
	Quantity  int              `db:"quantity" json:"quantite"`
	UnitPrice *decimal.Decimal `db:"unit_price" json:"unit_price,omitempty"`
	SoldAt    time.Time        `db:"sold_at" json:"date_vente"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// SaleRepository handles sale persistence
type SaleRepository struct {
	db *database.DB
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *database.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

// Create creates a sale record
func (r *SaleRepository) Create(ctx context.Context, s *Sale) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.SoldAt.IsZero() {
		s.SoldAt = time.Now()
	}

	query := `
		INSERT INTO sales (id, article_id, store_id, quantity, unit_price, sold_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.ArticleID, s.StoreID, s.Quantity, s.UnitPrice, s.SoldAt,
	).Scan(&s.CreatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// ListSince lists sales of an article since a date, oldest first
func (r *SaleRepository) ListSince(ctx context.Context, articleID, storeID string, since time.Time) ([]*Sale, error) {
	var sales []*Sale
	query := `
		SELECT * FROM sales
		WHERE article_id = $1 AND store_id = $2 AND sold_at >= $3
		ORDER BY sold_at
	`
	if err := r.db.SelectContext(ctx, &sales, query, articleID, storeID, since); err != nil {
		return nil, err
	}
	return sales, nil
}

// SumQuantitySince totals the quantity sold for an article since a date
func (r *SaleRepository) SumQuantitySince(ctx context.Context, articleID, storeID string, since time.Time) (int, error) {
	var total int
	query := `
		SELECT COALESCE(SUM(quantity), 0) FROM sales
		WHERE article_id = $1 AND store_id = $2 AND sold_at >= $3
	`
	if err := r.db.GetContext(ctx, &total, query, articleID, storeID, since); err != nil {
		return 0, err
	}
	return total, nil
}
