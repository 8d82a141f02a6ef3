package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// Article represents a stocked product in a store
type Article struct {
	ID            string          `db:"id" json:"id"`
	StoreID       string          `db:"store_id" json:"store_id"`
	Code          string          `db:"code" json:"code"`
	Designation   string          `db:"designation" json:"designation"`
	Description   *string         `db:"description" json:"description,omitempty"`
	Barcode       *string         `db:"barcode" json:"barcode,omitempty"`
	Unit          string          `db:"unit" json:"unit"`
	PurchasePrice decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	SalePrice     decimal.Decimal `db:"sale_price" json:"sale_price"`
	CurrentStock  int             `db:"current_stock" json:"current_stock"`
	MinStock      int             `db:"min_stock" json:"min_stock"`
	MaxStock      int             `db:"max_stock" json:"max_stock"`
	SafetyStock   int             `db:"safety_stock" json:"safety_stock"`
	ExpiryDate    *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// DaysUntilExpiry returns the whole days left before the article expires,
// or nil when no expiry date is set.
func (a *Article) DaysUntilExpiry(now time.Time) *int {
	if a.ExpiryDate == nil {
		return nil
	}
	days := int(a.ExpiryDate.Sub(now).Hours() / 24)
	return &days
}

// ArticleFilter narrows article listings
type ArticleFilter struct {
	StoreID    string
	Search     string
	ActiveOnly bool
	Page       int
	PerPage    int
}

// ArticleRepository handles article persistence
type ArticleRepository struct {
	db *database.DB
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *database.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create creates a new article
func (r *ArticleRepository) Create(ctx context.Context, a *Article) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Unit == "" {
		a.Unit = "unite"
	}

	query := `
		INSERT INTO articles (
			id, store_id, code, designation, description, barcode, unit,
			purchase_price, sale_price, current_stock, min_stock, max_stock,
			safety_stock, expiry_date, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, TRUE)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		a.ID, a.StoreID, a.Code, a.Designation, a.Description, a.Barcode, a.Unit,
		a.PurchasePrice, a.SalePrice, a.CurrentStock, a.MinStock, a.MaxStock,
		a.SafetyStock, a.ExpiryDate,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	a.IsActive = true
	return nil
}

// GetByID gets an article by ID
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*Article, error) {
	var a Article
	query := `SELECT * FROM articles WHERE id = $1`
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("article")
		}
		return nil, err
	}
	return &a, nil
}

// GetByCode gets an article by its code within a store
func (r *ArticleRepository) GetByCode(ctx context.Context, storeID, code string) (*Article, error) {
	var a Article
	query := `SELECT * FROM articles WHERE store_id = $1 AND code = $2`
	if err := r.db.GetContext(ctx, &a, query, storeID, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("article")
		}
		return nil, err
	}
	return &a, nil
}

// List lists articles with filtering and pagination
func (r *ArticleRepository) List(ctx context.Context, f ArticleFilter) ([]*Article, int64, error) {
	where := ` WHERE store_id = $1`
	args := []interface{}{f.StoreID}

	if f.ActiveOnly {
		where += ` AND is_active = TRUE`
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (designation ILIKE $%d OR code ILIKE $%d OR barcode ILIKE $%d)`,
			len(args), len(args), len(args))
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM articles`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT * FROM articles` + where + ` ORDER BY designation`
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var articles []*Article
	if err := r.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// ListActiveByStore lists all active articles of a store. Used by the alert
// scanner and the forecast batch.
func (r *ArticleRepository) ListActiveByStore(ctx context.Context, storeID string) ([]*Article, error) {
	var articles []*Article
	query := `SELECT * FROM articles WHERE store_id = $1 AND is_active = TRUE ORDER BY code`
	if err := r.db.SelectContext(ctx, &articles, query, storeID); err != nil {
		return nil, err
	}
	return articles, nil
}

// ListLowStock lists active articles at or below their minimum stock
func (r *ArticleRepository) ListLowStock(ctx context.Context, storeID string) ([]*Article, error) {
	var articles []*Article
	query := `
		SELECT * FROM articles
		WHERE store_id = $1 AND is_active = TRUE AND current_stock <= min_stock
		ORDER BY current_stock, designation
	`
	if err := r.db.SelectContext(ctx, &articles, query, storeID); err != nil {
		return nil, err
	}
	return articles, nil
}

// Update updates an article's catalog fields. Stock levels change only
// through stock movements.
func (r *ArticleRepository) Update(ctx context.Context, a *Article) error {
	query := `
		UPDATE articles
		SET code = $2, designation = $3, description = $4, barcode = $5, unit = $6,
			purchase_price = $7, sale_price = $8, min_stock = $9, max_stock = $10,
			safety_stock = $11, expiry_date = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		a.ID, a.Code, a.Designation, a.Description, a.Barcode, a.Unit,
		a.PurchasePrice, a.SalePrice, a.MinStock, a.MaxStock, a.SafetyStock, a.ExpiryDate,
	).Scan(&a.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("article")
	}
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// Deactivate soft deletes an article. History stays intact.
func (r *ArticleRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("article")
	}
	return nil
}

// ApplyStockDelta adjusts current_stock inside a transaction. A negative
// delta that would take the stock below zero fails the check constraint.
func (r *ArticleRepository) ApplyStockDelta(ctx context.Context, tx *sqlx.Tx, articleID string, delta int) (int, error) {
	var newStock int
	query := `
		UPDATE articles
		SET current_stock = current_stock + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING current_stock
	`
	err := tx.QueryRowxContext(ctx, query, articleID, delta).Scan(&newStock)
	if err == sql.ErrNoRows {
		return 0, errors.NotFound("article")
	}
	if err != nil {
		return 0, database.MapPQError(err)
	}
	return newStock, nil
}

// SetStock sets current_stock to an absolute value inside a transaction
func (r *ArticleRepository) SetStock(ctx context.Context, tx *sqlx.Tx, articleID string, quantity int) (int, error) {
	var newStock int
	query := `
		UPDATE articles
		SET current_stock = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING current_stock
	`
	err := tx.QueryRowxContext(ctx, query, articleID, quantity).Scan(&newStock)
	if err == sql.ErrNoRows {
		return 0, errors.NotFound("article")
	}
	if err != nil {
		return 0, database.MapPQError(err)
	}
	return newStock, nil
}

// LockForUpdate reads an article with a row lock inside a transaction
func (r *ArticleRepository) LockForUpdate(ctx context.Context, tx *sqlx.Tx, articleID string) (*Article, error) {
	var a Article
	query := `SELECT * FROM articles WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &a, query, articleID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("article")
		}
		return nil, err
	}
	return &a, nil
}
