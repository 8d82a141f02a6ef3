package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/stockflow/stockflow-backend/pkg/database"
)

// Movement types. Incoming stock is entree or retour, outgoing is sortie,
// ajustement sets an absolute level.
const (
	MovementEntree     = "entree"
	MovementSortie     = "sortie"
	MovementAjustement = "ajustement"
	MovementRetour     = "retour"
)

// Movement represents one stock movement line
type Movement struct {
	ID           string           `db:"id" json:"id"`
	ArticleID    string           `db:"article_id" json:"article_id"`
	StoreID      string           `db:"store_id" json:"store_id"`
	SupplierID   *string          `db:"supplier_id" json:"supplier_id,omitempty"`
	MovementType string           `db:"movement_type" json:"type"`
	Quantity     int              `db:"quantity" json:"quantite"`
	UnitPrice    *decimal.Decimal `db:"unit_price" json:"unit_price,omitempty"`
	Reason       *string          `db:"reason" json:"motif,omitempty"`
	ReferenceDoc *string          `db:"reference_doc" json:"reference_doc,omitempty"`
	MovedAt      time.Time        `db:"moved_at" json:"date_mouvement"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// MovementFilter narrows movement listings
type MovementFilter struct {
	StoreID   string
	ArticleID string
	Type      string
	From      *time.Time
	To        *time.Time
	Page      int
	PerPage   int
}

// MovementRepository handles stock movement persistence
type MovementRepository struct {
	db *database.DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *database.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// CreateTx inserts a movement inside an open transaction. Movements are
// always written together with the stock level they produced.
func (r *MovementRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, m *Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.MovedAt.IsZero() {
		m.MovedAt = time.Now()
	}

	query := `
		INSERT INTO stock_movements (
			id, article_id, store_id, supplier_id, movement_type, quantity,
			unit_price, reason, reference_doc, moved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := tx.QueryRowxContext(ctx, query,
		m.ID, m.ArticleID, m.StoreID, m.SupplierID, m.MovementType, m.Quantity,
		m.UnitPrice, m.Reason, m.ReferenceDoc, m.MovedAt,
	).Scan(&m.CreatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// List lists movements with filtering, newest first
func (r *MovementRepository) List(ctx context.Context, f MovementFilter) ([]*Movement, int64, error) {
	where := ` WHERE store_id = $1`
	args := []interface{}{f.StoreID}

	if f.ArticleID != "" {
		args = append(args, f.ArticleID)
		where += fmt.Sprintf(` AND article_id = $%d`, len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where += fmt.Sprintf(` AND movement_type = $%d`, len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where += fmt.Sprintf(` AND moved_at >= $%d`, len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += fmt.Sprintf(` AND moved_at < $%d`, len(args))
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM stock_movements`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT * FROM stock_movements` + where + ` ORDER BY moved_at DESC`
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var movements []*Movement
	if err := r.db.SelectContext(ctx, &movements, query, args...); err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// SumOutgoingSince totals sortie quantities for an article since a date.
// Reporting uses this for rotation metrics.
func (r *MovementRepository) SumOutgoingSince(ctx context.Context, articleID string, since time.Time) (int, error) {
	var total int
	query := `
		SELECT COALESCE(SUM(quantity), 0) FROM stock_movements
		WHERE article_id = $1 AND movement_type = 'sortie' AND moved_at >= $2
	`
	if err := r.db.GetContext(ctx, &total, query, articleID, since); err != nil {
		return 0, err
	}
	return total, nil
}
