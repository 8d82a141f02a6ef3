package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// Transfer statuses
const (
	TransferPending   = "PENDING"
	TransferShipped   = "SHIPPED"
	TransferReceived  = "RECEIVED"
	TransferCancelled = "CANCELLED"
)

// Transfer represents a stock transfer between two stores
type Transfer struct {
	ID            string     `db:"id" json:"id"`
	Reference     string     `db:"reference" json:"reference"`
	ArticleID     string     `db:"article_id" json:"article_id"`
	OriginStoreID string     `db:"origin_store_id" json:"origin_store_id"`
	DestStoreID   string     `db:"dest_store_id" json:"dest_store_id"`
	Quantity      int        `db:"quantity" json:"quantite"`
	Status        string     `db:"status" json:"statut"`
	ShippedAt     *time.Time `db:"shipped_at" json:"shipped_at,omitempty"`
	ReceivedAt    *time.Time `db:"received_at" json:"received_at,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// TransferRepository handles transfer persistence
type TransferRepository struct {
	db *database.DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *database.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create creates a pending transfer
func (r *TransferRepository) Create(ctx context.Context, t *Transfer) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Reference == "" {
		t.Reference = fmt.Sprintf("TRF-%s", time.Now().Format("20060102-150405"))
	}

	query := `
		INSERT INTO transfers (id, reference, article_id, origin_store_id, dest_store_id, quantity, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, 'PENDING', $7)
		RETURNING status, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		t.ID, t.Reference, t.ArticleID, t.OriginStoreID, t.DestStoreID, t.Quantity, t.Notes,
	).Scan(&t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets a transfer by ID
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*Transfer, error) {
	var t Transfer
	query := `SELECT * FROM transfers WHERE id = $1`
	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("transfer")
		}
		return nil, err
	}
	return &t, nil
}

// ListByStore lists transfers where the store is origin or destination
func (r *TransferRepository) ListByStore(ctx context.Context, storeID string) ([]*Transfer, error) {
	var transfers []*Transfer
	query := `
		SELECT * FROM transfers
		WHERE origin_store_id = $1 OR dest_store_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &transfers, query, storeID); err != nil {
		return nil, err
	}
	return transfers, nil
}

// UpdateStatusTx moves a transfer to a new status inside an open transaction.
// The fromStatus guard makes ship/receive idempotent under concurrency.
func (r *TransferRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id, fromStatus, toStatus string, timestampCol string) error {
	query := fmt.Sprintf(`
		UPDATE transfers
		SET status = $3, %s = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, timestampCol)

	result, err := tx.ExecContext(ctx, query, id, fromStatus, toStatus)
	if err != nil {
		return database.MapPQError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Conflict(fmt.Sprintf("transfer is not in %s status", fromStatus))
	}
	return nil
}

// Cancel cancels a pending transfer
func (r *TransferRepository) Cancel(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE transfers SET status = 'CANCELLED', updated_at = NOW() WHERE id = $1 AND status = 'PENDING'`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Conflict("only pending transfers can be cancelled")
	}
	return nil
}
