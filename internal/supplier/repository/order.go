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

// Purchase order statuses
const (
	OrderDraft     = "DRAFT"
	OrderConfirmed = "CONFIRMED"
	OrderReceived  = "RECEIVED"
	OrderCancelled = "CANCELLED"
)

// PurchaseOrder represents an order placed with a supplier
type PurchaseOrder struct {
	ID               string          `db:"id" json:"id"`
	Reference        string          `db:"reference" json:"reference"`
	SupplierID       string          `db:"supplier_id" json:"supplier_id"`
	StoreID          string          `db:"store_id" json:"store_id"`
	Status           string          `db:"status" json:"statut"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"montant_total"`
	OrderedAt        *time.Time      `db:"ordered_at" json:"date_commande,omitempty"`
	ExpectedDelivery *time.Time      `db:"expected_delivery" json:"date_livraison_prevue,omitempty"`
	DeliveredAt      *time.Time      `db:"delivered_at" json:"date_livraison_reelle,omitempty"`
	Notes            *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`

	Lines []*OrderLine `db:"-" json:"lignes,omitempty"`
}

// OrderLine is one article position on a purchase order
type OrderLine struct {
	ID               string          `db:"id" json:"id"`
	OrderID          string          `db:"order_id" json:"order_id"`
	ArticleID        string          `db:"article_id" json:"article_id"`
	QuantityOrdered  int             `db:"quantity_ordered" json:"quantite_commandee"`
	QuantityReceived int             `db:"quantity_received" json:"quantite_recue"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"prix_unitaire"`
	LineTotal        decimal.Decimal `db:"line_total" json:"montant_total"`
}

// Remaining returns how many units are still expected on the line
func (l *OrderLine) Remaining() int {
	return l.QuantityOrdered - l.QuantityReceived
}

// OrderRepository handles purchase order persistence
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateTx inserts an order and its lines inside an open transaction.
// References follow the BC-<year>-<seq> format.
func (r *OrderRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, o *PurchaseOrder) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Reference == "" {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM purchase_orders`); err != nil {
			return fmt.Errorf("count purchase orders: %w", err)
		}
		o.Reference = fmt.Sprintf("BC-%d-%04d", time.Now().Year(), count+1)
	}

	query := `
		INSERT INTO purchase_orders (id, reference, supplier_id, store_id, status, total_amount, notes)
		VALUES ($1, $2, $3, $4, 'DRAFT', $5, $6)
		RETURNING status, created_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query,
		o.ID, o.Reference, o.SupplierID, o.StoreID, o.TotalAmount, o.Notes,
	).Scan(&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}

	for _, line := range o.Lines {
		if line.ID == "" {
			line.ID = uuid.New().String()
		}
		line.OrderID = o.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_order_lines (id, order_id, article_id, quantity_ordered, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			line.ID, line.OrderID, line.ArticleID, line.QuantityOrdered, line.UnitPrice, line.LineTotal,
		)
		if err != nil {
			return database.MapPQError(err)
		}
	}
	return nil
}

// GetByID gets an order with its lines
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*PurchaseOrder, error) {
	var o PurchaseOrder
	err := r.db.GetContext(ctx, &o, `SELECT * FROM purchase_orders WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("purchase order")
	}
	if err != nil {
		return nil, err
	}

	o.Lines = []*OrderLine{}
	err = r.db.SelectContext(ctx, &o.Lines,
		`SELECT * FROM purchase_order_lines WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByCompany lists orders of a company, newest first. Lines are not loaded.
func (r *OrderRepository) ListByCompany(ctx context.Context, companyID string, page, perPage int) ([]*PurchaseOrder, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}

	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM purchase_orders o
		JOIN stores s ON s.id = o.store_id
		WHERE s.company_id = $1`, companyID)
	if err != nil {
		return nil, 0, err
	}

	orders := []*PurchaseOrder{}
	err = r.db.SelectContext(ctx, &orders, `
		SELECT o.* FROM purchase_orders o
		JOIN stores s ON s.id = o.store_id
		WHERE s.company_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3`, companyID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListBySupplier lists orders placed with one supplier, newest first
func (r *OrderRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*PurchaseOrder, error) {
	orders := []*PurchaseOrder{}
	err := r.db.SelectContext(ctx, &orders, `
		SELECT * FROM purchase_orders WHERE supplier_id = $1 ORDER BY created_at DESC`, supplierID)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatusTx moves an order to a new status inside an open transaction.
// The fromStatus guard rejects stale transitions.
func (r *OrderRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id, fromStatus, toStatus string) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE purchase_orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, fromStatus, toStatus)
	if err != nil {
		return database.MapPQError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Conflict(fmt.Sprintf("purchase order is not in %s status", fromStatus))
	}
	return nil
}

// ConfirmTx marks a draft order confirmed with its delivery date
func (r *OrderRepository) ConfirmTx(ctx context.Context, tx *sqlx.Tx, id string, expectedDelivery *time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = 'CONFIRMED', ordered_at = NOW(), expected_delivery = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'DRAFT'`, id, expectedDelivery)
	if err != nil {
		return database.MapPQError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Conflict("only draft orders can be confirmed")
	}
	return nil
}

// GetLineTx loads one order line with a row lock
func (r *OrderRepository) GetLineTx(ctx context.Context, tx *sqlx.Tx, lineID string) (*OrderLine, error) {
	var line OrderLine
	err := tx.GetContext(ctx, &line,
		`SELECT * FROM purchase_order_lines WHERE id = $1 FOR UPDATE`, lineID)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("order line")
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// AddLineReceivedTx adds a received quantity to a line
func (r *OrderRepository) AddLineReceivedTx(ctx context.Context, tx *sqlx.Tx, lineID string, quantity int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE purchase_order_lines
		SET quantity_received = quantity_received + $2
		WHERE id = $1`, lineID, quantity)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// MarkDeliveredTx stamps a fully received order
func (r *OrderRepository) MarkDeliveredTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = 'RECEIVED', delivered_at = NOW(), updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// CountPendingLinesTx counts lines not yet fully received
func (r *OrderRepository) CountPendingLinesTx(ctx context.Context, tx *sqlx.Tx, orderID string) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM purchase_order_lines
		WHERE order_id = $1 AND quantity_received < quantity_ordered`, orderID)
	return n, err
}
