package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// Notification channels
const (
	ChannelWhatsApp = "WHATSAPP"
	ChannelEmail    = "EMAIL"
	ChannelInApp    = "IN_APP"
)

// Notification statuses
const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

// Notification is one queued message for one recipient on one channel
type Notification struct {
	ID           string     `db:"id" json:"id"`
	CompanyID    string     `db:"company_id" json:"company_id"`
	Type         string     `db:"type" json:"type"`
	Title        string     `db:"title" json:"titre"`
	Message      string     `db:"message" json:"message"`
	Channel      string     `db:"channel" json:"canal"`
	Status       string     `db:"status" json:"statut"`
	Recipient    *string    `db:"recipient" json:"destinataire,omitempty"`
	SentAt       *time.Time `db:"sent_at" json:"date_envoi,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"erreur,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// NotificationRepository handles notification persistence
type NotificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create queues a notification in PENDING status
func (r *NotificationRepository) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	query := `
		INSERT INTO notifications (id, company_id, type, title, message, channel, status, recipient)
		VALUES ($1, $2, $3, $4, $5, $6, 'PENDING', $7)
		RETURNING status, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		n.ID, n.CompanyID, n.Type, n.Title, n.Message, n.Channel, n.Recipient,
	).Scan(&n.Status, &n.CreatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// CreateSent records a notification that was already delivered
func (r *NotificationRepository) CreateSent(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	query := `
		INSERT INTO notifications (id, company_id, type, title, message, channel, status, recipient, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'SENT', $7, NOW())
		RETURNING status, sent_at, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		n.ID, n.CompanyID, n.Type, n.Title, n.Message, n.Channel, n.Recipient,
	).Scan(&n.Status, &n.SentAt, &n.CreatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// ListPendingTx locks and returns the oldest pending notifications, up to
// limit. Rows locked by another transaction are skipped, so two concurrent
// drains never pick the same notification.
func (r *NotificationRepository) ListPendingTx(ctx context.Context, tx *sqlx.Tx, limit int) ([]*Notification, error) {
	var notifications []*Notification
	query := `
		SELECT * FROM notifications
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	if err := tx.SelectContext(ctx, &notifications, query, limit); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkSentTx flags a notification as delivered
func (r *NotificationRepository) MarkSentTx(ctx context.Context, tx *sqlx.Tx, id string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE notifications SET status = 'SENT', sent_at = NOW(), error_message = NULL WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result, "notification")
}

// MarkFailedTx flags a notification as failed with the delivery error
func (r *NotificationRepository) MarkFailedTx(ctx context.Context, tx *sqlx.Tx, id, errorMessage string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE notifications SET status = 'FAILED', error_message = $2 WHERE id = $1`, id, errorMessage)
	if err != nil {
		return err
	}
	return requireRow(result, "notification")
}

// ListByCompany lists a company's notifications, newest first
func (r *NotificationRepository) ListByCompany(ctx context.Context, companyID string, limit int) ([]*Notification, error) {
	var notifications []*Notification
	query := `
		SELECT * FROM notifications
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &notifications, query, companyID, limit); err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountByStatus counts a company's notifications per status
func (r *NotificationRepository) CountByStatus(ctx context.Context, companyID string) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT status, COUNT(*) FROM notifications
		WHERE company_id = $1
		GROUP BY status
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func requireRow(result interface{ RowsAffected() (int64, error) }, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
