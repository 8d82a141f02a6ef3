package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// Alert kinds
const (
	KindStockout   = "STOCKOUT"
	KindLowStock   = "LOW_STOCK"
	KindExpirySoon = "EXPIRY_SOON"
)

// Alert severities
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
)

// Alert is one condition flagged by a stock scan. Scans append, they never
// rewrite past alerts.
type Alert struct {
	ID         string     `db:"id" json:"id"`
	ArticleID  *string    `db:"article_id" json:"article_id,omitempty"`
	StoreID    string     `db:"store_id" json:"store_id"`
	Kind       string     `db:"kind" json:"type"`
	Severity   string     `db:"severity" json:"niveau"`
	Message    string     `db:"message" json:"message"`
	IsSeen     bool       `db:"is_seen" json:"est_vue"`
	IsResolved bool       `db:"is_resolved" json:"est_resolue"`
	ResolvedAt *time.Time `db:"resolved_at" json:"date_resolution,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// AlertFilter narrows alert listings
type AlertFilter struct {
	StoreID    string
	Kind       string
	Severity   string
	UnseenOnly bool
	Unresolved bool
	Page       int
	PerPage    int
}

// AlertRepository handles alert persistence
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create creates an alert
func (r *AlertRepository) Create(ctx context.Context, a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query := `
		INSERT INTO alerts (id, article_id, store_id, kind, severity, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		a.ID, a.ArticleID, a.StoreID, a.Kind, a.Severity, a.Message,
	).Scan(&a.CreatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// List lists alerts with filtering, most severe and newest first
func (r *AlertRepository) List(ctx context.Context, f AlertFilter) ([]*Alert, int64, error) {
	where := ` WHERE store_id = $1`
	args := []interface{}{f.StoreID}

	if f.Kind != "" {
		args = append(args, f.Kind)
		where += fmt.Sprintf(` AND kind = $%d`, len(args))
	}
	if f.Severity != "" {
		args = append(args, f.Severity)
		where += fmt.Sprintf(` AND severity = $%d`, len(args))
	}
	if f.UnseenOnly {
		where += ` AND is_seen = FALSE`
	}
	if f.Unresolved {
		where += ` AND is_resolved = FALSE`
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM alerts`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT * FROM alerts` + where + `
		ORDER BY CASE severity WHEN 'CRITICAL' THEN 0 WHEN 'HIGH' THEN 1 ELSE 2 END,
			created_at DESC`
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var alerts []*Alert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// MarkSeen flags an alert as seen
func (r *AlertRepository) MarkSeen(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE alerts SET is_seen = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("alert")
	}
	return nil
}

// Resolve flags an alert as resolved
func (r *AlertRepository) Resolve(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET is_resolved = TRUE, resolved_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("alert")
	}
	return nil
}

// CountUnresolvedByStore counts open alerts per severity for dashboards
func (r *AlertRepository) CountUnresolvedByStore(ctx context.Context, storeID string) (map[string]int, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT severity, COUNT(*) FROM alerts
		WHERE store_id = $1 AND is_resolved = FALSE
		GROUP BY severity
	`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, err
		}
		counts[severity] = count
	}
	return counts, rows.Err()
}
