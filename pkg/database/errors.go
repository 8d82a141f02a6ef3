package database

import (
	goerrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful
// messages. Errors that are not recognized constraint violations pass
// through unchanged.
func MapPQError(err error) error {
	var pqErr *pq.Error
	if !goerrors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return err
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "movement_type_valid"):
		return errors.Validation(map[string]string{
			"type": "must be one of: entree, sortie, ajustement, retour",
		})

	case strings.Contains(constraint, "stock_non_negative"):
		return errors.Validation(map[string]string{
			"current_stock": "must not be negative",
		})

	case strings.Contains(constraint, "alert_kind_valid"):
		return errors.Validation(map[string]string{
			"kind": "must be one of: STOCKOUT, LOW_STOCK, EXPIRY_SOON",
		})

	case strings.Contains(constraint, "notification_status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: PENDING, SENT, FAILED",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "articles_code"):
		return "an article with this code already exists in the store"
	case strings.Contains(constraint, "forecasts_article_store_period"):
		return "a forecast already exists for this article, store and period"
	case strings.Contains(constraint, "email"):
		return "a user with this email already exists"
	default:
		return "a record with these values already exists"
	}
}
