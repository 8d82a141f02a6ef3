package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// Company represents a small business using the platform
type Company struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	TaxID             *string   `db:"tax_id" json:"tax_id,omitempty"`
	Address           *string   `db:"address" json:"address,omitempty"`
	City              *string   `db:"city" json:"city,omitempty"`
	PostalCode        *string   `db:"postal_code" json:"postal_code,omitempty"`
	Phone             *string   `db:"phone" json:"phone,omitempty"`
	Email             *string   `db:"email" json:"email,omitempty"`
	Currency          string    `db:"currency" json:"currency"`
	SecondaryCurrency *string   `db:"secondary_currency" json:"secondary_currency,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// CompanyRepository handles company persistence
type CompanyRepository struct {
	db *database.DB
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *database.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create creates a new company
func (r *CompanyRepository) Create(ctx context.Context, c *Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Currency == "" {
		c.Currency = "TND"
	}

	query := `
		INSERT INTO companies (id, name, tax_id, address, city, postal_code, phone, email, currency, secondary_currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID, c.Name, c.TaxID, c.Address, c.City, c.PostalCode,
		c.Phone, c.Email, c.Currency, c.SecondaryCurrency,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets a company by ID
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*Company, error) {
	var c Company
	query := `SELECT * FROM companies WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("company")
		}
		return nil, err
	}
	return &c, nil
}

// Update updates a company's profile fields
func (r *CompanyRepository) Update(ctx context.Context, c *Company) error {
	query := `
		UPDATE companies
		SET name = $2, tax_id = $3, address = $4, city = $5, postal_code = $6,
			phone = $7, email = $8, currency = $9, secondary_currency = $10,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID, c.Name, c.TaxID, c.Address, c.City, c.PostalCode,
		c.Phone, c.Email, c.Currency, c.SecondaryCurrency,
	).Scan(&c.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("company")
	}
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}
