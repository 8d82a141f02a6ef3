package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// Store represents a point of sale or warehouse belonging to a company
type Store struct {
	ID        string    `db:"id" json:"id"`
	CompanyID string    `db:"company_id" json:"company_id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	Address   *string   `db:"address" json:"address,omitempty"`
	City      *string   `db:"city" json:"city,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	IsMain    bool      `db:"is_main" json:"is_main"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StoreRepository handles store persistence
type StoreRepository struct {
	db *database.DB
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *database.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// Create creates a new store
func (r *StoreRepository) Create(ctx context.Context, s *Store) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stores (id, company_id, name, code, address, city, phone, is_main)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.CompanyID, s.Name, s.Code, s.Address, s.City, s.Phone, s.IsMain,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets a store by ID
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*Store, error) {
	var s Store
	query := `SELECT * FROM stores WHERE id = $1`
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("store")
		}
		return nil, err
	}
	return &s, nil
}

// ListByCompany lists all stores of a company, main store first
func (r *StoreRepository) ListByCompany(ctx context.Context, companyID string) ([]*Store, error) {
	var stores []*Store
	query := `SELECT * FROM stores WHERE company_id = $1 ORDER BY is_main DESC, name`
	if err := r.db.SelectContext(ctx, &stores, query, companyID); err != nil {
		return nil, err
	}
	return stores, nil
}

// ListAll lists every store across all companies. Used by batch jobs.
func (r *StoreRepository) ListAll(ctx context.Context) ([]*Store, error) {
	var stores []*Store
	query := `SELECT * FROM stores ORDER BY company_id, name`
	if err := r.db.SelectContext(ctx, &stores, query); err != nil {
		return nil, err
	}
	return stores, nil
}

// Update updates a store
func (r *StoreRepository) Update(ctx context.Context, s *Store) error {
	query := `
		UPDATE stores
		SET name = $2, code = $3, address = $4, city = $5, phone = $6, is_main = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.Name, s.Code, s.Address, s.City, s.Phone, s.IsMain,
	).Scan(&s.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("store")
	}
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// Delete deletes a store and everything under it
func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return database.MapPQError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("store")
	}
	return nil
}
