package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// Supplier types
const (
	SupplierFormal   = "FORMEL"
	SupplierInformal = "INFORMEL"
)

// Supplier represents a supplier of a company
type Supplier struct {
	ID               string    `db:"id" json:"id"`
	CompanyID        string    `db:"company_id" json:"company_id"`
	Name             string    `db:"name" json:"name"`
	Type             string    `db:"type" json:"type"`
	Phone            *string   `db:"phone" json:"phone,omitempty"`
	Email            *string   `db:"email" json:"email,omitempty"`
	Address          *string   `db:"address" json:"address,omitempty"`
	City             *string   `db:"city" json:"city,omitempty"`
	TaxID            *string   `db:"tax_id" json:"tax_id,omitempty"`
	LeadTimeDays     *int      `db:"lead_time_days" json:"lead_time_days,omitempty"`
	ReliabilityScore float64   `db:"reliability_score" json:"reliability_score"`
	Notes            *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SupplierRepository handles supplier persistence
type SupplierRepository struct {
	db *database.DB
}

// NewSupplierRepository creates a new supplier repository
func NewSupplierRepository(db *database.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create creates a new supplier
func (r *SupplierRepository) Create(ctx context.Context, s *Supplier) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Type == "" {
		s.Type = SupplierFormal
	}

	query := `
		INSERT INTO suppliers (id, company_id, name, type, phone, email, address, city,
			tax_id, lead_time_days, reliability_score, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.CompanyID, s.Name, s.Type, s.Phone, s.Email, s.Address, s.City,
		s.TaxID, s.LeadTimeDays, s.ReliabilityScore, s.Notes,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets a supplier by ID
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*Supplier, error) {
	var s Supplier
	err := r.db.GetContext(ctx, &s, `SELECT * FROM suppliers WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("supplier")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByCompany lists suppliers of a company ordered by name
func (r *SupplierRepository) ListByCompany(ctx context.Context, companyID string) ([]*Supplier, error) {
	suppliers := []*Supplier{}
	err := r.db.SelectContext(ctx, &suppliers, `
		SELECT * FROM suppliers WHERE company_id = $1 ORDER BY name ASC`, companyID)
	if err != nil {
		return nil, err
	}
	return suppliers, nil
}

// Update updates a supplier
func (r *SupplierRepository) Update(ctx context.Context, s *Supplier) error {
	query := `
		UPDATE suppliers
		SET name = $2, type = $3, phone = $4, email = $5, address = $6, city = $7,
			tax_id = $8, lead_time_days = $9, reliability_score = $10, notes = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.Name, s.Type, s.Phone, s.Email, s.Address, s.City,
		s.TaxID, s.LeadTimeDays, s.ReliabilityScore, s.Notes,
	).Scan(&s.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("supplier")
	}
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// Delete deletes a supplier
func (r *SupplierRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return database.MapPQError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("supplier")
	}
	return nil
}
