package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/errors"
)

// User roles
const (
	RoleOwner    = "OWNER"
	RoleManager  = "MANAGER"
	RoleEmployee = "EMPLOYEE"
)

// User represents an account on the platform
type User struct {
	ID           string    `db:"id" json:"id"`
	CompanyID    string    `db:"company_id" json:"company_id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserRepository handles user persistence
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a user
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Role == "" {
		u.Role = RoleEmployee
	}

	query := `
		INSERT INTO users (id, company_id, email, password_hash, full_name, phone, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		u.ID, u.CompanyID, u.Email, u.PasswordHash, u.FullName, u.Phone, u.Role,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	u.IsActive = true
	return nil
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	var u User
	query := `SELECT * FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("user")
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	query := `SELECT * FROM users WHERE email = $1`
	if err := r.db.GetContext(ctx, &u, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("user")
		}
		return nil, err
	}
	return &u, nil
}

// ListByCompany lists the users of a company
func (r *UserRepository) ListByCompany(ctx context.Context, companyID string) ([]*User, error) {
	var users []*User
	query := `SELECT * FROM users WHERE company_id = $1 ORDER BY full_name`
	if err := r.db.SelectContext(ctx, &users, query, companyID); err != nil {
		return nil, err
	}
	return users, nil
}

// ListNotifiable lists active owners and managers of a company who have a
// phone number on file. Alert notifications fan out to these.
func (r *UserRepository) ListNotifiable(ctx context.Context, companyID string) ([]*User, error) {
	var users []*User
	query := `
		SELECT * FROM users
		WHERE company_id = $1
			AND is_active = TRUE
			AND role IN ('OWNER', 'MANAGER')
			AND phone IS NOT NULL
		ORDER BY role, full_name
	`
	if err := r.db.SelectContext(ctx, &users, query, companyID); err != nil {
		return nil, err
	}
	return users, nil
}

// Deactivate disables a user account
func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("user")
	}
	return nil
}
