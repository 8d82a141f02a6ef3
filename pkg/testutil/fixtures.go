package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// FixtureFactory inserts test rows directly, bypassing the service layer.
// Every Create method panics on error; fixtures failing is always a test
// setup bug, not a behavior under test.
type FixtureFactory struct {
	db  *sqlx.DB
	seq int
}

// NewFixtureFactory creates a fixture factory bound to a database connection
func NewFixtureFactory(db *sqlx.DB) *FixtureFactory {
	return &FixtureFactory{db: db}
}

func (f *FixtureFactory) next() int {
	f.seq++
	return f.seq
}

// CreateCompany inserts a company and returns its ID
func (f *FixtureFactory) CreateCompany(ctx context.Context) uuid.UUID {
	id := uuid.New()
	n := f.next()
	f.exec(ctx, `
		INSERT INTO companies (id, name, currency, email)
		VALUES ($1, $2, 'TND', $3)`,
		id, fmt.Sprintf("Societe Test %d", n), fmt.Sprintf("contact%d@test.tn", n))
	return id
}

// CreateStore inserts a store for the given company
func (f *FixtureFactory) CreateStore(ctx context.Context, companyID uuid.UUID) uuid.UUID {
	id := uuid.New()
	n := f.next()
	f.exec(ctx, `
		INSERT INTO stores (id, company_id, name, code, city, is_main)
		VALUES ($1, $2, $3, $4, 'Tunis', TRUE)`,
		id, companyID, fmt.Sprintf("Magasin %d", n), fmt.Sprintf("MAG-%03d", n))
	return id
}

// UserOpts customizes a user fixture
type UserOpts struct {
	Role     string
	Phone    *string
	Inactive bool
	Password string
}

// CreateUser inserts a user. Zero-value opts produce an active OWNER with a
// phone number, the shape the notification fan-out targets.
func (f *FixtureFactory) CreateUser(ctx context.Context, companyID uuid.UUID, opts UserOpts) uuid.UUID {
	if opts.Role == "" {
		opts.Role = "OWNER"
	}
	if opts.Password == "" {
		opts.Password = "test-password"
	}
	if opts.Phone == nil {
		phone := fmt.Sprintf("+2162000%04d", f.seq)
		opts.Phone = &phone
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	id := uuid.New()
	n := f.next()
	f.exec(ctx, `
		INSERT INTO users (id, company_id, email, password_hash, full_name, phone, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, companyID, fmt.Sprintf("user%d@test.tn", n), string(hash),
		fmt.Sprintf("User %d", n), opts.Phone, opts.Role, !opts.Inactive)
	return id
}

// ArticleOpts customizes an article fixture
type ArticleOpts struct {
	CurrentStock int
	MinStock     int
	SafetyStock  int
	ExpiryDate   *time.Time
	SalePrice    float64
}

// CreateArticle inserts an article with the given stock levels
func (f *FixtureFactory) CreateArticle(ctx context.Context, storeID uuid.UUID, opts ArticleOpts) uuid.UUID {
	if opts.SalePrice == 0 {
		opts.SalePrice = 10.5
	}
	id := uuid.New()
	n := f.next()
	f.exec(ctx, `
		INSERT INTO articles (id, store_id, code, designation, unit,
			purchase_price, sale_price, current_stock, min_stock, safety_stock,
			expiry_date, is_active)
		VALUES ($1, $2, $3, $4, 'unite', $5, $6, $7, $8, $9, $10, TRUE)`,
		id, storeID, fmt.Sprintf("ART-%04d", n), fmt.Sprintf("Article %d", n),
		opts.SalePrice*0.7, opts.SalePrice, opts.CurrentStock, opts.MinStock,
		opts.SafetyStock, opts.ExpiryDate)
	return id
}

// CreateSale inserts a sale record dated soldAt
func (f *FixtureFactory) CreateSale(ctx context.Context, articleID, storeID uuid.UUID, quantity int, soldAt time.Time) uuid.UUID {
	id := uuid.New()
	f.exec(ctx, `
		INSERT INTO sales (id, article_id, store_id, quantity, unit_price, sold_at)
		VALUES ($1, $2, $3, $4, 10.5, $5)`,
		id, articleID, storeID, quantity, soldAt)
	return id
}

// CreateSalesHistory spreads quantity evenly over the past `weeks` weeks,
// one sale per week, oldest first. Returns the created sale IDs.
func (f *FixtureFactory) CreateSalesHistory(ctx context.Context, articleID, storeID uuid.UUID, weeks, qtyPerWeek int) []uuid.UUID {
	ids := make([]uuid.UUID, 0, weeks)
	now := time.Now()
	for i := weeks; i >= 1; i-- {
		soldAt := now.AddDate(0, 0, -7*i)
		ids = append(ids, f.CreateSale(ctx, articleID, storeID, qtyPerWeek, soldAt))
	}
	return ids
}

// CreateMovement inserts a stock movement row dated movedAt. Stock levels
// are not touched.
func (f *FixtureFactory) CreateMovement(ctx context.Context, articleID, storeID uuid.UUID, movementType string, quantity int, movedAt time.Time) uuid.UUID {
	id := uuid.New()
	f.exec(ctx, `
		INSERT INTO stock_movements (id, article_id, store_id, movement_type, quantity, moved_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, articleID, storeID, movementType, quantity, movedAt)
	return id
}

// CreateSupplier inserts a supplier for the given company
func (f *FixtureFactory) CreateSupplier(ctx context.Context, companyID uuid.UUID) uuid.UUID {
	id := uuid.New()
	n := f.next()
	f.exec(ctx, `
		INSERT INTO suppliers (id, company_id, name, type, lead_time_days)
		VALUES ($1, $2, $3, 'FORMEL', 3)`,
		id, companyID, fmt.Sprintf("Fournisseur %d", n))
	return id
}

// CreateAlert inserts an alert row directly
func (f *FixtureFactory) CreateAlert(ctx context.Context, storeID uuid.UUID, articleID *uuid.UUID, kind, severity, message string) uuid.UUID {
	id := uuid.New()
	f.exec(ctx, `
		INSERT INTO alerts (id, article_id, store_id, kind, severity, message)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, articleID, storeID, kind, severity, message)
	return id
}

// CreateNotification inserts a pending notification
func (f *FixtureFactory) CreateNotification(ctx context.Context, companyID uuid.UUID, channel, recipient string) uuid.UUID {
	id := uuid.New()
	n := f.next()
	f.exec(ctx, `
		INSERT INTO notifications (id, company_id, type, title, message, channel, status, recipient)
		VALUES ($1, $2, 'STOCK_ALERT', $3, $4, $5, 'PENDING', $6)`,
		id, companyID, fmt.Sprintf("Alerte %d", n), "Stock faible", channel, recipient)
	return id
}

func (f *FixtureFactory) exec(ctx context.Context, query string, args ...any) {
	if _, err := f.db.ExecContext(ctx, query, args...); err != nil {
		panic(fmt.Sprintf("fixture insert failed: %v", err))
	}
}
