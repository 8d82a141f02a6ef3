// Package testutil provides testing utilities for the StockFlow backend.
// It includes a testcontainers PostgreSQL harness, a sqlmock factory and
// common test fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "stockflow_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "stockflow_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// ApplySchema creates all StockFlow tables in the test database
func (c *PostgresContainer) ApplySchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	return err
}

// Schema is the full StockFlow database schema, used by the integration
// harness. Kept in sync with deployments by hand.
const Schema = `
CREATE TABLE IF NOT EXISTS companies (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name VARCHAR(100) NOT NULL,
	tax_id VARCHAR(50),
	address TEXT,
	city VARCHAR(100),
	postal_code VARCHAR(20),
	phone VARCHAR(30),
	email VARCHAR(255),
	currency VARCHAR(3) NOT NULL DEFAULT 'TND',
	secondary_currency VARCHAR(3),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS stores (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	name VARCHAR(100) NOT NULL,
	code VARCHAR(20) NOT NULL,
	address TEXT,
	city VARCHAR(100),
	phone VARCHAR(30),
	is_main BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (company_id, code)
);

CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	email VARCHAR(255) UNIQUE NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	full_name VARCHAR(100) NOT NULL,
	phone VARCHAR(30),
	role VARCHAR(20) NOT NULL DEFAULT 'EMPLOYEE',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS articles (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	store_id UUID NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	code VARCHAR(50) NOT NULL,
	designation VARCHAR(200) NOT NULL,
	description TEXT,
	barcode VARCHAR(100),
	unit VARCHAR(20) NOT NULL DEFAULT 'unite',
	purchase_price NUMERIC(12,3) NOT NULL DEFAULT 0,
	sale_price NUMERIC(12,3) NOT NULL DEFAULT 0,
	current_stock INTEGER NOT NULL DEFAULT 0,
	min_stock INTEGER NOT NULL DEFAULT 0,
	max_stock INTEGER NOT NULL DEFAULT 100,
	safety_stock INTEGER NOT NULL DEFAULT 0,
	expiry_date TIMESTAMPTZ,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (store_id, code),
	CONSTRAINT articles_stock_non_negative CHECK (current_stock >= 0)
);

CREATE TABLE IF NOT EXISTS suppliers (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	name VARCHAR(100) NOT NULL,
	type VARCHAR(20) NOT NULL DEFAULT 'FORMEL',
	phone VARCHAR(30),
	email VARCHAR(255),
	address TEXT,
	city VARCHAR(100),
	tax_id VARCHAR(50),
	lead_time_days INTEGER,
	reliability_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS stock_movements (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	store_id UUID NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	supplier_id UUID REFERENCES suppliers(id),
	movement_type VARCHAR(20) NOT NULL,
	quantity INTEGER NOT NULL,
	unit_price NUMERIC(12,3),
	reason TEXT,
	reference_doc VARCHAR(100),
	moved_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT stock_movements_movement_type_valid
		CHECK (movement_type IN ('entree', 'sortie', 'ajustement', 'retour'))
);

CREATE TABLE IF NOT EXISTS transfers (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	reference VARCHAR(50) UNIQUE NOT NULL,
	article_id UUID NOT NULL REFERENCES articles(id),
	origin_store_id UUID NOT NULL REFERENCES stores(id),
	dest_store_id UUID NOT NULL REFERENCES stores(id),
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
	shipped_at TIMESTAMPTZ,
	received_at TIMESTAMPTZ,
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS purchase_orders (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	reference VARCHAR(50) UNIQUE NOT NULL,
	supplier_id UUID NOT NULL REFERENCES suppliers(id),
	store_id UUID NOT NULL REFERENCES stores(id),
	status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
	total_amount NUMERIC(14,3) NOT NULL DEFAULT 0,
	ordered_at TIMESTAMPTZ,
	expected_delivery TIMESTAMPTZ,
	delivered_at TIMESTAMPTZ,
	notes TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS purchase_order_lines (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	order_id UUID NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
	article_id UUID NOT NULL REFERENCES articles(id),
	quantity_ordered INTEGER NOT NULL CHECK (quantity_ordered > 0),
	quantity_received INTEGER NOT NULL DEFAULT 0,
	unit_price NUMERIC(12,3) NOT NULL,
	line_total NUMERIC(14,3) NOT NULL
);

CREATE TABLE IF NOT EXISTS sales (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	store_id UUID NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	unit_price NUMERIC(12,3),
	sold_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_sales_article_store_date ON sales(article_id, store_id, sold_at);

CREATE TABLE IF NOT EXISTS forecasts (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	store_id UUID NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	period_start TIMESTAMPTZ NOT NULL,
	period_end TIMESTAMPTZ NOT NULL,
	predicted_quantity DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	algorithm VARCHAR(50) NOT NULL,
	model_version VARCHAR(20) NOT NULL,
	mape DOUBLE PRECISION NOT NULL DEFAULT 0,
	wmape DOUBLE PRECISION NOT NULL DEFAULT 0,
	coverage DOUBLE PRECISION NOT NULL DEFAULT 0,
	sample_count INTEGER NOT NULL DEFAULT 0,
	computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT forecasts_article_store_period_key UNIQUE (article_id, store_id, period_start)
);

CREATE TABLE IF NOT EXISTS alerts (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	article_id UUID REFERENCES articles(id) ON DELETE CASCADE,
	store_id UUID NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
	kind VARCHAR(20) NOT NULL,
	severity VARCHAR(20) NOT NULL,
	message TEXT NOT NULL,
	is_seen BOOLEAN NOT NULL DEFAULT FALSE,
	is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
	resolved_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT alerts_alert_kind_valid CHECK (kind IN ('STOCKOUT', 'LOW_STOCK', 'EXPIRY_SOON')),
	CONSTRAINT alerts_severity_valid CHECK (severity IN ('CRITICAL', 'HIGH', 'MEDIUM'))
);
CREATE INDEX IF NOT EXISTS idx_alerts_store_created ON alerts(store_id, created_at);

CREATE TABLE IF NOT EXISTS notifications (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	company_id UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
	type VARCHAR(50) NOT NULL,
	title VARCHAR(200) NOT NULL,
	message TEXT NOT NULL,
	channel VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
	recipient VARCHAR(255),
	sent_at TIMESTAMPTZ,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT notifications_channel_valid CHECK (channel IN ('WHATSAPP', 'EMAIL', 'IN_APP')),
	CONSTRAINT notifications_notification_status_valid CHECK (status IN ('PENDING', 'SENT', 'FAILED'))
);
CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status, created_at);
`
