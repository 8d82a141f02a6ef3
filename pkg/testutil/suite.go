package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

var (
	sharedContainer *PostgresContainer
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite bundles everything an integration test needs: a real
// PostgreSQL database with the full schema applied, and fixture factories
// scoped to a fresh company.
type IntegrationSuite struct {
	T        *testing.T
	DB       *database.DB
	Raw      *sqlx.DB
	Fixtures *FixtureFactory
}

// NewIntegrationSuite starts (or reuses) the shared PostgreSQL container and
// returns a suite bound to it. Tests calling this must first pass
// RequireIntegration.
func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	t.Helper()
	RequireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	containerOnce.Do(func() {
		sharedContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		var db *sqlx.DB
		db, containerErr = sharedContainer.Connect(ctx)
		if containerErr != nil {
			return
		}
		defer db.Close()
		containerErr = sharedContainer.ApplySchema(ctx, db)
	})
	require.NoError(t, containerErr, "shared postgres container")

	raw, err := sharedContainer.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	db := database.Wrap(raw, logger.Nop())

	return &IntegrationSuite{
		T:        t,
		DB:       db,
		Raw:      raw,
		Fixtures: NewFixtureFactory(raw),
	}
}

// RequireIntegration skips the test unless STOCKFLOW_INTEGRATION is set.
// Integration tests need a local Docker daemon.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("STOCKFLOW_INTEGRATION") == "" {
		t.Skip("set STOCKFLOW_INTEGRATION=1 to run integration tests")
	}
}

// TruncateAll wipes every table so a test starts from a clean slate.
func (s *IntegrationSuite) TruncateAll(ctx context.Context) {
	s.T.Helper()
	_, err := s.Raw.ExecContext(ctx, `
		TRUNCATE notifications, alerts, forecasts, sales,
			purchase_order_lines, purchase_orders, transfers,
			stock_movements, suppliers, articles, users, stores, companies
		CASCADE`)
	require.NoError(s.T, err)
}

// CountRows returns the number of rows in a table, handy for assertions.
func (s *IntegrationSuite) CountRows(ctx context.Context, table string) int {
	s.T.Helper()
	var n int
	err := s.Raw.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	require.NoError(s.T, err)
	return n
}
