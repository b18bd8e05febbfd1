package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/migration"
	"github.com/erp/stockledger/migrations"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newPostgresTestDatabase starts a PostgreSQL container and applies the embedded
// migrations to it.
func newPostgresTestDatabase(t *testing.T) *Database {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.NewFromFS(sqlDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up())

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(3), version)

	return &Database{DB: db}
}

func TestPostgres_LedgerSchema(t *testing.T) {
	f := newRepoFixtureOn(t, newPostgresTestDatabase(t))
	ctx := context.Background()
	p := f.product(t, "SKU-PG")
	ref := inventory.NewDocumentRef(inventory.DocumentKindGoodsReceipt, uuid.New())

	t.Run("posting key conflict inserts nothing", func(t *testing.T) {
		inserted, err := f.movements.Create(ctx, f.movement(p.ID, ref, inventory.MovementTypePurchaseReceipt, 10, 1, 1))
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = f.movements.Create(ctx, f.movement(p.ID, ref, inventory.MovementTypePurchaseReceipt, 10, 2, 1))
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("ledger rows are append-only", func(t *testing.T) {
		err := f.db.DB.Exec("UPDATE stock_movements SET reason = 'edited' WHERE product_id = ?", p.ID).Error
		require.Error(t, err)
		assert.Contains(t, err.Error(), "append-only")

		err = f.db.DB.Exec("DELETE FROM stock_movements WHERE product_id = ?", p.ID).Error
		require.Error(t, err)
	})
}

func TestPostgres_ConcurrentStockDeltas(t *testing.T) {
	f := newRepoFixtureOn(t, newPostgresTestDatabase(t))
	ctx := context.Background()
	p := f.product(t, "SKU-CONC")

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.products.ApplyStockDelta(ctx, f.tenantID, p.ID, decimal.RequireFromString("0.5"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	loaded, err := f.products.FindByIDForTenant(ctx, f.tenantID, p.ID)
	require.NoError(t, err)
	assert.True(t, loaded.StockQuantity.Equal(decimal.NewFromInt(10)), loaded.StockQuantity.String())
	assert.Equal(t, int64(workers), loaded.LedgerSequence)
}
