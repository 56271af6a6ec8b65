//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

const (
	productID = "0b9c3c7e-5a1e-4a8c-9f4d-1c2b3a4d5e6f"
	variantID = "7d6a5b4c-3e2f-4a1b-8c9d-0e1f2a3b4c5d"
	userID    = "2a3b4c5d-6e7f-4809-9a1b-2c3d4e5f6a7b"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 20})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.RunMigrations(pool))
	seed := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO products (id, sku, name) VALUES ($1, 'CAM-001', 'Camiseta Algodón')`, []any{productID}},
		{`INSERT INTO product_variants (id, product_id, name) VALUES ($1, $2, 'Talla M')`, []any{variantID, productID}},
		{`INSERT INTO users (id, name) VALUES ($1, 'María Gómez')`, []any{userID}},
		{`INSERT INTO orders (id, number) VALUES ('ord-1', '2041')`, nil},
	}
	for _, st := range seed {
		_, err := pool.Exec(ctx, st.sql, st.args...)
		require.NoError(t, err)
	}
	return pool
}

type services struct {
	record *ledger.RecordMovementUseCase
	query  *ledger.QueryUseCase
	recon  *ledger.ReconcileUseCase
	outbox *postgres.OutboxRepo
}

func newServices(pool *pgxpool.Pool, policy ledger.Policy) services {
	log := zerolog.Nop()
	catalog := postgres.NewCatalogRepository(pool)
	movements := postgres.NewStockMovementRepository(pool)
	levels := postgres.NewStockLevelRepository(pool)
	acc := ledger.NewAccumulator(postgres.NewTxRunner(pool, 2*time.Second), ledger.AccumulatorConfig{Policy: policy, Timeout: 20 * time.Second}, log)
	return services{
		record: ledger.NewRecordMovementUseCase(ledger.NewIntake(catalog, 0), acc),
		query:  ledger.NewQueryUseCase(movements, levels, ledger.NewReferenceResolver(catalog, log), ledger.QueryConfig{}),
		recon:  ledger.NewReconcileUseCase(movements, levels, log),
		outbox: postgres.NewOutboxRepository(pool),
	}
}

func TestPostgres_EscenariosDelLedger(t *testing.T) {
	pool := setupTestDB(t)
	s := newServices(pool, ledger.Policy{})
	ctx := context.Background()
	key := entity.InventoryKey{ProductID: productID}

	res, err := s.record.RecordMovement(ctx, ledger.RecordMovementInput{ProductID: productID, Quantity: 50, Type: "initial", UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Movement.StockBefore)
	assert.Equal(t, int64(50), res.Movement.StockAfter)

	res, err = s.record.RecordMovement(ctx, ledger.RecordMovementInput{ProductID: productID, Quantity: -5, Type: "sale", ReferenceType: "order", ReferenceID: "ord-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(45), res.Movement.StockAfter)
	saleID := res.Movement.ID

	_, err = s.record.RecordMovement(ctx, ledger.RecordMovementInput{ProductID: productID, Quantity: -100, Type: "sale"})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	stock, err := s.query.CurrentStock(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(45), stock)

	detail, err := s.query.GetMovement(ctx, saleID)
	require.NoError(t, err)
	require.NotNil(t, detail.ReferenceLabel)
	assert.Equal(t, "Pedido #2041", *detail.ReferenceLabel)

	page, err := s.query.Search(ctx, ledger.SearchParams{Query: "maria"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = s.record.RecordMovement(ctx, ledger.RecordMovementInput{ProductID: productID, Quantity: 2, Type: "restock", Note: "Devolución  PEDIDO\tanulado"})
	require.NoError(t, err)
	page, err = s.query.Search(ctx, ledger.SearchParams{Query: "devolucion pedido anulado"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total, "los espacios repetidos se pliegan igual que en memoria")

	events, err := s.outbox.Unpublished(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	_, err = pool.Exec(ctx, `UPDATE stock_movements SET quantity = 1 WHERE id = $1`, saleID)
	assert.Error(t, err, "el ledger rechaza UPDATE")

	report, err := s.recon.Run(ctx)
	require.NoError(t, err)
	assert.False(t, report.HasDrift())
}

func TestPostgres_EscritoresConcurrentes(t *testing.T) {
	pool := setupTestDB(t)
	s := newServices(pool, ledger.Policy{AllowBackorders: true})
	ctx := context.Background()
	const n = 40

	var wg sync.WaitGroup
	var sum int64
	for i := 0; i < n; i++ {
		qty := int64(i%5 + 1)
		if i%2 == 0 {
			qty = -qty
		}
		sum += qty
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.record.RecordMovement(ctx, ledger.RecordMovementInput{
				ProductID: productID, VariantID: variantID, Quantity: qty, Type: "adjustment",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	key := entity.InventoryKey{ProductID: productID, VariantID: variantID}
	level, err := s.query.Level(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, sum, level.Quantity)
	assert.Equal(t, int64(n), level.Version)

	sums, err := postgres.NewStockMovementRepository(pool).KeySummaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, int64(n), sums[0].Movements)
	assert.Zero(t, sums[0].ChainBreaks)
	assert.Equal(t, sum, sums[0].LastStockAfter)

	page, err := s.query.History(ctx, key, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, n, page.Total)
	for i := 1; i < len(page.Items); i++ {
		assert.Greater(t, page.Items[i-1].ID, page.Items[i].ID)
	}
}
