package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

const (
	productID = "0b9c3c7e-5a1e-4a8c-9f4d-1c2b3a4d5e6f"
	variantID = "7d6a5b4c-3e2f-4a1b-8c9d-0e1f2a3b4c5d"
	otherProd = "9f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a"
	userID    = "2a3b4c5d-6e7f-4809-9a1b-2c3d4e5f6a7b"
	orderID   = "ord-2041"
)

type fixture struct {
	store    *memory.Store
	catalog  *memory.Catalog
	intake   *ledger.Intake
	acc      *ledger.Accumulator
	record   *ledger.RecordMovementUseCase
	query    *ledger.QueryUseCase
	resolver *ledger.ReferenceResolver
}

func newFixture(t *testing.T, cfg ledger.AccumulatorConfig) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddProduct(entity.Product{ID: productID, SKU: "CAM-001", Name: "Camiseta Algodón"})
	store.AddProduct(entity.Product{ID: otherProd, SKU: "PAN-002", Name: "Pantalón"})
	store.AddVariant(entity.ProductVariant{ID: variantID, ProductID: productID, Name: "Talla M"})
	store.AddUser(entity.User{ID: userID, Name: "María Gómez"})
	store.AddOrder(orderID, "2041")

	log := zerolog.Nop()
	catalog := memory.NewCatalog(store)
	intake := ledger.NewIntake(catalog, 0)
	acc := ledger.NewAccumulator(memory.NewTxRunner(store), cfg, log)
	resolver := ledger.NewReferenceResolver(catalog, log)
	return &fixture{
		store:    store,
		catalog:  catalog,
		intake:   intake,
		acc:      acc,
		record:   ledger.NewRecordMovementUseCase(intake, acc),
		query:    ledger.NewQueryUseCase(memory.NewMovementReader(store), memory.NewLevelReader(store), resolver, ledger.QueryConfig{}),
		resolver: resolver,
	}
}

func (f *fixture) mustRecord(t *testing.T, in ledger.RecordMovementInput) *ledger.ApplyResult {
	t.Helper()
	if in.ProductID == "" {
		in.ProductID = productID
	}
	res, err := f.record.RecordMovement(context.Background(), in)
	require.NoError(t, err)
	return res
}

func (f *fixture) stock(t *testing.T, key entity.InventoryKey) int64 {
	t.Helper()
	q, err := f.query.CurrentStock(context.Background(), key)
	require.NoError(t, err)
	return q
}

var productKey = entity.InventoryKey{ProductID: productID}

func ptrTime(t time.Time) *time.Time { return &t }

func (f *fixture) outbox() *memory.OutboxRepository { return memory.NewOutboxRepository(f.store) }

func (f *fixture) txRunner() *memory.TxRunner { return memory.NewTxRunner(f.store) }
