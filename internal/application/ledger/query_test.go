package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

func seedMixed(t *testing.T, f *fixture) {
	t.Helper()
	f.mustRecord(t, ledger.RecordMovementInput{Quantity: 10, Type: "restock", UserID: userID, Note: "Recepción proveedor"})
	f.mustRecord(t, ledger.RecordMovementInput{Quantity: -2, Type: "sale", ReferenceType: "order", ReferenceID: orderID})
	f.mustRecord(t, ledger.RecordMovementInput{Quantity: 5, Type: "restock"})
	f.mustRecord(t, ledger.RecordMovementInput{Quantity: -1, Type: "sale"})
	f.mustRecord(t, ledger.RecordMovementInput{Quantity: 7, Type: "restock"})
}

func TestQuery_FiltroPorTipoMasRecientesPrimero(t *testing.T) {
	f := newFixture(t, ledger.AccumulatorConfig{})
	seedMixed(t, f)

	page, err := f.query.Search(context.Background(), ledger.SearchParams{
		Types: []string{"restock"}, Sort: "-created_at", PerPage: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.LastPage)
	require.Len(t, page.Items, 3)
	assert.Equal(t, []int64{7, 5, 10}, quantities(page.Items))
}

func TestQuery_OrdenYPaginacion(t *testing.T) {
	f := newFixture(t, ledger.AccumulatorConfig{})
	seedMixed(t, f)
	ctx := context.Background()

	page, err := f.query.Search(ctx, ledger.SearchParams{Sort: "quantity", Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.LastPage)
	assert.Equal(t, []int64{5, 7}, quantities(page.Items))

	page, err = f.query.Search(ctx, ledger.SearchParams{PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultMaxPerPage, page.PerPage)

	_, err = f.query.Search(ctx, ledger.SearchParams{Sort: "-note"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.query.Search(ctx, ledger.SearchParams{Types: []string{"robo"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQuery_BusquedaLibreSinTildes(t *testing.T) {
	f := newFixture(t, ledger.AccumulatorConfig{})
	seedMixed(t, f)
	ctx := context.Background()

	byNote, err := f.query.Search(ctx, ledger.SearchParams{Query: "RECEPCION"})
	require.NoError(t, err)
	assert.Equal(t, 1, byNote.Total)

	byUser, err := f.query.Search(ctx, ledger.SearchParams{Query: "maria gomez"})
	require.NoError(t, err)
	assert.Equal(t, 1, byUser.Total)

	byProduct, err := f.query.Search(ctx, ledger.SearchParams{Query: "algodon"})
	require.NoError(t, err)
	assert.Equal(t, 5, byProduct.Total)

	byRef, err := f.query.Search(ctx, ledger.SearchParams{Query: orderID})
	require.NoError(t, err)
	assert.Equal(t, 1, byRef.Total)

	f.mustRecord(t, ledger.RecordMovementInput{Quantity: 2, Type: "restock", Note: "Devolución  PEDIDO\tanulado"})
	bySpaces, err := f.query.Search(ctx, ledger.SearchParams{Query: "  devolucion pedido   anulado "})
	require.NoError(t, err)
	assert.Equal(t, 1, bySpaces.Total)
}

func TestQuery_RangoDeFechas(t *testing.T) {
	f := newFixture(t, ledger.AccumulatorConfig{})
	seedMixed(t, f)
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	page, err := f.query.Search(ctx, ledger.SearchParams{Since: ptrTime(future)})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = f.query.Search(ctx, ledger.SearchParams{Since: ptrTime(future), Until: ptrTime(time.Now())})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQuery_HistoryYStockPorClave(t *testing.T) {
	f := newFixture(t, ledger.AccumulatorConfig{})
	seedMixed(t, f)
	f.mustRecord(t, ledger.RecordMovementInput{VariantID: variantID, Quantity: 4, Type: "restock"})
	ctx := context.Background()

	hist, err := f.query.History(ctx, productKey, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, hist.Total, "el stock propio excluye variantes")

	vKey := entity.InventoryKey{ProductID: productID, VariantID: variantID}
	assert.Equal(t, int64(4), f.stock(t, vKey))
	assert.Equal(t, int64(19), f.stock(t, productKey))

	unknown := entity.InventoryKey{ProductID: otherProd}
	level, err := f.query.Level(ctx, unknown)
	require.NoError(t, err)
	assert.Zero(t, level.Quantity)
	assert.Zero(t, level.Version)

	_, err = f.query.CurrentStock(ctx, entity.InventoryKey{ProductID: "no-uuid"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	levels, err := f.query.ListLevels(ctx, productID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, levels.Total)
}

func TestQuery_DetalleConReferencia(t *testing.T) {
	f := newFixture(t, ledger.AccumulatorConfig{})
	seedMixed(t, f)
	ctx := context.Background()

	page, err := f.query.Search(ctx, ledger.SearchParams{Types: []string{"sale"}, Sort: "created_at"})
	require.NoError(t, err)
	saleID := page.Items[0].ID

	detail, err := f.query.GetMovement(ctx, saleID)
	require.NoError(t, err)
	require.NotNil(t, detail.ReferenceLabel)
	assert.Equal(t, "Pedido #2041", *detail.ReferenceLabel)

	f.store.DeleteOrder(orderID)
	detail, err = f.query.GetMovement(ctx, saleID)
	require.NoError(t, err)
	assert.Nil(t, detail.ReferenceLabel, "referencia a un pedido borrado se resuelve a null")
	resp := ledger.ToMovementDetailResponse(detail)
	assert.Nil(t, resp.Reference)
	require.NotNil(t, resp.ReferenceID)
	assert.Equal(t, orderID, *resp.ReferenceID)

	_, err = f.query.GetMovement(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestParseSort(t *testing.T) {
	s, err := ledger.ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, repository.DefaultSort, s)

	s, err = ledger.ParseSort("-stock_after")
	require.NoError(t, err)
	assert.Equal(t, repository.SortSpec{Field: repository.SortStockAfter, Desc: true}, s)
}

func quantities(items []*entity.StockMovement) []int64 {
	out := make([]int64, 0, len(items))
	for _, m := range items {
		out = append(out, m.Quantity)
	}
	return out
}
