package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

type countingRenderer struct {
	rows []*entity.StockMovement
	meta ledger.ExportMeta
}

func (r *countingRenderer) Render(rows []*entity.StockMovement, meta ledger.ExportMeta) ([]byte, error) {
	r.rows, r.meta = rows, meta
	return []byte(fmt.Sprintf("%d filas", len(rows))), nil
}

func (r *countingRenderer) ContentType() string { return "text/plain" }
func (r *countingRenderer) Extension() string   { return "txt" }

func TestExport_RecorrePaginasYTrunca(t *testing.T) {
	f := newFixture(t, ledger.AccumulatorConfig{})
	for i := 0; i < 7; i++ {
		f.mustRecord(t, ledger.RecordMovementInput{Quantity: int64(i + 1), Type: "restock"})
	}
	query := ledger.NewQueryUseCase(memory.NewMovementReader(f.store), memory.NewLevelReader(f.store), f.resolver, ledger.QueryConfig{MaxPerPage: 2})
	renderer := &countingRenderer{}
	uc := ledger.NewExportUseCase(query, map[string]ledger.ExportRenderer{"txt": renderer}, 5)

	file, err := uc.Export(context.Background(), ledger.SearchParams{Types: []string{"restock"}}, "TXT")
	require.NoError(t, err)
	assert.Equal(t, 5, file.Rows)
	assert.True(t, file.Truncated)
	assert.Equal(t, 7, renderer.meta.Total)
	assert.Contains(t, renderer.meta.Filters, "tipo=restock")
	assert.Regexp(t, `^stock-movements-\d{8}-\d{6}\.txt$`, file.Filename)
	assert.Equal(t, "5 filas", string(file.Content))

	_, err = uc.Export(context.Background(), ledger.SearchParams{}, "xlsx")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// concurrentWrites registra movimientos nuevos justo antes de la primera página.
type concurrentWrites struct {
	repository.StockMovementReader
	once   sync.Once
	before func()
}

func (r *concurrentWrites) List(ctx context.Context, f repository.MovementFilter, sort repository.SortSpec, page repository.PageRequest) ([]*entity.StockMovement, int, error) {
	r.once.Do(r.before)
	return r.StockMovementReader.List(ctx, f, sort, page)
}

func TestExport_CorteFijoDuranteLaPaginacion(t *testing.T) {
	f := newFixture(t, ledger.AccumulatorConfig{})
	var want []int64
	for i := 0; i < 5; i++ {
		res := f.mustRecord(t, ledger.RecordMovementInput{Quantity: int64(i + 1), Type: "restock"})
		want = append([]int64{res.Movement.ID}, want...)
	}

	reader := &concurrentWrites{
		StockMovementReader: memory.NewMovementReader(f.store),
		before: func() {
			time.Sleep(2 * time.Millisecond)
			for i := 0; i < 3; i++ {
				f.mustRecord(t, ledger.RecordMovementInput{Quantity: 1, Type: "restock"})
			}
		},
	}
	query := ledger.NewQueryUseCase(reader, memory.NewLevelReader(f.store), f.resolver, ledger.QueryConfig{MaxPerPage: 2})
	renderer := &countingRenderer{}
	uc := ledger.NewExportUseCase(query, map[string]ledger.ExportRenderer{"txt": renderer}, 100)

	file, err := uc.Export(context.Background(), ledger.SearchParams{}, "txt")
	require.NoError(t, err)
	assert.Equal(t, 5, file.Rows)
	assert.False(t, file.Truncated)
	assert.Equal(t, 5, renderer.meta.Total)
	assert.Contains(t, renderer.meta.Filters, "hasta=")

	var got []int64
	for _, m := range renderer.rows {
		got = append(got, m.ID)
	}
	assert.Equal(t, want, got, "sin duplicados ni filas saltadas")
	assert.Len(t, f.store.Movements(), 8)
}
