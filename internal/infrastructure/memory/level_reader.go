package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// LevelReader lectura de proyecciones sin bloqueo.
type LevelReader struct {
	store *Store
}

// NewLevelReader construye el lector.
func NewLevelReader(store *Store) *LevelReader {
	return &LevelReader{store: store}
}

// Get devuelve nil si la clave no tiene proyección.
func (r *LevelReader) Get(_ context.Context, key entity.InventoryKey) (*entity.StockLevel, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if l, ok := r.store.levels[key]; ok {
		return cloneLevel(l), nil
	}
	return nil, nil
}

// List proyecciones ordenadas por producto y variante (stock propio primero).
func (r *LevelReader) List(ctx context.Context, productID string, page repository.PageRequest) ([]*entity.StockLevel, int, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	if productID != "" {
		all = slices.DeleteFunc(all, func(l *entity.StockLevel) bool { return l.ProductID != productID })
	}
	total := len(all)
	start := page.Offset()
	if start >= total {
		return []*entity.StockLevel{}, total, nil
	}
	return all[start:min(start+page.PerPage, total)], total, nil
}

// ListAll todas las proyecciones.
func (r *LevelReader) ListAll(ctx context.Context) ([]*entity.StockLevel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	out := make([]*entity.StockLevel, 0, len(r.store.levels))
	for _, l := range r.store.levels {
		out = append(out, cloneLevel(l))
	}
	r.store.mu.RUnlock()
	slices.SortFunc(out, func(a, b *entity.StockLevel) int {
		if c := cmp.Compare(a.ProductID, b.ProductID); c != 0 {
			return c
		}
		return cmp.Compare(a.VariantID, b.VariantID)
	})
	return out, nil
}
