package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/textfold"
)

// MovementReader lectura del ledger en memoria.
type MovementReader struct {
	store *Store
}

// NewMovementReader construye el lector.
func NewMovementReader(store *Store) *MovementReader {
	return &MovementReader{store: store}
}

// GetByID devuelve nil si no existe.
func (r *MovementReader) GetByID(_ context.Context, id int64) (*entity.StockMovement, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if m, ok := r.store.byID[id]; ok {
		return cloneMovement(m), nil
	}
	return nil, nil
}

// List filtra, ordena y pagina. El desempate es por ID en la misma dirección del orden.
func (r *MovementReader) List(ctx context.Context, f repository.MovementFilter, sort repository.SortSpec, page repository.PageRequest) ([]*entity.StockMovement, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.store.mu.RLock()
	matched := make([]*entity.StockMovement, 0)
	for _, m := range r.store.movements {
		if r.matches(m, f) {
			matched = append(matched, cloneMovement(m))
		}
	}
	r.store.mu.RUnlock()

	slices.SortStableFunc(matched, func(a, b *entity.StockMovement) int {
		c := compareField(a, b, sort.Field)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if sort.Desc {
			return -c
		}
		return c
	})

	total := len(matched)
	start := page.Offset()
	if start >= total {
		return []*entity.StockMovement{}, total, nil
	}
	end := min(start+page.PerPage, total)
	return matched[start:end], total, nil
}

func compareField(a, b *entity.StockMovement, field string) int {
	switch field {
	case repository.SortQuantity:
		return cmp.Compare(a.Quantity, b.Quantity)
	case repository.SortStockBefore:
		return cmp.Compare(a.StockBefore, b.StockBefore)
	case repository.SortStockAfter:
		return cmp.Compare(a.StockAfter, b.StockAfter)
	case repository.SortType:
		return cmp.Compare(a.Type, b.Type)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// matches se llama con el store bloqueado en lectura.
func (r *MovementReader) matches(m *entity.StockMovement, f repository.MovementFilter) bool {
	if f.ProductID != "" && m.ProductID != f.ProductID {
		return false
	}
	if f.VariantID != "" && m.VariantID != f.VariantID {
		return false
	}
	if f.OnlyProductStock && m.VariantID != "" {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, m.Type) {
		return false
	}
	if f.Since != nil && m.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && m.CreatedAt.After(*f.Until) {
		return false
	}
	if f.Search == "" {
		return true
	}
	return slices.ContainsFunc(r.searchable(m), func(s string) bool {
		return s != "" && textfold.Contains(s, f.Search)
	})
}

// searchable textos sobre los que aplica la búsqueda libre.
func (r *MovementReader) searchable(m *entity.StockMovement) []string {
	out := []string{m.Note}
	if m.Reference != nil {
		out = append(out, m.Reference.ID)
	}
	if p, ok := r.store.products[m.ProductID]; ok {
		out = append(out, p.Name, p.SKU)
	}
	if v, ok := r.store.variants[m.VariantID]; ok {
		out = append(out, v.Name)
	}
	if u, ok := r.store.users[m.UserID]; ok {
		out = append(out, u.Name)
	}
	return out
}

// KeySummaries agrega el ledger por clave recorriendo cada cadena en orden de ID.
func (r *MovementReader) KeySummaries(ctx context.Context) ([]repository.LedgerKeySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	byKey := make(map[entity.InventoryKey][]*entity.StockMovement)
	for _, m := range r.store.movements {
		byKey[m.Key()] = append(byKey[m.Key()], m)
	}
	r.store.mu.RUnlock()

	out := make([]repository.LedgerKeySummary, 0, len(byKey))
	for key, chain := range byKey {
		slices.SortFunc(chain, func(a, b *entity.StockMovement) int { return cmp.Compare(a.ID, b.ID) })
		s := repository.LedgerKeySummary{Key: key, FirstStockBefore: chain[0].StockBefore}
		for i, m := range chain {
			s.Movements++
			s.SumQuantity += m.Quantity
			if !m.Consistent() {
				s.ArithmeticBreaks++
			}
			if i == 0 && m.StockBefore != 0 {
				s.ChainBreaks++
			}
			if i > 0 && m.StockBefore != chain[i-1].StockAfter {
				s.ChainBreaks++
			}
			s.LastStockAfter = m.StockAfter
		}
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b repository.LedgerKeySummary) int {
		return cmp.Compare(a.Key.String(), b.Key.String())
	})
	return out, nil
}
