package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.StockLevelLocker = (*StockLevelRepo)(nil)
	_ repository.StockLevelReader = (*StockLevelRepo)(nil)
)

const levelColumns = `product_id, variant_id, quantity, version, updated_at`

// StockLevelRepo proyección por clave en stock_levels (usable con pool o tx).
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

// GetForUpdate crea la fila en 0 si no existe y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *StockLevelRepo) GetForUpdate(ctx context.Context, key entity.InventoryKey) (*entity.StockLevel, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_levels (product_id, variant_id, quantity, version, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (product_id, variant_id) DO NOTHING`,
		key.ProductID, nullable(key.VariantID),
	)
	if err != nil {
		return nil, fmt.Errorf("crear proyección %s: %w", key, err)
	}

	where, args := keyPredicate("", key, 1)
	level, err := scanLevel(r.q.QueryRow(ctx, `SELECT `+levelColumns+` FROM stock_levels WHERE `+where+` FOR UPDATE`, args...))
	if err != nil {
		return nil, fmt.Errorf("bloquear proyección %s: %w", key, err)
	}
	return level, nil
}

// Save escribe cantidad y versión de una fila ya bloqueada.
func (r *StockLevelRepo) Save(ctx context.Context, level *entity.StockLevel) error {
	where, args := keyPredicate("", level.Key(), 4)
	tag, err := r.q.Exec(ctx,
		`UPDATE stock_levels SET quantity = $1, version = $2, updated_at = $3 WHERE `+where,
		append([]any{level.Quantity, level.Version, level.UpdatedAt}, args...)...,
	)
	if err != nil {
		return fmt.Errorf("guardar proyección %s: %w", level.Key(), err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("guardar proyección %s: %d filas afectadas", level.Key(), tag.RowsAffected())
	}
	return nil
}

// Get lectura sin bloqueo; nil si la clave no tiene proyección.
func (r *StockLevelRepo) Get(ctx context.Context, key entity.InventoryKey) (*entity.StockLevel, error) {
	where, args := keyPredicate("", key, 1)
	level, err := scanLevel(r.q.QueryRow(ctx, `SELECT `+levelColumns+` FROM stock_levels WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	return level, nil
}

// List proyecciones paginadas, opcionalmente de un producto.
func (r *StockLevelRepo) List(ctx context.Context, productID string, page repository.PageRequest) ([]*entity.StockLevel, int, error) {
	where := "TRUE"
	var args []any
	if productID != "" {
		where = "product_id = $1"
		args = append(args, productID)
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM stock_levels WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock levels: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM stock_levels WHERE %s
		ORDER BY product_id, variant_id NULLS FIRST LIMIT $%d OFFSET $%d`, levelColumns, where, n+1, n+2)
	rows, err := r.q.Query(ctx, query, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock levels: %w", err)
	}
	levels, err := collectLevels(rows)
	if err != nil {
		return nil, 0, err
	}
	return levels, total, nil
}

// ListAll todas las proyecciones (conciliación).
func (r *StockLevelRepo) ListAll(ctx context.Context) ([]*entity.StockLevel, error) {
	rows, err := r.q.Query(ctx, `SELECT `+levelColumns+` FROM stock_levels ORDER BY product_id, variant_id NULLS FIRST`)
	if err != nil {
		return nil, fmt.Errorf("list all stock levels: %w", err)
	}
	return collectLevels(rows)
}

func scanLevel(row pgx.Row) (*entity.StockLevel, error) {
	var l entity.StockLevel
	var variantID *string
	if err := row.Scan(&l.ProductID, &variantID, &l.Quantity, &l.Version, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.VariantID = deref(variantID)
	return &l, nil
}

func collectLevels(rows pgx.Rows) ([]*entity.StockLevel, error) {
	defer rows.Close()
	var out []*entity.StockLevel
	for rows.Next() {
		l, err := scanLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
