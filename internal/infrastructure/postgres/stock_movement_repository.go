package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.MovementAppender    = (*StockMovementRepo)(nil)
	_ repository.StockMovementReader = (*StockMovementRepo)(nil)
)

const movementColumns = `m.id, m.product_id, m.variant_id, m.user_id, m.quantity, m.type, m.note,
	m.reference_type, m.reference_id, m.idempotency_key, m.stock_before, m.stock_after, m.created_at`

// sortColumns columnas permitidas en ORDER BY; nunca se interpola texto del caller.
var sortColumns = map[string]string{
	repository.SortQuantity:    "m.quantity",
	repository.SortStockBefore: "m.stock_before",
	repository.SortStockAfter:  "m.stock_after",
	repository.SortCreatedAt:   "m.created_at",
	repository.SortType:        "m.type",
}

// StockMovementRepo ledger en stock_movements. Solo INSERT y SELECT (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Append inserta la fila y devuelve el ID de la secuencia.
func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) (int64, error) {
	var refType, refID *string
	if m.Reference != nil {
		kind := string(m.Reference.Kind)
		refType, refID = &kind, &m.Reference.ID
	}
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO stock_movements (product_id, variant_id, user_id, quantity, type, note,
			reference_type, reference_id, idempotency_key, stock_before, stock_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		m.ProductID, nullable(m.VariantID), nullable(m.UserID), m.Quantity, string(m.Type), nullable(m.Note),
		refType, refID, nullable(m.IdempotencyKey), m.StockBefore, m.StockAfter, m.CreatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("llave de idempotencia %q: %w", m.IdempotencyKey, domain.ErrConflict)
		}
		return 0, fmt.Errorf("append stock movement: %w", err)
	}
	return id, nil
}

// FindByIdempotencyKey devuelve nil si no hay movimiento con esa llave.
func (r *StockMovementRepo) FindByIdempotencyKey(ctx context.Context, key string) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements m WHERE m.idempotency_key = $1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find by idempotency key: %w", err)
	}
	return m, nil
}

// GetByID devuelve nil si no existe.
func (r *StockMovementRepo) GetByID(ctx context.Context, id int64) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements m WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return m, nil
}

// List filtra, ordena y pagina. La búsqueda libre compara contra texto sin tildes (extensión unaccent).
func (r *StockMovementRepo) List(ctx context.Context, f repository.MovementFilter, sort repository.SortSpec, page repository.PageRequest) ([]*entity.StockMovement, int, error) {
	where, args := buildMovementWhere(f)
	from := `FROM stock_movements m
		LEFT JOIN products p ON p.id = m.product_id
		LEFT JOIN product_variants v ON v.id = m.variant_id
		LEFT JOIN users u ON u.id = m.user_id`

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) `+from+` WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock movements: %w", err)
	}

	col, ok := sortColumns[sort.Field]
	if !ok {
		col = sortColumns[repository.SortCreatedAt]
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s %s, m.id %s LIMIT $%d OFFSET $%d`,
		movementColumns, from, where, col, dir, dir, n+1, n+2)
	rows, err := r.q.Query(ctx, query, append(args, page.PerPage, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	items := make([]*entity.StockMovement, 0, page.PerPage)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan stock movement: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list stock movements: %w", err)
	}
	return items, total, nil
}

func buildMovementWhere(f repository.MovementFilter) (string, []any) {
	conds := []string{"TRUE"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ProductID != "" {
		conds = append(conds, "m.product_id = "+arg(f.ProductID))
	}
	if f.VariantID != "" {
		conds = append(conds, "m.variant_id = "+arg(f.VariantID))
	} else if f.OnlyProductStock {
		conds = append(conds, "m.variant_id IS NULL")
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		conds = append(conds, "m.type = ANY("+arg(types)+")")
	}
	if f.Since != nil {
		conds = append(conds, "m.created_at >= "+arg(*f.Since))
	}
	if f.Until != nil {
		conds = append(conds, "m.created_at <= "+arg(*f.Until))
	}
	if f.Search != "" {
		p := arg(likePattern(f.Search))
		cols := []string{"m.note", "m.reference_id", "p.name", "p.sku", "v.name", "u.name"}
		matches := make([]string, len(cols))
		for i, col := range cols {
			matches[i] = foldedColumn(col) + " LIKE " + p
		}
		conds = append(conds, "("+strings.Join(matches, " OR ")+")")
	}
	return strings.Join(conds, " AND "), args
}

// foldedColumn aplica en SQL el mismo plegado que textfold.Fold: minúsculas, sin tildes y
// con los espacios colapsados.
func foldedColumn(col string) string {
	return fmt.Sprintf(`btrim(regexp_replace(unaccent(lower(coalesce(%s, ''))), '\s+', ' ', 'g'))`, col)
}

// KeySummaries recorre cada cadena en orden de ID con LAG para contar rupturas.
func (r *StockMovementRepo) KeySummaries(ctx context.Context) ([]repository.LedgerKeySummary, error) {
	rows, err := r.q.Query(ctx, `
		WITH chain AS (
			SELECT product_id, variant_id, id, quantity, stock_before, stock_after,
			       LAG(stock_after) OVER w AS prev_after,
			       ROW_NUMBER() OVER w AS rn
			FROM stock_movements
			WINDOW w AS (PARTITION BY product_id, variant_id ORDER BY id)
		)
		SELECT product_id, variant_id,
		       count(*),
		       sum(quantity)::bigint,
		       min(stock_before) FILTER (WHERE rn = 1),
		       (array_agg(stock_after ORDER BY id DESC))[1],
		       count(*) FILTER (WHERE (rn = 1 AND stock_before <> 0) OR (rn > 1 AND stock_before <> prev_after)),
		       count(*) FILTER (WHERE stock_after <> stock_before + quantity)
		FROM chain
		GROUP BY product_id, variant_id
		ORDER BY product_id, variant_id NULLS FIRST`)
	if err != nil {
		return nil, fmt.Errorf("key summaries: %w", err)
	}
	defer rows.Close()

	var out []repository.LedgerKeySummary
	for rows.Next() {
		var s repository.LedgerKeySummary
		var variantID *string
		if err := rows.Scan(&s.Key.ProductID, &variantID, &s.Movements, &s.SumQuantity,
			&s.FirstStockBefore, &s.LastStockAfter, &s.ChainBreaks, &s.ArithmeticBreaks); err != nil {
			return nil, fmt.Errorf("scan key summary: %w", err)
		}
		s.Key.VariantID = deref(variantID)
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var variantID, userID, note, refType, refID, idem *string
	var typ string
	if err := row.Scan(&m.ID, &m.ProductID, &variantID, &userID, &m.Quantity, &typ, &note,
		&refType, &refID, &idem, &m.StockBefore, &m.StockAfter, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.VariantID = deref(variantID)
	m.UserID = deref(userID)
	m.Type = entity.MovementType(typ)
	m.Note = deref(note)
	m.IdempotencyKey = deref(idem)
	if refType != nil && refID != nil {
		m.Reference = &entity.Reference{Kind: entity.ReferenceKind(*refType), ID: *refID}
	}
	return &m, nil
}
