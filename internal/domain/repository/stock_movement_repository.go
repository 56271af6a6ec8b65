package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementAppender es el único punto de escritura del ledger. Solo se obtiene atado a la
// transacción del acumulador (ver ledger.TxRunner); no existe Update ni Delete.
type MovementAppender interface {
	// Append persiste la fila y devuelve el ID asignado por el store.
	Append(ctx context.Context, movement *entity.StockMovement) (int64, error)
	// FindByIdempotencyKey devuelve el movimiento ya registrado con esa llave, o nil.
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.StockMovement, error)
}

// StockMovementReader puerto de lectura del ledger (sin bloqueos).
type StockMovementReader interface {
	GetByID(ctx context.Context, id int64) (*entity.StockMovement, error)
	List(ctx context.Context, filter MovementFilter, sort SortSpec, page PageRequest) ([]*entity.StockMovement, int, error)
	// KeySummaries agrega el ledger por clave para la conciliación.
	KeySummaries(ctx context.Context) ([]LedgerKeySummary, error)
}

// MovementFilter filtros de listado. Campos vacíos no filtran.
type MovementFilter struct {
	ProductID string
	// VariantID filtra una variante concreta; con OnlyProductStock se excluyen las variantes.
	VariantID        string
	OnlyProductStock bool
	Types            []entity.MovementType
	// Search texto libre sobre nota, referencia y nombres de producto/variante/usuario.
	// Llega ya normalizado (minúsculas, sin tildes).
	Search string
	Since  *time.Time
	Until  *time.Time
}

// ForKey construye el filtro exacto de una clave de inventario.
func ForKey(key entity.InventoryKey) MovementFilter {
	f := MovementFilter{ProductID: key.ProductID, VariantID: key.VariantID}
	if !key.HasVariant() {
		f.OnlyProductStock = true
	}
	return f
}

// Columnas ordenables del ledger.
const (
	SortQuantity    = "quantity"
	SortStockBefore = "stock_before"
	SortStockAfter  = "stock_after"
	SortCreatedAt   = "created_at"
	SortType        = "type"
)

// SortableColumns columnas indexadas por las que el caller puede ordenar.
var SortableColumns = []string{SortQuantity, SortStockBefore, SortStockAfter, SortCreatedAt, SortType}

// SortSpec orden de listado; el desempate siempre es por ID en la misma dirección.
type SortSpec struct {
	Field string
	Desc  bool
}

// DefaultSort created_at desc.
var DefaultSort = SortSpec{Field: SortCreatedAt, Desc: true}

// PageRequest paginación offset/limit expresada como page/per_page (page empieza en 1).
type PageRequest struct {
	Page    int
	PerPage int
}

// Offset devuelve el desplazamiento SQL de la página.
func (p PageRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// LedgerKeySummary agregado por clave usado para detectar desvíos entre ledger y proyección.
type LedgerKeySummary struct {
	Key              entity.InventoryKey
	Movements        int64
	SumQuantity      int64
	FirstStockBefore int64
	LastStockAfter   int64
	ChainBreaks      int64 // filas cuyo stock_before no coincide con el stock_after anterior
	ArithmeticBreaks int64 // filas con stock_after != stock_before + quantity
}
