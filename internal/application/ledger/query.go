package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/textfold"
)

const (
	DefaultPerPage      = 20
	DefaultMaxPerPage   = 100
	DefaultQueryTimeout = 3 * time.Second
)

// QueryConfig límites de lectura.
type QueryConfig struct {
	MaxPerPage int
	Timeout    time.Duration
}

// QueryUseCase capa de lectura: stock actual, historial, búsqueda y detalle. Nunca escribe.
type QueryUseCase struct {
	movements  repository.StockMovementReader
	levels     repository.StockLevelReader
	references *ReferenceResolver
	maxPerPage int
	timeout    time.Duration
}

// NewQueryUseCase construye la capa de lectura.
func NewQueryUseCase(
	movements repository.StockMovementReader,
	levels repository.StockLevelReader,
	references *ReferenceResolver,
	cfg QueryConfig,
) *QueryUseCase {
	if cfg.MaxPerPage < 1 {
		cfg.MaxPerPage = DefaultMaxPerPage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultQueryTimeout
	}
	return &QueryUseCase{
		movements:  movements,
		levels:     levels,
		references: references,
		maxPerPage: cfg.MaxPerPage,
		timeout:    cfg.Timeout,
	}
}

// SearchParams filtros crudos de ListMovements.
type SearchParams struct {
	ProductID        string
	VariantID        string
	OnlyProductStock bool
	Types            []string
	Query            string
	Since            *time.Time
	Until            *time.Time
	Sort             string // "-created_at", "quantity", ...
	Page             int
	PerPage          int
}

// MovementPage página de movimientos.
type MovementPage struct {
	Items    []*entity.StockMovement
	Total    int
	Page     int
	PerPage  int
	LastPage int
}

// LevelPage página de proyecciones.
type LevelPage struct {
	Items    []*entity.StockLevel
	Total    int
	Page     int
	PerPage  int
	LastPage int
}

// MovementDetail movimiento con su etiqueta de referencia resuelta (nil si la entidad ya no existe).
type MovementDetail struct {
	Movement       *entity.StockMovement
	ReferenceLabel *string
}

// CurrentStock lee la proyección directamente (O(1)). Una clave sin historia vale 0.
func (uc *QueryUseCase) CurrentStock(ctx context.Context, key entity.InventoryKey) (int64, error) {
	level, err := uc.Level(ctx, key)
	if err != nil {
		return 0, err
	}
	return level.Quantity, nil
}

// Level devuelve la proyección de la clave; si no existe, una proyección en 0 con Version 0.
func (uc *QueryUseCase) Level(ctx context.Context, key entity.InventoryKey) (*entity.StockLevel, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	level, err := uc.levels.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("consultar stock actual: %w", err)
	}
	if level == nil {
		return &entity.StockLevel{ProductID: key.ProductID, VariantID: key.VariantID}, nil
	}
	return level, nil
}

// History movimientos de una clave exacta, más recientes primero.
func (uc *QueryUseCase) History(ctx context.Context, key entity.InventoryKey, page, perPage int) (*MovementPage, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	return uc.list(ctx, repository.ForKey(key), repository.DefaultSort, uc.pageRequest(page, perPage))
}

// Search listado filtrado, ordenado y paginado del ledger.
func (uc *QueryUseCase) Search(ctx context.Context, params SearchParams) (*MovementPage, error) {
	filter, err := buildFilter(params)
	if err != nil {
		return nil, err
	}
	sort, err := ParseSort(params.Sort)
	if err != nil {
		return nil, err
	}
	return uc.list(ctx, filter, sort, uc.pageRequest(params.Page, params.PerPage))
}

// GetMovement detalle de un movimiento con la referencia resuelta.
func (uc *QueryUseCase) GetMovement(ctx context.Context, id int64) (*MovementDetail, error) {
	if id <= 0 {
		return nil, &domain.NotFoundError{Resource: "movimiento", ID: fmt.Sprint(id)}
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	m, err := uc.movements.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("consultar movimiento: %w", err)
	}
	if m == nil {
		return nil, &domain.NotFoundError{Resource: "movimiento", ID: fmt.Sprint(id)}
	}
	return &MovementDetail{Movement: m, ReferenceLabel: uc.references.Label(ctx, m.Reference)}, nil
}

// ListLevels proyecciones existentes, opcionalmente de un producto.
func (uc *QueryUseCase) ListLevels(ctx context.Context, productID string, page, perPage int) (*LevelPage, error) {
	if productID != "" {
		id, err := parseID("product_id", productID, true)
		if err != nil {
			return nil, err
		}
		productID = id
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	pr := uc.pageRequest(page, perPage)
	items, total, err := uc.levels.List(ctx, productID, pr)
	if err != nil {
		return nil, fmt.Errorf("listar stock: %w", err)
	}
	return &LevelPage{Items: items, Total: total, Page: pr.Page, PerPage: pr.PerPage, LastPage: lastPage(total, pr.PerPage)}, nil
}

func (uc *QueryUseCase) list(ctx context.Context, filter repository.MovementFilter, sort repository.SortSpec, pr repository.PageRequest) (*MovementPage, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	items, total, err := uc.movements.List(ctx, filter, sort, pr)
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	return &MovementPage{Items: items, Total: total, Page: pr.Page, PerPage: pr.PerPage, LastPage: lastPage(total, pr.PerPage)}, nil
}

func (uc *QueryUseCase) pageRequest(page, perPage int) repository.PageRequest {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > uc.maxPerPage {
		perPage = uc.maxPerPage
	}
	return repository.PageRequest{Page: page, PerPage: perPage}
}

// ParseSort interpreta "campo" (asc) o "-campo" (desc). Vacío = created_at desc.
func ParseSort(s string) (repository.SortSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return repository.DefaultSort, nil
	}
	ord := repository.SortSpec{Field: s}
	if strings.HasPrefix(s, "-") {
		ord = repository.SortSpec{Field: s[1:], Desc: true}
	}
	if !slices.Contains(repository.SortableColumns, ord.Field) {
		return repository.SortSpec{}, domain.NewValidationError("sort", fmt.Sprintf("columna %q no ordenable", ord.Field))
	}
	return ord, nil
}

func buildFilter(p SearchParams) (repository.MovementFilter, error) {
	var f repository.MovementFilter
	var err error
	if f.ProductID, err = parseID("product_id", p.ProductID, false); err != nil {
		return f, err
	}
	if f.VariantID, err = parseID("variant_id", p.VariantID, false); err != nil {
		return f, err
	}
	f.OnlyProductStock = p.OnlyProductStock && f.VariantID == ""
	for _, raw := range p.Types {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		t, ok := entity.ParseMovementType(raw)
		if !ok {
			return f, domain.NewValidationError("type", fmt.Sprintf("tipo %q no reconocido", raw))
		}
		if !slices.Contains(f.Types, t) {
			f.Types = append(f.Types, t)
		}
	}
	if p.Since != nil && p.Until != nil && p.Since.After(*p.Until) {
		return f, domain.NewValidationError("since", "since no puede ser posterior a until")
	}
	f.Since, f.Until = p.Since, p.Until
	f.Search = textfold.Fold(p.Query)
	return f, nil
}

// NormalizeKey valida la clave y devuelve sus UUID en forma canónica.
func NormalizeKey(key entity.InventoryKey) (entity.InventoryKey, error) {
	productID, err := parseID("product_id", key.ProductID, true)
	if err != nil {
		return key, err
	}
	variantID, err := parseID("variant_id", key.VariantID, false)
	if err != nil {
		return key, err
	}
	return entity.InventoryKey{ProductID: productID, VariantID: variantID}, nil
}

func lastPage(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}
