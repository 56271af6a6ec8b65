package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.CatalogRepository = (*CatalogRepo)(nil)
	_ repository.ReferenceLookup   = (*CatalogRepo)(nil)
)

// CatalogRepo lecturas sobre tablas de colaboradores: catálogo, pedidos y devoluciones.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador.
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// GetProduct devuelve nil si no existe.
func (r *CatalogRepo) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.q.QueryRow(ctx, `SELECT id, sku, name FROM products WHERE id = $1`, id).Scan(&p.ID, &p.SKU, &p.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetVariant devuelve nil si no existe.
func (r *CatalogRepo) GetVariant(ctx context.Context, id string) (*entity.ProductVariant, error) {
	var v entity.ProductVariant
	err := r.q.QueryRow(ctx, `SELECT id, product_id, name FROM product_variants WHERE id = $1`, id).Scan(&v.ID, &v.ProductID, &v.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}

// OrderNumber número visible del pedido o domain.ErrNotFound.
func (r *CatalogRepo) OrderNumber(ctx context.Context, id string) (string, error) {
	return r.number(ctx, `SELECT number FROM orders WHERE id::text = $1`, "pedido", id)
}

// ReturnCaseNumber número visible de la devolución o domain.ErrNotFound.
func (r *CatalogRepo) ReturnCaseNumber(ctx context.Context, id string) (string, error) {
	return r.number(ctx, `SELECT number FROM return_cases WHERE id::text = $1`, "devolución", id)
}

func (r *CatalogRepo) number(ctx context.Context, query, resource, id string) (string, error) {
	var n string
	if err := r.q.QueryRow(ctx, query, id).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &domain.NotFoundError{Resource: resource, ID: id}
		}
		return "", fmt.Errorf("get %s: %w", resource, err)
	}
	return n, nil
}
