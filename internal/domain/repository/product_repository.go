package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CatalogRepository consulta de existencia contra el catálogo (colaborador externo).
type CatalogRepository interface {
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	GetVariant(ctx context.Context, id string) (*entity.ProductVariant, error)
}
