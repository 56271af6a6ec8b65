package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockLevelLocker acceso a la proyección dentro de la transacción del acumulador.
type StockLevelLocker interface {
	// GetForUpdate bloquea la fila de la clave (SELECT FOR UPDATE), creándola en 0 si no existe.
	GetForUpdate(ctx context.Context, key entity.InventoryKey) (*entity.StockLevel, error)
	// Save persiste cantidad y versión de una fila previamente bloqueada.
	Save(ctx context.Context, level *entity.StockLevel) error
}

// StockLevelReader lecturas de la proyección sin bloqueo.
type StockLevelReader interface {
	// Get devuelve nil si la clave nunca tuvo movimientos.
	Get(ctx context.Context, key entity.InventoryKey) (*entity.StockLevel, error)
	List(ctx context.Context, productID string, page PageRequest) ([]*entity.StockLevel, int, error)
	ListAll(ctx context.Context) ([]*entity.StockLevel, error)
}
