package entity

import "time"

// StockLevel es la proyección materializada de la cantidad actual de una clave.
// Siempre debe ser igual al stock_after del último movimiento confirmado para esa clave.
type StockLevel struct {
	ProductID string
	VariantID string
	Quantity  int64
	Version   int64 // número de movimientos aplicados; 0 = la clave no tiene historia
	UpdatedAt time.Time
}

// Key devuelve la clave de inventario de la proyección.
func (s *StockLevel) Key() InventoryKey {
	return InventoryKey{ProductID: s.ProductID, VariantID: s.VariantID}
}
