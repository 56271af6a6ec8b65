package entity

import "time"

// MovementType clasifica la intención de un movimiento de stock.
type MovementType string

// Tipos de movimiento reconocidos por el ledger.
const (
	MovementTypeInitial     MovementType = "initial"     // línea base de la clave
	MovementTypeRestock     MovementType = "restock"     // reposición
	MovementTypeSale        MovementType = "sale"        // venta / despacho de pedido
	MovementTypeReturn      MovementType = "return"      // devolución de cliente
	MovementTypeCorrection  MovementType = "correction"  // conciliación de conteo
	MovementTypeDestruction MovementType = "destruction" // baja por daño o vencimiento
	MovementTypeAdjustment  MovementType = "adjustment"  // ajuste genérico
)

// MovementTypes lista los tipos en orden estable (validación, documentación, filtros).
var MovementTypes = []MovementType{
	MovementTypeInitial,
	MovementTypeRestock,
	MovementTypeSale,
	MovementTypeReturn,
	MovementTypeCorrection,
	MovementTypeDestruction,
	MovementTypeAdjustment,
}

// ParseMovementType devuelve el tipo y true si s es un valor reconocido.
func ParseMovementType(s string) (MovementType, bool) {
	for _, t := range MovementTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Depleting indica si el tipo reduce stock por naturaleza (venta, destrucción).
func (t MovementType) Depleting() bool {
	return t == MovementTypeSale || t == MovementTypeDestruction
}

// RequiredSign devuelve +1 o -1 si el tipo exige un signo de cantidad, 0 si acepta ambos.
func (t MovementType) RequiredSign() int {
	switch t {
	case MovementTypeInitial, MovementTypeRestock, MovementTypeReturn:
		return 1
	case MovementTypeSale, MovementTypeDestruction:
		return -1
	default:
		return 0
	}
}

// StockMovement es una fila inmutable del ledger. No existe operación para modificarla ni borrarla;
// las correcciones se registran como un nuevo movimiento de tipo correction.
type StockMovement struct {
	ID             int64 // asignado por el store, monótono
	ProductID      string
	VariantID      string // vacío = stock propio del producto
	UserID         string // vacío = originado por el sistema
	Quantity       int64  // delta con signo, nunca 0
	Type           MovementType
	Note           string
	Reference      *Reference
	IdempotencyKey string
	StockBefore    int64
	StockAfter     int64 // StockBefore + Quantity
	CreatedAt      time.Time
}

// Key devuelve la clave de inventario del movimiento.
func (m *StockMovement) Key() InventoryKey {
	return InventoryKey{ProductID: m.ProductID, VariantID: m.VariantID}
}

// Consistent verifica la aritmética de la fila (stock_after = stock_before + quantity).
func (m *StockMovement) Consistent() bool {
	return m.StockAfter == m.StockBefore+m.Quantity
}
