package entity

// InventoryKey identifica un contador de stock: (producto, variante|nula).
type InventoryKey struct {
	ProductID string
	VariantID string
}

// HasVariant indica si la clave apunta a una variante y no al stock propio del producto.
func (k InventoryKey) HasVariant() bool { return k.VariantID != "" }

// String representación estable para logs y mensajes de error.
func (k InventoryKey) String() string {
	if k.VariantID == "" {
		return k.ProductID
	}
	return k.ProductID + "/" + k.VariantID
}
