package entity

// Product vista mínima del catálogo que necesita el ledger (el catálogo es un colaborador externo).
type Product struct {
	ID   string
	SKU  string
	Name string
}

// ProductVariant variante de un producto con su propio contador de stock.
type ProductVariant struct {
	ID        string
	ProductID string
	Name      string
}
