package dto

import "time"

// RecordMovementRequest body de POST /api/stock/movements y payload de los comandos kafka.
// En HTTP el user_id se toma del token; en kafka lo envía el colaborador (vacío = sistema).
type RecordMovementRequest struct {
	ProductID      string `json:"product_id"`
	VariantID      string `json:"variant_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	Quantity       int64  `json:"quantity"`
	Type           string `json:"type"`
	Note           string `json:"note,omitempty"`
	ReferenceType  string `json:"reference_type,omitempty"`
	ReferenceID    string `json:"reference_id,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
	StrictStock    bool   `json:"strict_stock,omitempty"`
}

// RecordMovementResponse confirmación de un movimiento.
type RecordMovementResponse struct {
	ID          int64 `json:"id"`
	StockBefore int64 `json:"stock_before"`
	StockAfter  int64 `json:"stock_after"`
	Replayed    bool  `json:"replayed,omitempty"`
}

// MovementResponse fila del ledger en listados.
type MovementResponse struct {
	ID            int64     `json:"id"`
	ProductID     string    `json:"product_id"`
	VariantID     *string   `json:"variant_id"`
	UserID        *string   `json:"user_id"`
	Quantity      int64     `json:"quantity"`
	Type          string    `json:"type"`
	Note          *string   `json:"note"`
	ReferenceType *string   `json:"reference_type"`
	ReferenceID   *string   `json:"reference_id"`
	StockBefore   int64     `json:"stock_before"`
	StockAfter    int64     `json:"stock_after"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReferenceResponse referencia resuelta (solo en el detalle).
type ReferenceResponse struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

// MovementDetailResponse detalle de GET /api/stock/movements/:id.
// Reference es null si el movimiento no tiene referencia o si la entidad de origen ya no existe.
type MovementDetailResponse struct {
	MovementResponse
	Reference *ReferenceResponse `json:"reference"`
}

// MovementListResponse listado paginado del ledger.
type MovementListResponse struct {
	Data []MovementResponse `json:"data"`
	Meta PageMeta           `json:"meta"`
}

// CurrentStockResponse cantidad actual de una clave.
type CurrentStockResponse struct {
	ProductID string     `json:"product_id"`
	VariantID *string    `json:"variant_id"`
	Quantity  int64      `json:"quantity"`
	Movements int64      `json:"movements"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// StockLevelListResponse listado paginado de proyecciones.
type StockLevelListResponse struct {
	Data []CurrentStockResponse `json:"data"`
	Meta PageMeta               `json:"meta"`
}
