package ledger

import (
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ToMovementResponse convierte una fila del ledger al DTO de listados.
func ToMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	r := dto.MovementResponse{
		ID:          m.ID,
		ProductID:   m.ProductID,
		VariantID:   optional(m.VariantID),
		UserID:      optional(m.UserID),
		Quantity:    m.Quantity,
		Type:        string(m.Type),
		Note:        optional(m.Note),
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		CreatedAt:   m.CreatedAt,
	}
	if m.Reference != nil {
		kind := string(m.Reference.Kind)
		id := m.Reference.ID
		r.ReferenceType = &kind
		r.ReferenceID = &id
	}
	return r
}

// ToMovementListResponse convierte una página de movimientos.
func ToMovementListResponse(p *MovementPage) dto.MovementListResponse {
	out := dto.MovementListResponse{
		Data: make([]dto.MovementResponse, 0, len(p.Items)),
		Meta: dto.PageMeta{Total: p.Total, Page: p.Page, PerPage: p.PerPage, LastPage: p.LastPage},
	}
	for _, m := range p.Items {
		out.Data = append(out.Data, ToMovementResponse(m))
	}
	return out
}

// ToMovementDetailResponse detalle con referencia resuelta; null si no hay etiqueta.
func ToMovementDetailResponse(d *MovementDetail) dto.MovementDetailResponse {
	out := dto.MovementDetailResponse{MovementResponse: ToMovementResponse(d.Movement)}
	if d.Movement.Reference != nil && d.ReferenceLabel != nil {
		out.Reference = &dto.ReferenceResponse{
			Type:  string(d.Movement.Reference.Kind),
			ID:    d.Movement.Reference.ID,
			Label: *d.ReferenceLabel,
		}
	}
	return out
}

// ToCurrentStockResponse proyección de una clave.
func ToCurrentStockResponse(l *entity.StockLevel) dto.CurrentStockResponse {
	out := dto.CurrentStockResponse{
		ProductID: l.ProductID,
		VariantID: optional(l.VariantID),
		Quantity:  l.Quantity,
		Movements: l.Version,
	}
	if !l.UpdatedAt.IsZero() {
		t := l.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// ToStockLevelListResponse convierte una página de proyecciones.
func ToStockLevelListResponse(p *LevelPage) dto.StockLevelListResponse {
	out := dto.StockLevelListResponse{
		Data: make([]dto.CurrentStockResponse, 0, len(p.Items)),
		Meta: dto.PageMeta{Total: p.Total, Page: p.Page, PerPage: p.PerPage, LastPage: p.LastPage},
	}
	for _, l := range p.Items {
		out.Data = append(out.Data, ToCurrentStockResponse(l))
	}
	return out
}
