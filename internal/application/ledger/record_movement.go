package ledger

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
)

// RecordMovementUseCase orquesta Intake -> Accumulator para un pedido de movimiento.
type RecordMovementUseCase struct {
	intake      *Intake
	accumulator *Accumulator
}

// NewRecordMovementUseCase construye el caso de uso.
func NewRecordMovementUseCase(intake *Intake, accumulator *Accumulator) *RecordMovementUseCase {
	return &RecordMovementUseCase{intake: intake, accumulator: accumulator}
}

// RecordMovement valida el pedido y lo aplica. Los errores de validación ocurren antes de abrir
// cualquier transacción.
func (uc *RecordMovementUseCase) RecordMovement(ctx context.Context, input RecordMovementInput) (*ApplyResult, error) {
	cmd, err := uc.intake.Validate(ctx, input)
	if err != nil {
		return nil, err
	}
	return uc.accumulator.Apply(ctx, cmd)
}

// RecordMovementFromRequest adapta el request (HTTP o kafka) al caso de uso.
// actorID, si no está vacío, reemplaza el user_id del body (HTTP: viene del token).
func (uc *RecordMovementUseCase) RecordMovementFromRequest(ctx context.Context, actorID string, in dto.RecordMovementRequest) (*dto.RecordMovementResponse, error) {
	userID := in.UserID
	if actorID != "" {
		userID = actorID
	}
	res, err := uc.RecordMovement(ctx, RecordMovementInput{
		ProductID:      in.ProductID,
		VariantID:      in.VariantID,
		UserID:         userID,
		Quantity:       in.Quantity,
		Type:           in.Type,
		Note:           in.Note,
		ReferenceType:  in.ReferenceType,
		ReferenceID:    in.ReferenceID,
		IdempotencyKey: in.IdempotencyKey,
		StrictStock:    in.StrictStock,
	})
	if err != nil {
		return nil, err
	}
	return &dto.RecordMovementResponse{
		ID:          res.Movement.ID,
		StockBefore: res.Movement.StockBefore,
		StockAfter:  res.Movement.StockAfter,
		Replayed:    res.Replayed,
	}, nil
}
