package repository

import "context"

// ReferenceLookup resuelve la etiqueta de una entidad de origen por tipo.
// Devuelve domain.ErrNotFound si la entidad ya no existe.
type ReferenceLookup interface {
	OrderNumber(ctx context.Context, id string) (string, error)
	ReturnCaseNumber(ctx context.Context, id string) (string, error)
}
