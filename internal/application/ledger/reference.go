package ledger

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ReferenceResolverFunc resuelve la etiqueta de una entidad de origen de un tipo concreto.
// Devuelve domain.ErrNotFound si la entidad ya no existe.
type ReferenceResolverFunc func(ctx context.Context, id string) (string, error)

// ReferenceResolver despacha por tipo de referencia. Solo se usa en lecturas.
type ReferenceResolver struct {
	resolvers map[entity.ReferenceKind]ReferenceResolverFunc
	log       zerolog.Logger
}

// NewReferenceResolver registra los resolutores de pedido, devolución y ajuste manual.
func NewReferenceResolver(lookup repository.ReferenceLookup, log zerolog.Logger) *ReferenceResolver {
	r := &ReferenceResolver{resolvers: make(map[entity.ReferenceKind]ReferenceResolverFunc), log: log}
	r.Register(entity.ReferenceOrder, func(ctx context.Context, id string) (string, error) {
		number, err := lookup.OrderNumber(ctx, id)
		if err != nil {
			return "", err
		}
		return "Pedido #" + number, nil
	})
	r.Register(entity.ReferenceReturnCase, func(ctx context.Context, id string) (string, error) {
		number, err := lookup.ReturnCaseNumber(ctx, id)
		if err != nil {
			return "", err
		}
		return "Devolución #" + number, nil
	})
	r.Register(entity.ReferenceManualAdjustment, func(_ context.Context, id string) (string, error) {
		return "Ajuste manual " + id, nil
	})
	return r
}

// Register agrega o reemplaza el resolutor de un tipo.
func (r *ReferenceResolver) Register(kind entity.ReferenceKind, fn ReferenceResolverFunc) {
	r.resolvers[kind] = fn
}

// Label devuelve la etiqueta o nil si no hay referencia, el tipo no tiene resolutor
// o la entidad ya no existe. Nunca hace fallar la lectura.
func (r *ReferenceResolver) Label(ctx context.Context, ref *entity.Reference) *string {
	if ref == nil {
		return nil
	}
	fn, ok := r.resolvers[ref.Kind]
	if !ok {
		return nil
	}
	label, err := fn(ctx, ref.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.log.Warn().Err(err).Str("reference_type", string(ref.Kind)).Str("reference_id", ref.ID).
				Msg("no se pudo resolver la referencia")
		}
		return nil
	}
	return &label
}
