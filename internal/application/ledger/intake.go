package ledger

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	// DefaultNoteMaxLength límite de la nota en runas si no se configura otro.
	DefaultNoteMaxLength = 1000
	referenceIDMaxLength = 64
	idempotencyMaxLength = 128
)

// RecordMovementInput pedido de movimiento tal como llega de un colaborador (HTTP, kafka).
type RecordMovementInput struct {
	ProductID      string
	VariantID      string
	UserID         string
	Quantity       int64
	Type           string
	Note           string
	ReferenceType  string
	ReferenceID    string
	IdempotencyKey string
	// StrictStock prohíbe un resultado negativo para cualquier tipo de movimiento.
	StrictStock bool
}

// Command movimiento normalizado listo para el acumulador.
type Command struct {
	Key            entity.InventoryKey
	UserID         string
	Quantity       int64
	Type           entity.MovementType
	Note           string
	Reference      *entity.Reference
	IdempotencyKey string
	StrictStock    bool
}

// Intake valida y clasifica pedidos de movimiento. No persiste nada.
type Intake struct {
	catalog       repository.CatalogRepository
	noteMaxLength int
}

// NewIntake construye el intake. noteMaxLength <= 0 usa DefaultNoteMaxLength.
func NewIntake(catalog repository.CatalogRepository, noteMaxLength int) *Intake {
	if noteMaxLength <= 0 {
		noteMaxLength = DefaultNoteMaxLength
	}
	return &Intake{catalog: catalog, noteMaxLength: noteMaxLength}
}

// Validate normaliza el pedido y verifica contra el catálogo que producto y variante existan.
func (in *Intake) Validate(ctx context.Context, input RecordMovementInput) (Command, error) {
	cmd, err := in.Normalize(input)
	if err != nil {
		return Command{}, err
	}

	product, err := in.catalog.GetProduct(ctx, cmd.Key.ProductID)
	if err != nil {
		return Command{}, fmt.Errorf("intake: consultar producto: %w", err)
	}
	if product == nil {
		return Command{}, domain.NewValidationError("product_id", "el producto no existe")
	}
	if cmd.Key.HasVariant() {
		variant, err := in.catalog.GetVariant(ctx, cmd.Key.VariantID)
		if err != nil {
			return Command{}, fmt.Errorf("intake: consultar variante: %w", err)
		}
		if variant == nil {
			return Command{}, domain.NewValidationError("variant_id", "la variante no existe")
		}
		if variant.ProductID != cmd.Key.ProductID {
			return Command{}, domain.NewValidationError("variant_id", "la variante no pertenece al producto")
		}
	}
	return cmd, nil
}

// Normalize aplica las reglas que no dependen de estado: formato de IDs, cantidad distinta de cero,
// tipo reconocido y su signo, longitud de nota y forma de la referencia.
func (in *Intake) Normalize(input RecordMovementInput) (Command, error) {
	productID, err := parseID("product_id", input.ProductID, true)
	if err != nil {
		return Command{}, err
	}
	variantID, err := parseID("variant_id", input.VariantID, false)
	if err != nil {
		return Command{}, err
	}
	userID, err := parseID("user_id", input.UserID, false)
	if err != nil {
		return Command{}, err
	}

	mt, ok := entity.ParseMovementType(strings.TrimSpace(input.Type))
	if !ok {
		return Command{}, domain.NewValidationError("type", fmt.Sprintf("tipo %q no reconocido", input.Type))
	}
	if input.Quantity == 0 {
		return Command{}, domain.NewValidationError("quantity", "la cantidad no puede ser 0")
	}
	switch sign := mt.RequiredSign(); {
	case sign > 0 && input.Quantity < 0:
		return Command{}, domain.NewValidationError("quantity", fmt.Sprintf("%s requiere cantidad positiva", mt))
	case sign < 0 && input.Quantity > 0:
		return Command{}, domain.NewValidationError("quantity", fmt.Sprintf("%s requiere cantidad negativa", mt))
	}

	note := strings.TrimSpace(input.Note)
	if utf8.RuneCountInString(note) > in.noteMaxLength {
		return Command{}, domain.NewValidationError("note", fmt.Sprintf("máximo %d caracteres", in.noteMaxLength))
	}

	ref, err := parseReference(input.ReferenceType, input.ReferenceID)
	if err != nil {
		return Command{}, err
	}

	idem := strings.TrimSpace(input.IdempotencyKey)
	if len(idem) > idempotencyMaxLength {
		return Command{}, domain.NewValidationError("idempotency_key", fmt.Sprintf("máximo %d caracteres", idempotencyMaxLength))
	}

	return Command{
		Key:            entity.InventoryKey{ProductID: productID, VariantID: variantID},
		UserID:         userID,
		Quantity:       input.Quantity,
		Type:           mt,
		Note:           note,
		Reference:      ref,
		IdempotencyKey: idem,
		StrictStock:    input.StrictStock,
	}, nil
}

// parseID valida UUID y lo devuelve en forma canónica.
func parseID(field, raw string, required bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return "", domain.NewValidationError(field, "es requerido")
		}
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", domain.NewValidationError(field, "debe ser un UUID válido")
	}
	return id.String(), nil
}

func parseReference(rawType, rawID string) (*entity.Reference, error) {
	rawType = strings.TrimSpace(rawType)
	rawID = strings.TrimSpace(rawID)
	if rawType == "" && rawID == "" {
		return nil, nil
	}
	if rawType == "" {
		return nil, domain.NewValidationError("reference_type", "es requerido cuando hay reference_id")
	}
	kind, ok := entity.ParseReferenceKind(rawType)
	if !ok {
		return nil, domain.NewValidationError("reference_type", fmt.Sprintf("tipo de referencia %q no reconocido", rawType))
	}
	if rawID == "" {
		return nil, domain.NewValidationError("reference_id", "es requerido cuando hay reference_type")
	}
	if len(rawID) > referenceIDMaxLength {
		return nil, domain.NewValidationError("reference_id", fmt.Sprintf("máximo %d caracteres", referenceIDMaxLength))
	}
	return &entity.Reference{Kind: kind, ID: rawID}, nil
}
