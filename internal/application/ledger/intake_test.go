package ledger_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestIntake_Normalize_Rechazos(t *testing.T) {
	in := ledger.NewIntake(nil, 10)
	base := ledger.RecordMovementInput{ProductID: productID, Quantity: 5, Type: "restock"}

	tests := []struct {
		name  string
		mod   func(*ledger.RecordMovementInput)
		field string
	}{
		{"producto vacío", func(i *ledger.RecordMovementInput) { i.ProductID = "" }, "product_id"},
		{"producto no uuid", func(i *ledger.RecordMovementInput) { i.ProductID = "abc" }, "product_id"},
		{"variante no uuid", func(i *ledger.RecordMovementInput) { i.VariantID = "xyz" }, "variant_id"},
		{"usuario no uuid", func(i *ledger.RecordMovementInput) { i.UserID = "u1" }, "user_id"},
		{"tipo desconocido", func(i *ledger.RecordMovementInput) { i.Type = "theft" }, "type"},
		{"cantidad cero", func(i *ledger.RecordMovementInput) { i.Quantity = 0 }, "quantity"},
		{"restock negativo", func(i *ledger.RecordMovementInput) { i.Quantity = -1 }, "quantity"},
		{"venta positiva", func(i *ledger.RecordMovementInput) { i.Type = "sale" }, "quantity"},
		{"initial negativo", func(i *ledger.RecordMovementInput) { i.Type, i.Quantity = "initial", -4 }, "quantity"},
		{"nota larga", func(i *ledger.RecordMovementInput) { i.Note = strings.Repeat("ñ", 11) }, "note"},
		{"referencia sin tipo", func(i *ledger.RecordMovementInput) { i.ReferenceID = "x" }, "reference_type"},
		{"referencia sin id", func(i *ledger.RecordMovementInput) { i.ReferenceType = "order" }, "reference_id"},
		{"tipo de referencia desconocido", func(i *ledger.RecordMovementInput) { i.ReferenceType, i.ReferenceID = "invoice", "1" }, "reference_type"},
		{"llave de idempotencia larga", func(i *ledger.RecordMovementInput) { i.IdempotencyKey = strings.Repeat("k", 129) }, "idempotency_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base
			tt.mod(&input)
			_, err := in.Normalize(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestIntake_Normalize_Canoniza(t *testing.T) {
	in := ledger.NewIntake(nil, 0)
	cmd, err := in.Normalize(ledger.RecordMovementInput{
		ProductID:     "  " + strings.ToUpper(productID) + " ",
		Quantity:      -3,
		Type:          "correction",
		Note:          "  conteo físico  ",
		ReferenceType: "manual_adjustment",
		ReferenceID:   "AJ-7",
	})
	require.NoError(t, err)
	assert.Equal(t, productID, cmd.Key.ProductID)
	assert.False(t, cmd.Key.HasVariant())
	assert.Equal(t, entity.MovementTypeCorrection, cmd.Type)
	assert.Equal(t, "conteo físico", cmd.Note)
	require.NotNil(t, cmd.Reference)
	assert.Equal(t, entity.ReferenceManualAdjustment, cmd.Reference.Kind)
}

func TestIntake_Validate_Catalogo(t *testing.T) {
	f := newFixture(t, ledger.AccumulatorConfig{})
	ctx := context.Background()

	_, err := f.intake.Validate(ctx, ledger.RecordMovementInput{ProductID: "5e4d3c2b-1a09-4f8e-8d7c-6b5a49382716", Quantity: 1, Type: "restock"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "product_id", ve.Field)

	_, err = f.intake.Validate(ctx, ledger.RecordMovementInput{ProductID: otherProd, VariantID: variantID, Quantity: 1, Type: "restock"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "variant_id", ve.Field)

	cmd, err := f.intake.Validate(ctx, ledger.RecordMovementInput{ProductID: productID, VariantID: variantID, Quantity: 1, Type: "restock"})
	require.NoError(t, err)
	assert.Equal(t, variantID, cmd.Key.VariantID)
}

func TestRecordMovement_CantidadCeroNoEscribe(t *testing.T) {
	f := newFixture(t, ledger.AccumulatorConfig{})
	_, err := f.record.RecordMovement(context.Background(), ledger.RecordMovementInput{ProductID: productID, Quantity: 0, Type: "adjustment"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.store.Movements())
}
