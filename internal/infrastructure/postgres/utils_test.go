package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

func TestClassifyConflict(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := classifyConflict(&pgconn.PgError{Code: code})
		assert.ErrorIs(t, err, domain.ErrConcurrencyConflict, code)
		var pgErr *pgconn.PgError
		assert.True(t, errors.As(err, &pgErr))
	}
	other := &pgconn.PgError{Code: "23503"}
	assert.NotErrorIs(t, classifyConflict(other), domain.ErrConcurrencyConflict)
	assert.NoError(t, classifyConflict(nil))
}

func TestKeyPredicate(t *testing.T) {
	where, args := keyPredicate("", entity.InventoryKey{ProductID: "p"}, 1)
	assert.Equal(t, "product_id = $1 AND variant_id IS NULL", where)
	assert.Equal(t, []any{"p"}, args)

	where, args = keyPredicate("m", entity.InventoryKey{ProductID: "p", VariantID: "v"}, 4)
	assert.Equal(t, "m.product_id = $4 AND m.variant_id = $5", where)
	assert.Equal(t, []any{"p", "v"}, args)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%50\% off\_x%`, likePattern("50% off_x"))
}

func TestBuildMovementWhere(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args := buildMovementWhere(repository.MovementFilter{
		ProductID:        "p",
		OnlyProductStock: true,
		Types:            []entity.MovementType{entity.MovementTypeSale, entity.MovementTypeRestock},
		Since:            &since,
		Search:           "camiseta",
	})
	assert.Contains(t, where, "m.product_id = $1")
	assert.Contains(t, where, "m.variant_id IS NULL")
	assert.Contains(t, where, "m.type = ANY($2)")
	assert.Contains(t, where, "m.created_at >= $3")
	assert.Contains(t, where, `btrim(regexp_replace(unaccent(lower(coalesce(p.name, ''))), '\s+', ' ', 'g')) LIKE $4`)
	assert.Contains(t, where, `btrim(regexp_replace(unaccent(lower(coalesce(m.note, ''))), '\s+', ' ', 'g')) LIKE $4`)
	assert.Equal(t, []any{"p", []string{"sale", "restock"}, since, "%camiseta%"}, args)

	where, args = buildMovementWhere(repository.MovementFilter{})
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, args)
}
