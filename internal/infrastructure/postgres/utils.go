package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SQLSTATE que indican que otra transacción ganó la carrera; reintentar es seguro.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateUniqueViolation      = "23505"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateUniqueViolation
	}
	return false
}

// classifyConflict envuelve los errores transitorios de concurrencia con domain.ErrConcurrencyConflict.
func classifyConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return fmt.Errorf("%w: %w", domain.ErrConcurrencyConflict, err)
		}
	}
	return err
}

// keyPredicate condición SQL sobre (product_id, variant_id). El stock propio usa IS NULL para
// que el índice único siga sirviendo.
func keyPredicate(alias string, key entity.InventoryKey, firstArg int) (string, []any) {
	col := func(c string) string {
		if alias == "" {
			return c
		}
		return alias + "." + c
	}
	if !key.HasVariant() {
		return fmt.Sprintf("%s = $%d AND %s IS NULL", col("product_id"), firstArg, col("variant_id")), []any{key.ProductID}
	}
	return fmt.Sprintf("%s = $%d AND %s = $%d", col("product_id"), firstArg, col("variant_id"), firstArg+1),
		[]any{key.ProductID, key.VariantID}
}

// nullable convierte "" en NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// likePattern escapa comodines y envuelve en %...%.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
