package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia, reintente")
	ErrInitialStockExists  = errors.New("la clave ya tiene movimientos; use correction o adjustment")
)

// ValidationError rechazo de intake; Field nombra el campo ofensivo.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError construye un ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError el movimiento dejaría la clave en negativo bajo la política activa.
type InsufficientStockError struct {
	Key         string
	StockBefore int64
	Quantity    int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente en %s: actual %d, movimiento %d", e.Key, e.StockBefore, e.Quantity)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConcurrencyConflictError se agotaron los reintentos o el tiempo de Apply. Es transitorio:
// el caller debe reenviar el RecordMovement completo.
type ConcurrencyConflictError struct {
	Key      string
	Attempts int
	Cause    error
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conflicto de concurrencia en %s tras %d intentos: %v", e.Key, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("conflicto de concurrencia en %s tras %d intentos", e.Key, e.Attempts)
}

func (e *ConcurrencyConflictError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrConcurrencyConflict, e.Cause}
	}
	return []error{ErrConcurrencyConflict}
}

// NotFoundError recurso inexistente (movimiento, producto, variante).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }
