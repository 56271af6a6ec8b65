package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const (
	DefaultMaxRetries   = 5
	DefaultApplyTimeout = 5 * time.Second
	baseBackoff         = 5 * time.Millisecond
)

// Policy política de stock negativo.
type Policy struct {
	// AllowBackorders permite que sale/destruction dejen la clave en negativo.
	AllowBackorders bool
}

// ForbidsNegative indica si un resultado negativo debe abortar el movimiento.
func (p Policy) ForbidsNegative(t entity.MovementType, strict bool) bool {
	if strict {
		return true
	}
	return t.Depleting() && !p.AllowBackorders
}

// AccumulatorConfig parámetros de Apply.
type AccumulatorConfig struct {
	Policy     Policy
	MaxRetries int
	Timeout    time.Duration
}

// Accumulator mantiene la proyección por clave y garantiza que cada movimiento se aplique
// atómicamente contra el último valor confirmado: bloqueo de fila (SELECT FOR UPDATE),
// cálculo de stock_before/stock_after y escritura de proyección + ledger + outbox en la misma tx.
type Accumulator struct {
	txRunner   TxRunner
	policy     Policy
	maxRetries int
	timeout    time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewAccumulator construye el acumulador.
func NewAccumulator(txRunner TxRunner, cfg AccumulatorConfig, log zerolog.Logger) *Accumulator {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultApplyTimeout
	}
	return &Accumulator{
		txRunner:   txRunner,
		policy:     cfg.Policy,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
		log:        log,
		now:        time.Now,
	}
}

// ApplyResult movimiento confirmado. Replayed es true si la llave de idempotencia ya existía
// y no se escribió nada nuevo.
type ApplyResult struct {
	Movement *entity.StockMovement
	Replayed bool
}

// Apply aplica el comando como una unidad de trabajo atómica. Reintenta ante conflictos transitorios
// (serialización, deadlock, lock_timeout) hasta MaxRetries y dentro de Timeout; al agotarse devuelve
// *domain.ConcurrencyConflictError sin escritura parcial.
func (a *Accumulator) Apply(ctx context.Context, cmd Command) (*ApplyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var lastErr error
	attempts := 0
	for attempts < a.maxRetries {
		attempts++
		res, err := a.applyOnce(ctx, cmd)
		if err == nil {
			m := res.Movement
			a.log.Debug().
				Str("key", cmd.Key.String()).
				Str("type", string(m.Type)).
				Int64("movement_id", m.ID).
				Int64("stock_before", m.StockBefore).
				Int64("stock_after", m.StockAfter).
				Bool("replayed", res.Replayed).
				Int("attempt", attempts).
				Msg("movimiento aplicado")
			return res, nil
		}
		if !retryable(err) {
			if errors.Is(err, domain.ErrInsufficientStock) {
				a.log.Info().Err(err).Str("key", cmd.Key.String()).Msg("movimiento rechazado por stock insuficiente")
			}
			return nil, err
		}
		lastErr = err
		a.log.Warn().Err(err).Str("key", cmd.Key.String()).Int("attempt", attempts).Msg("conflicto al aplicar movimiento, reintentando")
		if !sleepBackoff(ctx, attempts) {
			break
		}
	}
	return nil, &domain.ConcurrencyConflictError{Key: cmd.Key.String(), Attempts: attempts, Cause: lastErr}
}

func (a *Accumulator) applyOnce(ctx context.Context, cmd Command) (*ApplyResult, error) {
	var result *ApplyResult
	err := a.txRunner.Run(ctx, func(
		movRepo repository.MovementAppender,
		levelRepo repository.StockLevelLocker,
		outboxRepo repository.OutboxWriter,
	) error {
		// 1. Bloquea la fila de la clave (la crea en 0 si no existe)
		level, err := levelRepo.GetForUpdate(ctx, cmd.Key)
		if err != nil {
			return err
		}

		// Con la fila bloqueada, un duplicado concurrente de la misma clave ya no puede colarse.
		if cmd.IdempotencyKey != "" {
			existing, err := movRepo.FindByIdempotencyKey(ctx, cmd.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				// La llave solo repite el mismo movimiento; otro contenido es un conflicto.
				if existing.Key() != cmd.Key || existing.Quantity != cmd.Quantity || existing.Type != cmd.Type {
					return fmt.Errorf("llave de idempotencia %q: %w", cmd.IdempotencyKey, domain.ErrConflict)
				}
				result = &ApplyResult{Movement: existing, Replayed: true}
				return nil
			}
		}

		if cmd.Type == entity.MovementTypeInitial && level.Version > 0 {
			return domain.ErrInitialStockExists
		}

		// 2-3. stock_before y stock_after
		before := level.Quantity
		if (cmd.Quantity > 0 && before > math.MaxInt64-cmd.Quantity) ||
			(cmd.Quantity < 0 && before < math.MinInt64-cmd.Quantity) {
			return domain.NewValidationError("quantity", "desborda el contador de stock")
		}
		after := before + cmd.Quantity

		// 4. Política de stock negativo
		if after < 0 && a.policy.ForbidsNegative(cmd.Type, cmd.StrictStock) {
			return &domain.InsufficientStockError{Key: cmd.Key.String(), StockBefore: before, Quantity: cmd.Quantity}
		}

		// 5. Proyección + fila del ledger + evento, misma transacción
		now := a.now().UTC()
		mov := &entity.StockMovement{
			ProductID:      cmd.Key.ProductID,
			VariantID:      cmd.Key.VariantID,
			UserID:         cmd.UserID,
			Quantity:       cmd.Quantity,
			Type:           cmd.Type,
			Note:           cmd.Note,
			Reference:      cmd.Reference,
			IdempotencyKey: cmd.IdempotencyKey,
			StockBefore:    before,
			StockAfter:     after,
			CreatedAt:      now,
		}
		id, err := movRepo.Append(ctx, mov)
		if err != nil {
			return err
		}
		mov.ID = id

		level.Quantity = after
		level.Version++
		level.UpdatedAt = now
		if err := levelRepo.Save(ctx, level); err != nil {
			return err
		}

		event, err := NewRecordedEvent(mov)
		if err != nil {
			return err
		}
		if err := outboxRepo.Enqueue(ctx, event); err != nil {
			return err
		}

		result = &ApplyResult{Movement: mov}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// retryable: conflictos de concurrencia señalados por el store o el timeout propio de Apply.
func retryable(err error) bool {
	var conflict *domain.ConcurrencyConflictError
	if errors.As(err, &conflict) {
		return false
	}
	return errors.Is(err, domain.ErrConcurrencyConflict) || errors.Is(err, context.DeadlineExceeded)
}

// sleepBackoff espera con backoff exponencial y jitter; false si el contexto terminó.
func sleepBackoff(ctx context.Context, attempt int) bool {
	if ctx.Err() != nil {
		return false
	}
	d := baseBackoff << (attempt - 1)
	d += time.Duration(rand.Int63n(int64(baseBackoff)))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// RecordedEventPayload cuerpo JSON del evento stock.movement.recorded.
type RecordedEventPayload struct {
	MovementID    int64     `json:"movement_id"`
	ProductID     string    `json:"product_id"`
	VariantID     *string   `json:"variant_id"`
	UserID        *string   `json:"user_id"`
	Type          string    `json:"type"`
	Quantity      int64     `json:"quantity"`
	StockBefore   int64     `json:"stock_before"`
	StockAfter    int64     `json:"stock_after"`
	ReferenceType *string   `json:"reference_type"`
	ReferenceID   *string   `json:"reference_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewRecordedEvent construye el evento de outbox de un movimiento ya persistido.
func NewRecordedEvent(m *entity.StockMovement) (*entity.OutboxEvent, error) {
	p := RecordedEventPayload{
		MovementID:  m.ID,
		ProductID:   m.ProductID,
		VariantID:   optional(m.VariantID),
		UserID:      optional(m.UserID),
		Type:        string(m.Type),
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		CreatedAt:   m.CreatedAt,
	}
	if m.Reference != nil {
		kind := string(m.Reference.Kind)
		p.ReferenceType = &kind
		p.ReferenceID = &m.Reference.ID
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("serializar evento: %w", err)
	}
	return &entity.OutboxEvent{
		MovementID:  m.ID,
		EventType:   entity.EventStockMovementRecorded,
		PartitionBy: m.Key().String(),
		Payload:     body,
		CreatedAt:   m.CreatedAt,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
