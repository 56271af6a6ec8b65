package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

const (
	retryBaseDelay = 200 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
)

// MovementRecorder caso de uso que aplica un comando.
type MovementRecorder interface {
	RecordMovementFromRequest(ctx context.Context, actorID string, in dto.RecordMovementRequest) (*dto.RecordMovementResponse, error)
}

// CommandConsumer lee comandos RecordMovement y los aplica. Entrega al menos una vez: el offset se
// confirma solo después de aplicar o de rechazar definitivamente el mensaje.
type CommandConsumer struct {
	reader   MessageReader
	recorder MovementRecorder
	log      zerolog.Logger
}

// NewCommandConsumer construye el consumidor.
func NewCommandConsumer(reader MessageReader, recorder MovementRecorder, log zerolog.Logger) *CommandConsumer {
	return &CommandConsumer{reader: reader, recorder: recorder, log: log}
}

// Run procesa mensajes hasta que ctx termine.
func (c *CommandConsumer) Run(ctx context.Context) error {
	c.log.Info().Msg("consumidor de comandos iniciado")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.Info().Msg("consumidor de comandos detenido")
				return nil
			}
			c.log.Error().Err(err).Msg("error leyendo de kafka")
			if !sleep(ctx, retryBaseDelay) {
				return nil
			}
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			// solo ocurre si ctx terminó a mitad de reintentos; el mensaje se relee al reiniciar
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("error confirmando offset")
		}
	}
}

// handle aplica el mensaje. Devuelve error solo si ctx terminó antes de poder aplicarlo.
func (c *CommandConsumer) handle(ctx context.Context, msg kafka.Message) error {
	log := c.log.With().Str("topic", msg.Topic).Int("partition", msg.Partition).Int64("offset", msg.Offset).Logger()

	var req dto.RecordMovementRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		log.Error().Err(err).Msg("comando ilegible, se descarta")
		return nil
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = messageKey(msg)
	}

	delay := retryBaseDelay
	for attempt := 1; ; attempt++ {
		res, err := c.recorder.RecordMovementFromRequest(ctx, "", req)
		switch {
		case err == nil:
			log.Debug().Int64("movement_id", res.ID).Int64("stock_after", res.StockAfter).Bool("replayed", res.Replayed).Msg("comando aplicado")
			return nil
		case rejected(err):
			log.Warn().Err(err).Str("product_id", req.ProductID).Str("type", req.Type).Msg("comando rechazado")
			return nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("no se pudo aplicar el comando, reintentando")
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay = min(delay*2, retryMaxDelay)
	}
}

// rejected errores de negocio: reintentar el mismo mensaje nunca tendría éxito.
func rejected(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInitialStockExists) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConflict)
}

// messageKey llave de idempotencia derivada de la posición del mensaje en el log.
func messageKey(msg kafka.Message) string {
	return fmt.Sprintf("kafka:%s:%d:%d", msg.Topic, msg.Partition, msg.Offset)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
