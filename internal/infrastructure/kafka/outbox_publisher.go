package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const defaultBatchSize = 100

// OutboxPublisher sondea el outbox y publica los eventos pendientes. Un evento se marca como
// publicado solo después de que el broker lo confirma.
type OutboxPublisher struct {
	repo      repository.OutboxRepository
	writer    MessageWriter
	interval  time.Duration
	batchSize int
	log       zerolog.Logger
}

// NewOutboxPublisher construye el publicador.
func NewOutboxPublisher(repo repository.OutboxRepository, writer MessageWriter, interval time.Duration, log zerolog.Logger) *OutboxPublisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxPublisher{repo: repo, writer: writer, interval: interval, batchSize: defaultBatchSize, log: log}
}

// Run publica en cada tick hasta que ctx termine.
func (p *OutboxPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := p.PublishPending(ctx); err != nil && ctx.Err() == nil {
				p.log.Error().Err(err).Msg("error publicando outbox")
			}
		case <-ctx.Done():
			return
		}
	}
}

// PublishPending publica un lote y devuelve cuántos eventos se marcaron.
func (p *OutboxPublisher) PublishPending(ctx context.Context) (int, error) {
	events, err := p.repo.Unpublished(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("leer outbox: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.PartitionBy),
			Value: e.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.EventType)},
				{Key: "movement_id", Value: []byte(strconv.FormatInt(e.MovementID, 10))},
			},
		})
		ids = append(ids, e.ID)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publicar %d eventos: %w", len(msgs), err)
	}
	if err := p.repo.MarkPublished(ctx, ids); err != nil {
		return 0, fmt.Errorf("marcar publicados: %w", err)
	}
	p.log.Debug().Int("events", len(ids)).Msg("outbox publicado")
	return len(ids), nil
}
