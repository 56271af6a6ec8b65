package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// OutboxWriter encola eventos dentro de la transacción del acumulador.
type OutboxWriter interface {
	Enqueue(ctx context.Context, event *entity.OutboxEvent) error
}

// OutboxRepository lado del publicador: lee pendientes y los marca como publicados.
type OutboxRepository interface {
	Unpublished(ctx context.Context, limit int) ([]*entity.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []int64) error
}
