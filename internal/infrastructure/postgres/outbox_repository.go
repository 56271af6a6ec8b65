package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ repository.OutboxWriter     = (*OutboxRepo)(nil)
	_ repository.OutboxRepository = (*OutboxRepo)(nil)
)

// OutboxRepo eventos pendientes de publicar en stock_movement_outbox.
type OutboxRepo struct {
	q Querier
}

// NewOutboxRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOutboxRepository(q Querier) *OutboxRepo {
	return &OutboxRepo{q: q}
}

// Enqueue inserta el evento; se usa dentro de la tx del acumulador.
func (r *OutboxRepo) Enqueue(ctx context.Context, e *entity.OutboxEvent) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO stock_movement_outbox (movement_id, event_type, partition_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		e.MovementID, e.EventType, e.PartitionBy, e.Payload, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// Unpublished eventos sin publicar en orden de inserción.
func (r *OutboxRepo) Unpublished(ctx context.Context, limit int) ([]*entity.OutboxEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, movement_id, event_type, partition_key, payload, created_at, published_at
		FROM stock_movement_outbox
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	defer rows.Close()

	var out []*entity.OutboxEvent
	for rows.Next() {
		var e entity.OutboxEvent
		if err := rows.Scan(&e.ID, &e.MovementID, &e.EventType, &e.PartitionBy, &e.Payload, &e.CreatedAt, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// MarkPublished sella los eventos entregados al broker.
func (r *OutboxRepo) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx, `UPDATE stock_movement_outbox SET published_at = now() WHERE id = ANY($1) AND published_at IS NULL`, ids); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
