package memory

import (
	"context"
	"slices"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// OutboxRepository lado del publicador sobre el outbox en memoria.
type OutboxRepository struct {
	store *Store
	now   func() time.Time
}

// NewOutboxRepository construye el repositorio.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store, now: time.Now}
}

// Unpublished devuelve hasta limit eventos pendientes en orden de encolado.
func (r *OutboxRepository) Unpublished(_ context.Context, limit int) ([]*entity.OutboxEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*entity.OutboxEvent, 0)
	for _, e := range r.store.outbox {
		if e.PublishedAt != nil {
			continue
		}
		c := *e
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkPublished sella los eventos como publicados.
func (r *OutboxRepository) MarkPublished(_ context.Context, ids []int64) error {
	now := r.now().UTC()
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.outbox {
		if e.PublishedAt == nil && slices.Contains(ids, e.ID) {
			t := now
			e.PublishedAt = &t
		}
	}
	return nil
}
