package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta la función con repositorios atados a una transacción en memoria.
// Las escrituras se acumulan y se aplican juntas al confirmar; si fn falla se descartan.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run abre la transacción, llama a fn y confirma o descarta.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementAppender,
	levelRepo repository.StockLevelLocker,
	outboxRepo repository.OutboxWriter,
) error) error {
	tx := &memTx{store: r.store}
	defer tx.release()

	if err := fn(tx, tx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	store    *Store
	unlocks  []func()
	locked   map[entity.InventoryKey]bool
	appended []*entity.StockMovement
	levels   map[entity.InventoryKey]*entity.StockLevel
	events   []*entity.OutboxEvent
}

func (t *memTx) release() {
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
	t.unlocks = nil
}

// GetForUpdate bloquea la clave hasta el fin de la transacción y devuelve su proyección (0 si no existe).
func (t *memTx) GetForUpdate(ctx context.Context, key entity.InventoryKey) (*entity.StockLevel, error) {
	if err := t.store.nextFault(); err != nil {
		return nil, err
	}
	if !t.locked[key] {
		unlock, err := t.store.lockKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("bloquear %s: %w", key, err)
		}
		t.unlocks = append(t.unlocks, unlock)
		if t.locked == nil {
			t.locked = make(map[entity.InventoryKey]bool)
		}
		t.locked[key] = true
	}
	if l, ok := t.levels[key]; ok {
		return cloneLevel(l), nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if l, ok := t.store.levels[key]; ok {
		return cloneLevel(l), nil
	}
	return &entity.StockLevel{ProductID: key.ProductID, VariantID: key.VariantID}, nil
}

// Save deja la proyección pendiente de commit. Exige que la clave esté bloqueada.
func (t *memTx) Save(_ context.Context, level *entity.StockLevel) error {
	key := level.Key()
	if !t.locked[key] {
		return fmt.Errorf("guardar proyección %s sin bloqueo previo", key)
	}
	if t.levels == nil {
		t.levels = make(map[entity.InventoryKey]*entity.StockLevel)
	}
	t.levels[key] = cloneLevel(level)
	return nil
}

// Append reserva el ID (como una secuencia: un rollback deja huecos) y deja la fila pendiente.
func (t *memTx) Append(_ context.Context, m *entity.StockMovement) (int64, error) {
	if m == nil {
		return 0, errNilMovement
	}
	if !t.locked[m.Key()] {
		return 0, fmt.Errorf("append en %s sin bloqueo previo", m.Key())
	}
	if m.IdempotencyKey != "" {
		if existing, _ := t.FindByIdempotencyKey(context.Background(), m.IdempotencyKey); existing != nil {
			return 0, fmt.Errorf("llave de idempotencia %q duplicada: %w", m.IdempotencyKey, domain.ErrConflict)
		}
	}
	t.store.mu.Lock()
	t.store.nextMovementID++
	id := t.store.nextMovementID
	t.store.mu.Unlock()

	c := cloneMovement(m)
	c.ID = id
	t.appended = append(t.appended, c)
	return id, nil
}

// FindByIdempotencyKey busca en lo confirmado y en lo pendiente de esta transacción.
func (t *memTx) FindByIdempotencyKey(_ context.Context, key string) (*entity.StockMovement, error) {
	for _, m := range t.appended {
		if m.IdempotencyKey == key {
			return cloneMovement(m), nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if m, ok := t.store.byIdem[key]; ok {
		return cloneMovement(m), nil
	}
	return nil, nil
}

// Enqueue deja el evento pendiente de commit.
func (t *memTx) Enqueue(_ context.Context, event *entity.OutboxEvent) error {
	c := *event
	t.events = append(t.events, &c)
	return nil
}

func (t *memTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range t.appended {
		s.movements = append(s.movements, m)
		s.byID[m.ID] = m
		if m.IdempotencyKey != "" {
			s.byIdem[m.IdempotencyKey] = m
		}
	}
	for key, l := range t.levels {
		s.levels[key] = l
	}
	for _, e := range t.events {
		s.nextEventID++
		e.ID = s.nextEventID
		s.outbox = append(s.outbox, e)
	}
}
