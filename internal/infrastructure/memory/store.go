// Package memory implementa los puertos del ledger en memoria, con bloqueo por clave y
// transacciones que se descartan completas si fallan. Respalda los tests de las capas superiores.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Store estado compartido: ledger, proyecciones, outbox y un catálogo mínimo.
type Store struct {
	mu sync.RWMutex

	movements []*entity.StockMovement // en orden de commit
	byID      map[int64]*entity.StockMovement
	byIdem    map[string]*entity.StockMovement
	levels    map[entity.InventoryKey]*entity.StockLevel
	outbox    []*entity.OutboxEvent

	nextMovementID int64
	nextEventID    int64

	// keyLocks semáforos de 1 por clave; un canal permite esperar respetando el contexto.
	locksMu  sync.Mutex
	keyLocks map[entity.InventoryKey]chan struct{}

	products    map[string]*entity.Product
	variants    map[string]*entity.ProductVariant
	users       map[string]*entity.User
	orders      map[string]string
	returnCases map[string]string

	faultMu sync.Mutex
	faults  []error
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		byID:        make(map[int64]*entity.StockMovement),
		byIdem:      make(map[string]*entity.StockMovement),
		levels:      make(map[entity.InventoryKey]*entity.StockLevel),
		keyLocks:    make(map[entity.InventoryKey]chan struct{}),
		products:    make(map[string]*entity.Product),
		variants:    make(map[string]*entity.ProductVariant),
		users:       make(map[string]*entity.User),
		orders:      make(map[string]string),
		returnCases: make(map[string]string),
	}
}

// InjectFaults hace que las próximas len(errs) transacciones fallen al bloquear la clave con esos errores.
// Sirve para simular serialización, deadlocks o lock_timeout.
func (s *Store) InjectFaults(errs ...error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults = append(s.faults, errs...)
}

func (s *Store) nextFault() error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if len(s.faults) == 0 {
		return nil
	}
	err := s.faults[0]
	s.faults = s.faults[1:]
	return err
}

// lockKey espera el semáforo de la clave o el fin del contexto.
func (s *Store) lockKey(ctx context.Context, key entity.InventoryKey) (func(), error) {
	s.locksMu.Lock()
	ch, ok := s.keyLocks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.keyLocks[key] = ch
	}
	s.locksMu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Movements copia del ledger completo en orden de commit.
func (s *Store) Movements() []*entity.StockMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.StockMovement, len(s.movements))
	for i, m := range s.movements {
		out[i] = cloneMovement(m)
	}
	return out
}

// CorruptLevel sobrescribe una proyección sin pasar por el acumulador. Solo para simular desvíos.
func (s *Store) CorruptLevel(key entity.InventoryKey, quantity int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.levels[key]
	if !ok {
		l = &entity.StockLevel{ProductID: key.ProductID, VariantID: key.VariantID}
		s.levels[key] = l
	}
	l.Quantity = quantity
}

func cloneMovement(m *entity.StockMovement) *entity.StockMovement {
	c := *m
	if m.Reference != nil {
		ref := *m.Reference
		c.Reference = &ref
	}
	return &c
}

func cloneLevel(l *entity.StockLevel) *entity.StockLevel {
	c := *l
	return &c
}

var errNilMovement = domain.NewValidationError("movement", "es requerido")
