package memory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// AddProduct registra un producto en el catálogo en memoria.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = &p
}

// AddVariant registra una variante.
func (s *Store) AddVariant(v entity.ProductVariant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[v.ID] = &v
}

// AddUser registra un usuario (solo para búsquedas por nombre).
func (s *Store) AddUser(u entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// AddOrder registra el número visible de un pedido.
func (s *Store) AddOrder(id, number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id] = number
}

// AddReturnCase registra el número visible de una devolución.
func (s *Store) AddReturnCase(id, number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.returnCases[id] = number
}

// DeleteOrder simula que el colaborador borró el pedido.
func (s *Store) DeleteOrder(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
}

// Catalog implementa repository.CatalogRepository y repository.ReferenceLookup.
type Catalog struct {
	store *Store
}

// NewCatalog construye el catálogo.
func NewCatalog(store *Store) *Catalog {
	return &Catalog{store: store}
}

// GetProduct devuelve nil si no existe.
func (c *Catalog) GetProduct(_ context.Context, id string) (*entity.Product, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if p, ok := c.store.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

// GetVariant devuelve nil si no existe.
func (c *Catalog) GetVariant(_ context.Context, id string) (*entity.ProductVariant, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if v, ok := c.store.variants[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

// OrderNumber número del pedido o domain.ErrNotFound.
func (c *Catalog) OrderNumber(_ context.Context, id string) (string, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if n, ok := c.store.orders[id]; ok {
		return n, nil
	}
	return "", &domain.NotFoundError{Resource: "pedido", ID: id}
}

// ReturnCaseNumber número de la devolución o domain.ErrNotFound.
func (c *Catalog) ReturnCaseNumber(_ context.Context, id string) (string, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	if n, ok := c.store.returnCases[id]; ok {
		return n, nil
	}
	return "", &domain.NotFoundError{Resource: "devolución", ID: id}
}
