// Package memory implementa los repositorios y los TxRunner en memoria.
// Las transacciones se serializan y trabajan sobre una copia del estado que
// reemplaza al original solo en el commit, así que un error o un pánico no deja rastro.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

type state struct {
	products  map[string]*entity.Product
	inventory map[string]*entity.Inventory // por product_id
	movements []*storedMovement
	invoices  map[string]*entity.Invoice
	items     map[string][]*entity.InvoiceItem // por invoice_id
	users     map[string]*entity.User
	seq       int64
}

type storedMovement struct {
	seq int64
	m   entity.InventoryMovement
}

func newState() *state {
	return &state{
		products:  map[string]*entity.Product{},
		inventory: map[string]*entity.Inventory{},
		invoices:  map[string]*entity.Invoice{},
		items:     map[string][]*entity.InvoiceItem{},
		users:     map[string]*entity.User{},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range st.inventory {
		i := *v
		c.inventory[k] = &i
	}
	// los movimientos son inmutables: basta copiar el slice
	c.movements = append(make([]*storedMovement, 0, len(st.movements)), st.movements...)
	for k, v := range st.invoices {
		i := *v
		c.invoices[k] = &i
	}
	for k, v := range st.items {
		list := make([]*entity.InvoiceItem, 0, len(v))
		for _, it := range v {
			cp := *it
			list = append(list, &cp)
		}
		c.items[k] = list
	}
	for k, v := range st.users {
		u := *v
		c.users[k] = &u
	}
	c.seq = st.seq
	return c
}

// Store base de datos en memoria.
type Store struct {
	txMu sync.Mutex   // una transacción (o escritura suelta) a la vez
	mu   sync.RWMutex // protege st frente a lecturas fuera de transacción
	st   *state

	failMu   sync.Mutex
	failures map[string]error
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState(), failures: map[string]error{}}
}

// FailOn hace que la operación op devuelva err en adelante (tests de rollback).
// Operaciones: "inventory.update", "movements.create", "invoices.create", "invoices.create_item", "products.create".
func (s *Store) FailOn(op string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) injected(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.failures[op]
}

// scope liga un repositorio al estado vivo (tx == nil) o a la copia de una transacción.
type scope struct {
	store *Store
	tx    *state
}

func (sc scope) read(fn func(st *state) error) error {
	if sc.tx != nil {
		return fn(sc.tx)
	}
	sc.store.mu.RLock()
	defer sc.store.mu.RUnlock()
	return fn(sc.store.st)
}

// write fuera de transacción se comporta como autocommit de una sola sentencia.
func (sc scope) write(fn func(st *state) error) error {
	if sc.tx != nil {
		return fn(sc.tx)
	}
	sc.store.txMu.Lock()
	defer sc.store.txMu.Unlock()
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	return fn(sc.store.st)
}

func (s *Store) live() scope { return scope{store: s} }

// Repositorios fuera de transacción.
func (s *Store) Products() *ProductRepo    { return &ProductRepo{s.live()} }
func (s *Store) Inventory() *InventoryRepo { return &InventoryRepo{s.live()} }
func (s *Store) Movements() *MovementRepo  { return &MovementRepo{s.live()} }
func (s *Store) Invoices() *InvoiceRepo    { return &InvoiceRepo{s.live()} }
func (s *Store) Users() *UserRepo          { return &UserRepo{s.live()} }
func (s *Store) Dashboard() *DashboardRepo { return &DashboardRepo{s.live()} }
func (s *Store) TxRunner() *TxRunner       { return &TxRunner{store: s} }

// TxRunner implementa los puertos TxRunner de inventario, facturación y catálogo.
type TxRunner struct {
	store *Store
}

func (r *TxRunner) run(ctx context.Context, fn func(sc scope) error) error {
	r.store.txMu.Lock()
	defer r.store.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransaction, err)
	}

	r.store.mu.RLock()
	work := r.store.st.clone()
	r.store.mu.RUnlock()

	// ante error o pánico la copia se descarta
	if err := fn(scope{store: r.store, tx: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransaction, err)
	}

	r.store.mu.Lock()
	r.store.st = work
	r.store.mu.Unlock()
	return nil
}

// Run transacción del ledger.
func (r *TxRunner) Run(ctx context.Context, fn func(
	invRepo repository.InventoryRepository,
	movRepo repository.InventoryMovementRepository,
) error) error {
	return r.run(ctx, func(sc scope) error {
		return fn(&InventoryRepo{sc}, &MovementRepo{sc})
	})
}

// RunBilling transacción de facturación.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	invRepo repository.InventoryRepository,
	movRepo repository.InventoryMovementRepository,
) error) error {
	return r.run(ctx, func(sc scope) error {
		return fn(&InvoiceRepo{sc}, &InventoryRepo{sc}, &MovementRepo{sc})
	})
}

// RunCatalog transacción de catálogo.
func (r *TxRunner) RunCatalog(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	invRepo repository.InventoryRepository,
) error) error {
	return r.run(ctx, func(sc scope) error {
		return fn(&ProductRepo{sc}, &InventoryRepo{sc})
	})
}
