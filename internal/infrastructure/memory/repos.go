package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

// ProductRepo implementa repository.ProductRepository.
type ProductRepo struct{ sc scope }

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	if err := r.sc.store.injected("products.create"); err != nil {
		return err
	}
	return r.sc.write(func(st *state) error {
		for _, other := range st.products {
			if other.SKU == p.SKU {
				return domain.ErrDuplicate
			}
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		cp := *p
		st.products[p.ID] = &cp
		return nil
	})
}

func (r *ProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	var out *entity.Product
	err := r.sc.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

func (r *ProductRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	var out *entity.Product
	err := r.sc.read(func(st *state) error {
		for _, p := range st.products {
			if p.SKU == sku {
				cp := *p
				out = &cp
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.products[p.ID]; !ok {
			return domain.ErrNotFound
		}
		for _, other := range st.products {
			if other.ID != p.ID && other.SKU == p.SKU {
				return domain.ErrDuplicate
			}
		}
		cp := *p
		st.products[p.ID] = &cp
		return nil
	})
}

func (r *ProductRepo) List(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	err := r.sc.read(func(st *state) error {
		for _, p := range st.products {
			cp := *p
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), err
}

func (r *ProductRepo) Delete(_ context.Context, id string) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.products, id)
		return nil
	})
}

// InventoryRepo implementa repository.InventoryRepository. Dentro de una transacción
// la serialización del TxRunner cumple el papel del bloqueo de fila.
type InventoryRepo struct{ sc scope }

func (r *InventoryRepo) GetByProductID(_ context.Context, productID string) (*entity.Inventory, error) {
	var out *entity.Inventory
	err := r.sc.read(func(st *state) error {
		inv, ok := st.inventory[productID]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *inv
		out = &cp
		return nil
	})
	return out, err
}

func (r *InventoryRepo) GetForUpdate(ctx context.Context, productID string) (*entity.Inventory, error) {
	return r.GetByProductID(ctx, productID)
}

func (r *InventoryRepo) GetOrCreateForUpdate(_ context.Context, productID, productName string, reorderLevel int) (*entity.Inventory, error) {
	var out *entity.Inventory
	err := r.sc.write(func(st *state) error {
		inv, ok := st.inventory[productID]
		if !ok {
			inv = &entity.Inventory{
				ID:           uuid.New().String(),
				ProductID:    productID,
				ProductName:  productName,
				ReorderLevel: reorderLevel,
				LastUpdated:  time.Now().UTC(),
			}
			st.inventory[productID] = inv
		}
		cp := *inv
		out = &cp
		return nil
	})
	return out, err
}

func (r *InventoryRepo) Create(_ context.Context, inv *entity.Inventory) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.inventory[inv.ProductID]; ok {
			return domain.ErrDuplicate
		}
		if inv.ID == "" {
			inv.ID = uuid.New().String()
		}
		cp := *inv
		st.inventory[inv.ProductID] = &cp
		return nil
	})
}

func (r *InventoryRepo) UpdateStock(_ context.Context, inv *entity.Inventory) error {
	if err := r.sc.store.injected("inventory.update"); err != nil {
		return err
	}
	return r.sc.write(func(st *state) error {
		cur, ok := st.inventory[inv.ProductID]
		if !ok {
			return domain.ErrNotFound
		}
		if inv.Quantity < 0 {
			return domain.InvalidInputf("quantity negativa")
		}
		cur.Quantity = inv.Quantity
		cur.ProductName = inv.ProductName
		cur.LastUpdated = inv.LastUpdated
		return nil
	})
}

func (r *InventoryRepo) UpdateReorderLevel(_ context.Context, productID string, level int) (*entity.Inventory, error) {
	var out *entity.Inventory
	err := r.sc.write(func(st *state) error {
		cur, ok := st.inventory[productID]
		if !ok {
			return domain.ErrNotFound
		}
		cur.ReorderLevel = level
		cp := *cur
		out = &cp
		return nil
	})
	return out, err
}

func (r *InventoryRepo) UpdateProductName(_ context.Context, productID, name string) error {
	return r.sc.write(func(st *state) error {
		if cur, ok := st.inventory[productID]; ok {
			cur.ProductName = name
		}
		return nil
	})
}

func (r *InventoryRepo) Delete(_ context.Context, productID string) error {
	return r.sc.write(func(st *state) error {
		if cur, ok := st.inventory[productID]; ok && cur.Quantity > 0 {
			return domain.ErrConflict
		}
		delete(st.inventory, productID)
		return nil
	})
}

func (r *InventoryRepo) List(_ context.Context) ([]*entity.Inventory, error) {
	var out []*entity.Inventory
	err := r.sc.read(func(st *state) error {
		for _, inv := range st.inventory {
			cp := *inv
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductName != out[j].ProductName {
			return out[i].ProductName < out[j].ProductName
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, err
}

// MovementRepo implementa repository.InventoryMovementRepository (solo inserción).
type MovementRepo struct{ sc scope }

func (r *MovementRepo) Create(_ context.Context, m *entity.InventoryMovement) error {
	if err := r.sc.store.injected("movements.create"); err != nil {
		return err
	}
	if m.Amount <= 0 || m.NewQuantity < 0 {
		return domain.InvalidInputf("movimiento inválido")
	}
	return r.sc.write(func(st *state) error {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		st.seq++
		st.movements = append(st.movements, &storedMovement{seq: st.seq, m: *m})
		return nil
	})
}

func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.InventoryMovement, error) {
	var out *entity.InventoryMovement
	err := r.sc.read(func(st *state) error {
		for _, sm := range st.movements {
			if sm.m.ID == id {
				cp := sm.m
				out = &cp
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *MovementRepo) collect(filter func(*entity.InventoryMovement) bool) []*storedMovement {
	var out []*storedMovement
	_ = r.sc.read(func(st *state) error {
		for _, sm := range st.movements {
			if filter(&sm.m) {
				out = append(out, sm)
			}
		}
		return nil
	})
	return out
}

func newestFirst(list []*storedMovement) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].m.Date.Equal(list[j].m.Date) {
			return list[i].m.Date.After(list[j].m.Date)
		}
		return list[i].seq > list[j].seq
	})
}

func unwrap(list []*storedMovement) []*entity.InventoryMovement {
	out := make([]*entity.InventoryMovement, 0, len(list))
	for _, sm := range list {
		cp := sm.m
		out = append(out, &cp)
	}
	return out
}

func (r *MovementRepo) ListByProduct(_ context.Context, productID string, limit, offset int) ([]*entity.InventoryMovement, error) {
	list := r.collect(func(m *entity.InventoryMovement) bool { return m.ProductID == productID })
	newestFirst(list)
	return page(unwrap(list), limit, offset), nil
}

func (r *MovementRepo) ListRecent(_ context.Context, limit int) ([]*entity.InventoryMovement, error) {
	list := r.collect(func(*entity.InventoryMovement) bool { return true })
	newestFirst(list)
	return page(unwrap(list), limit, 0), nil
}

func (r *MovementRepo) ListChronological(_ context.Context, productID string) ([]*entity.InventoryMovement, error) {
	list := r.collect(func(m *entity.InventoryMovement) bool { return m.ProductID == productID })
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	return unwrap(list), nil
}

func (r *MovementRepo) TotalsSince(_ context.Context, from time.Time) (repository.MovementTotals, error) {
	var t repository.MovementTotals
	for _, sm := range r.collect(func(m *entity.InventoryMovement) bool { return !m.Date.Before(from) }) {
		if sm.m.Type == entity.MovementTypeIn {
			t.In += sm.m.Amount
		} else {
			t.Out += sm.m.Amount
		}
	}
	return t, nil
}

// InvoiceRepo implementa repository.InvoiceRepository.
type InvoiceRepo struct{ sc scope }

func (r *InvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	if err := r.sc.store.injected("invoices.create"); err != nil {
		return err
	}
	return r.sc.write(func(st *state) error {
		for _, other := range st.invoices {
			if other.Number == inv.Number {
				return domain.ErrDuplicate
			}
		}
		if inv.ID == "" {
			inv.ID = uuid.New().String()
		}
		cp := *inv
		st.invoices[inv.ID] = &cp
		return nil
	})
}

func (r *InvoiceRepo) CreateItem(_ context.Context, it *entity.InvoiceItem) error {
	if err := r.sc.store.injected("invoices.create_item"); err != nil {
		return err
	}
	return r.sc.write(func(st *state) error {
		if _, ok := st.invoices[it.InvoiceID]; !ok {
			return domain.ErrNotFound
		}
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		cp := *it
		st.items[it.InvoiceID] = append(st.items[it.InvoiceID], &cp)
		return nil
	})
}

func (r *InvoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.invoices[inv.ID]; !ok {
			return domain.ErrNotFound
		}
		cp := *inv
		st.invoices[inv.ID] = &cp
		return nil
	})
}

func (r *InvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	var out *entity.Invoice
	err := r.sc.read(func(st *state) error {
		inv, ok := st.invoices[id]
		if !ok {
			return domain.ErrNotFound
		}
		cp := *inv
		out = &cp
		return nil
	})
	return out, err
}

// GetForUpdate equivale a GetByID: las transacciones del store ya están serializadas.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *InvoiceRepo) GetItems(_ context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	var out []*entity.InvoiceItem
	err := r.sc.read(func(st *state) error {
		for _, it := range st.items[invoiceID] {
			cp := *it
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) DeleteItems(_ context.Context, invoiceID string) error {
	return r.sc.write(func(st *state) error {
		delete(st.items, invoiceID)
		return nil
	})
}

func (r *InvoiceRepo) Delete(_ context.Context, id string) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.invoices[id]; !ok {
			return domain.ErrNotFound
		}
		delete(st.invoices, id)
		delete(st.items, id)
		return nil
	})
}

func (r *InvoiceRepo) List(_ context.Context, limit, offset int) ([]*entity.Invoice, error) {
	var out []*entity.Invoice
	err := r.sc.read(func(st *state) error {
		for _, inv := range st.invoices {
			cp := *inv
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Number > out[j].Number
	})
	return page(out, limit, offset), err
}

func (r *InvoiceRepo) SumGrandTotal(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.sc.read(func(st *state) error {
		for _, inv := range st.invoices {
			if !inv.Date.Before(from) && inv.Date.Before(to) {
				total = total.Add(inv.GrandTotal)
			}
		}
		return nil
	})
	return total, err
}

// UserRepo implementa repository.UserRepository.
type UserRepo struct{ sc scope }

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	return r.sc.write(func(st *state) error {
		for _, other := range st.users {
			if strings.EqualFold(other.Email, u.Email) {
				return domain.ErrEmailAlreadyExists
			}
		}
		if u.ID == "" {
			u.ID = uuid.New().String()
		}
		cp := *u
		st.users[u.ID] = &cp
		return nil
	})
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.sc.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		cp := *u
		out = &cp
		return nil
	})
	return out, err
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	var out *entity.User
	err := r.sc.read(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				cp := *u
				out = &cp
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}

// DashboardRepo implementa repository.DashboardRepository.
type DashboardRepo struct{ sc scope }

func (r *DashboardRepo) GetStockValuation(_ context.Context) (repository.StockValuation, error) {
	var v repository.StockValuation
	v.StockValue = decimal.Zero
	err := r.sc.read(func(st *state) error {
		for _, inv := range st.inventory {
			v.ProductCount++
			v.TotalUnits += inv.Quantity
			if inv.IsLowStock() {
				v.LowStockCount++
			}
			if inv.Quantity == 0 {
				v.OutOfStockCount++
			}
			if p, ok := st.products[inv.ProductID]; ok {
				v.StockValue = v.StockValue.Add(p.Price.Mul(decimal.NewFromInt(int64(inv.Quantity))))
			}
		}
		return nil
	})
	return v, err
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
