package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

var _ repository.InventoryRepository = (*InventoryRepo)(nil)

const inventoryColumns = `id, product_id, product_name, quantity, reorder_level, last_updated`

// InventoryRepo registros de inventario sobre PostgreSQL (usable con pool o tx).
type InventoryRepo struct {
	q Querier
}

// NewInventoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRepository(q Querier) *InventoryRepo {
	return &InventoryRepo{q: q}
}

func scanInventory(row pgx.Row) (*entity.Inventory, error) {
	var inv entity.Inventory
	err := row.Scan(&inv.ID, &inv.ProductID, &inv.ProductName, &inv.Quantity, &inv.ReorderLevel, &inv.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// GetByProductID lectura sin bloqueo.
func (r *InventoryRepo) GetByProductID(ctx context.Context, productID string) (*entity.Inventory, error) {
	inv, err := scanInventory(r.q.QueryRow(ctx,
		`SELECT `+inventoryColumns+` FROM inventory WHERE product_id = $1`, productID))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return inv, err
}

// GetForUpdate bloquea la fila hasta el fin de la transacción.
func (r *InventoryRepo) GetForUpdate(ctx context.Context, productID string) (*entity.Inventory, error) {
	inv, err := scanInventory(r.q.QueryRow(ctx,
		`SELECT `+inventoryColumns+` FROM inventory WHERE product_id = $1 FOR UPDATE`, productID))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get inventory for update: %w", err)
	}
	return inv, err
}

// GetOrCreateForUpdate inserta el registro si falta (ON CONFLICT DO NOTHING resuelve la carrera
// entre dos primeras entradas) y luego lo bloquea.
func (r *InventoryRepo) GetOrCreateForUpdate(ctx context.Context, productID, productName string, reorderLevel int) (*entity.Inventory, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory (id, product_id, product_name, quantity, reorder_level, last_updated)
		VALUES ($1, $2, $3, 0, $4, $5)
		ON CONFLICT (product_id) DO NOTHING`,
		uuid.New().String(), productID, productName, reorderLevel, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("ensure inventory: %w", err)
	}
	return r.GetForUpdate(ctx, productID)
}

// Create inserta un registro nuevo (alta de producto).
func (r *InventoryRepo) Create(ctx context.Context, inv *entity.Inventory) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.LastUpdated.IsZero() {
		inv.LastUpdated = time.Now().UTC()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory (id, product_id, product_name, quantity, reorder_level, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		inv.ID, inv.ProductID, inv.ProductName, inv.Quantity, inv.ReorderLevel, inv.LastUpdated,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

// UpdateStock persiste la cantidad calculada por el ledger.
func (r *InventoryRepo) UpdateStock(ctx context.Context, inv *entity.Inventory) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE inventory SET quantity = $2, product_name = $3, last_updated = $4
		WHERE product_id = $1`,
		inv.ProductID, inv.Quantity, inv.ProductName, inv.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("update inventory stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateReorderLevel sentencia única; no toca quantity.
func (r *InventoryRepo) UpdateReorderLevel(ctx context.Context, productID string, level int) (*entity.Inventory, error) {
	inv, err := scanInventory(r.q.QueryRow(ctx, `
		UPDATE inventory SET reorder_level = $2
		WHERE product_id = $1
		RETURNING `+inventoryColumns, productID, level))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("update reorder level: %w", err)
	}
	return inv, err
}

// UpdateProductName sincroniza el nombre desnormalizado.
func (r *InventoryRepo) UpdateProductName(ctx context.Context, productID, name string) error {
	_, err := r.q.Exec(ctx, `UPDATE inventory SET product_name = $2 WHERE product_id = $1`, productID, name)
	if err != nil {
		return fmt.Errorf("update inventory name: %w", err)
	}
	return nil
}

// Delete elimina el registro solo si la existencia es 0.
func (r *InventoryRepo) Delete(ctx context.Context, productID string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM inventory WHERE product_id = $1 AND quantity = 0`, productID)
	if err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM inventory WHERE product_id = $1)`, productID).Scan(&exists); err != nil {
			return fmt.Errorf("delete inventory: %w", err)
		}
		if exists {
			return domain.ErrConflict
		}
	}
	return nil
}

// List todos los registros por nombre de producto.
func (r *InventoryRepo) List(ctx context.Context) ([]*entity.Inventory, error) {
	rows, err := r.q.Query(ctx, `SELECT `+inventoryColumns+` FROM inventory ORDER BY product_name, product_id`)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var list []*entity.Inventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}
