package repository

import (
	"context"

	"github.com/jhoicas/erp-api/internal/domain/entity"
)

// InventoryRepository puerto de persistencia de los registros de inventario.
// Los métodos *ForUpdate bloquean la fila hasta el fin de la transacción.
type InventoryRepository interface {
	// GetByProductID devuelve ErrNotFound si el producto no tiene registro.
	GetByProductID(ctx context.Context, productID string) (*entity.Inventory, error)
	// GetForUpdate bloquea el registro existente (SELECT ... FOR UPDATE); ErrNotFound si no existe.
	GetForUpdate(ctx context.Context, productID string) (*entity.Inventory, error)
	// GetOrCreateForUpdate crea el registro con cantidad 0 si falta y lo devuelve bloqueado.
	GetOrCreateForUpdate(ctx context.Context, productID, productName string, reorderLevel int) (*entity.Inventory, error)
	Create(ctx context.Context, inv *entity.Inventory) error
	// UpdateStock persiste quantity, product_name y last_updated del registro.
	UpdateStock(ctx context.Context, inv *entity.Inventory) error
	// UpdateReorderLevel cambia solo el umbral y devuelve el registro; ErrNotFound si no existe.
	UpdateReorderLevel(ctx context.Context, productID string, level int) (*entity.Inventory, error)
	UpdateProductName(ctx context.Context, productID, name string) error
	Delete(ctx context.Context, productID string) error
	// List devuelve todos los registros ordenados por nombre de producto.
	List(ctx context.Context) ([]*entity.Inventory, error)
}
