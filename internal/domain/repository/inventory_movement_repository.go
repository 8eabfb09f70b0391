package repository

import (
	"context"
	"time"

	"github.com/jhoicas/erp-api/internal/domain/entity"
)

// MovementTotals unidades entrantes y salientes agregadas.
type MovementTotals struct {
	In  int
	Out int
}

// InventoryMovementRepository puerto del ledger. Solo inserción y lectura.
type InventoryMovementRepository interface {
	Create(ctx context.Context, movement *entity.InventoryMovement) error
	GetByID(ctx context.Context, id string) (*entity.InventoryMovement, error)
	// ListByProduct devuelve los movimientos más recientes primero (date DESC, created_at DESC).
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.InventoryMovement, error)
	// ListRecent últimos movimientos de todos los productos.
	ListRecent(ctx context.Context, limit int) ([]*entity.InventoryMovement, error)
	// ListChronological todos los movimientos de un producto del más antiguo al más reciente.
	ListChronological(ctx context.Context, productID string) ([]*entity.InventoryMovement, error)
	// TotalsSince suma de unidades in/out desde from.
	TotalsSince(ctx context.Context, from time.Time) (MovementTotals, error)
}
