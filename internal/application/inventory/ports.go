package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción de BD con repositorios atados a esa tx.
// Commit si fn devuelve nil; rollback ante error, pánico o cancelación del contexto.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		invRepo repository.InventoryRepository,
		movRepo repository.InventoryMovementRepository,
	) error) error
}

// LedgerObserver recibe los eventos del ledger después del commit.
// Nunca participa en la decisión de una salida.
type LedgerObserver interface {
	MovementRecorded(ctx context.Context, m *entity.InventoryMovement)
	StockRejected(ctx context.Context, productID string, available, requested int)
	ReorderLevelChanged(ctx context.Context, inv *entity.Inventory)
}

// NopObserver implementación vacía para embeber en observadores parciales.
type NopObserver struct{}

func (NopObserver) MovementRecorded(context.Context, *entity.InventoryMovement) {}
func (NopObserver) StockRejected(context.Context, string, int, int)            {}
func (NopObserver) ReorderLevelChanged(context.Context, *entity.Inventory)     {}

// Locker exclusión mutua con TTL. Acquire devuelve domain.ErrConflict si otro proceso tiene el lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// WorkbookExporter serializa el resumen y los movimientos a una hoja de cálculo.
type WorkbookExporter interface {
	Export(summary []entity.InventorySummaryItem, movements []*entity.InventoryMovement) ([]byte, error)
}
