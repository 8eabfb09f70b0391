package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/infrastructure/memory"
)

type recorder struct {
	inventory.NopObserver
	mu        sync.Mutex
	recorded  []*entity.InventoryMovement
	rejected  int
	reordered int
}

func (r *recorder) MovementRecorded(_ context.Context, m *entity.InventoryMovement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, m)
}

func (r *recorder) StockRejected(context.Context, string, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
}

func (r *recorder) ReorderLevelChanged(context.Context, *entity.Inventory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reordered++
}

func newLedger(t *testing.T) (*inventory.Service, *memory.Store, *recorder) {
	t.Helper()
	store := memory.NewStore()
	rec := &recorder{}
	svc := inventory.NewService(
		store.TxRunner(),
		store.Inventory(),
		store.Movements(),
		zerolog.Nop(),
		inventory.Options{DefaultReorderLevel: entity.DefaultReorderLevel, MovementsMaxLimit: 100},
		rec,
	)
	return svc, store, rec
}

func movementsOf(t *testing.T, svc *inventory.Service, productID string) []*entity.InventoryMovement {
	t.Helper()
	movs, err := svc.GetProductMovements(context.Background(), productID, 100, 0)
	require.NoError(t, err)
	return movs
}

// Escenarios 1 a 5 encadenados sobre el mismo producto.
func TestLedger_Escenarios(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)
	p := uuid.New().String()

	// 1. entrada inicial crea el registro
	res, err := svc.StockIn(ctx, inventory.MovementInput{ProductID: p, ProductName: "Widget", Amount: 10, Reason: "Initial stock"})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Inventory.Quantity)
	assert.Equal(t, entity.DefaultReorderLevel, res.Inventory.ReorderLevel)
	assert.Equal(t, entity.MovementTypeIn, res.Movement.Type)
	assert.Equal(t, 10, res.Movement.Amount)
	assert.Equal(t, 0, res.Movement.PreviousQuantity)
	assert.Equal(t, 10, res.Movement.NewQuantity)

	// 2. sobreventa rechazada sin efectos
	_, err = svc.StockOut(ctx, inventory.MovementInput{ProductID: p, ProductName: "Widget", Amount: 15, Reason: "Oversell attempt"})
	var ise *domain.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 10, ise.Available)
	assert.Equal(t, 15, ise.Requested)
	qty, err := svc.GetCurrentStock(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)
	assert.Len(t, movementsOf(t, svc, p), 1)

	// 3. salida válida
	res, err = svc.StockOut(ctx, inventory.MovementInput{ProductID: p, ProductName: "Widget", Amount: 4, Reference: "Invoice #INV-001"})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Inventory.Quantity)
	assert.Equal(t, entity.MovementTypeOut, res.Movement.Type)
	assert.Equal(t, 10, res.Movement.PreviousQuantity)
	assert.Equal(t, 6, res.Movement.NewQuantity)
	assert.Equal(t, "Invoice #INV-001", res.Movement.Reference)
	assert.Equal(t, entity.DefaultReasonOut, res.Movement.Reason)

	// 4. disminución por actualización de factura
	res, err = svc.StockIn(ctx, inventory.MovementInput{ProductID: p, Amount: 2, Reason: "Invoice Update - Quantity Decrease"})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Inventory.Quantity)
	assert.Equal(t, "Widget", res.Inventory.ProductName)

	// 5. cambio de umbral sin asiento
	before := len(movementsOf(t, svc, p))
	inv, err := svc.UpdateReorderLevel(ctx, p, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, inv.ReorderLevel)
	assert.Equal(t, 8, inv.Quantity)
	assert.Len(t, movementsOf(t, svc, p), before)
}

func TestStockOut_SinRegistroEsNotFound(t *testing.T) {
	svc, _, _ := newLedger(t)
	p := uuid.New().String()

	_, err := svc.StockOut(context.Background(), inventory.MovementInput{ProductID: p, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetInventory(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrNotFound, "la salida no crea el registro")
}

func TestValidaciones(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)
	p := uuid.New().String()

	_, err := svc.StockIn(ctx, inventory.MovementInput{ProductID: p, Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.StockOut(ctx, inventory.MovementInput{ProductID: p, Amount: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.StockIn(ctx, inventory.MovementInput{ProductID: "no-uuid", Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.HasSufficientStock(ctx, p, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.UpdateReorderLevel(ctx, p, -2)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.GetInventory(ctx, p)
	assert.ErrorIs(t, err, domain.ErrNotFound, "una entrada inválida no crea el registro")
}

func TestGetCurrentStock_SinRegistro(t *testing.T) {
	svc, _, _ := newLedger(t)
	p := uuid.New().String()

	qty, err := svc.GetCurrentStock(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)

	ok, err := svc.HasSufficientStock(context.Background(), p, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.HasSufficientStock(context.Background(), p, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateReorderLevel_SinRegistro(t *testing.T) {
	svc, _, rec := newLedger(t)
	_, err := svc.UpdateReorderLevel(context.Background(), uuid.New().String(), 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, rec.reordered)
}

func TestGetOrCreateInventory_Idempotente(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)
	p := uuid.New().String()

	first, err := svc.GetOrCreateInventory(ctx, p, "Tuerca")
	require.NoError(t, err)
	second, err := svc.GetOrCreateInventory(ctx, p, "Otro nombre")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Tuerca", second.ProductName)
	assert.Equal(t, 0, second.Quantity)

	summary, err := svc.GetInventorySummary(ctx)
	require.NoError(t, err)
	assert.Len(t, summary, 1)
}

// La cantidad tras cada llamada es Σin - Σout y coincide con newQuantity del último asiento.
func TestLedger_SecuenciaEncadenada(t *testing.T) {
	ctx := context.Background()
	svc, _, rec := newLedger(t)
	p := uuid.New().String()

	ops := []struct {
		in     bool
		amount int
	}{{true, 5}, {false, 3}, {false, 9}, {true, 7}, {false, 9}, {false, 1}, {true, 2}, {false, 3}}

	expected, rejections := 0, 0
	for _, op := range ops {
		in := inventory.MovementInput{ProductID: p, ProductName: "Arandela", Amount: op.amount}
		var err error
		if op.in {
			_, err = svc.StockIn(ctx, in)
			expected += op.amount
		} else {
			_, err = svc.StockOut(ctx, in)
			if expected >= op.amount {
				expected -= op.amount
			} else {
				require.ErrorIs(t, err, domain.ErrInsufficientStock)
				rejections++
				continue
			}
		}
		require.NoError(t, err)

		qty, err := svc.GetCurrentStock(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, expected, qty)
		assert.GreaterOrEqual(t, qty, 0)

		latest := movementsOf(t, svc, p)[0]
		assert.Equal(t, qty, latest.NewQuantity)
	}

	// cadena previous/new continua en orden cronológico
	movs := movementsOf(t, svc, p)
	for i := 0; i < len(movs)-1; i++ {
		assert.Equal(t, movs[i+1].NewQuantity, movs[i].PreviousQuantity)
	}
	assert.Len(t, rec.recorded, len(movs))
	assert.Equal(t, rejections, rec.rejected)
}

// Dos salidas concurrentes válidas por separado pero que juntas exceden la existencia:
// exactamente una gana.
func TestStockOut_ConcurrenteUnaSolaGana(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		svc, _, _ := newLedger(t)
		p := uuid.New().String()
		_, err := svc.StockIn(ctx, inventory.MovementInput{ProductID: p, ProductName: "Perno", Amount: 10})
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				_, errs[j] = svc.StockOut(ctx, inventory.MovementInput{ProductID: p, Amount: 7})
			}(j)
		}
		wg.Wait()

		var ok, insufficient int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficient++
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, insufficient)

		qty, err := svc.GetCurrentStock(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, 3, qty)
	}
}

// Si el asiento no se puede insertar, la existencia tampoco cambia.
func TestStockIn_RollbackSiFallaElAsiento(t *testing.T) {
	ctx := context.Background()
	svc, store, rec := newLedger(t)
	p := uuid.New().String()
	_, err := svc.StockIn(ctx, inventory.MovementInput{ProductID: p, ProductName: "Clavo", Amount: 4})
	require.NoError(t, err)

	boom := errors.New("disco lleno")
	store.FailOn("movements.create", boom)
	_, err = svc.StockIn(ctx, inventory.MovementInput{ProductID: p, Amount: 6})
	require.ErrorIs(t, err, boom)
	store.FailOn("movements.create", nil)

	qty, err := svc.GetCurrentStock(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 4, qty)
	assert.Len(t, movementsOf(t, svc, p), 1)
	assert.Len(t, rec.recorded, 1)
}

func TestSummaryYLowStock(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)
	a, b, c := uuid.New().String(), uuid.New().String(), uuid.New().String()

	_, err := svc.StockIn(ctx, inventory.MovementInput{ProductID: a, ProductName: "Zapato", Amount: 50})
	require.NoError(t, err)
	_, err = svc.StockIn(ctx, inventory.MovementInput{ProductID: b, ProductName: "Alicate", Amount: 5})
	require.NoError(t, err)
	_, err = svc.GetOrCreateInventory(ctx, c, "Martillo")
	require.NoError(t, err)

	summary, err := svc.GetInventorySummary(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"Alicate", "Martillo", "Zapato"}, []string{summary[0].ProductName, summary[1].ProductName, summary[2].ProductName})
	assert.True(t, summary[0].IsLowStock, "5 <= 5 es stock bajo")
	assert.True(t, summary[1].IsLowStock)
	assert.False(t, summary[2].IsLowStock)

	low, err := svc.GetLowStock(ctx)
	require.NoError(t, err)
	assert.Len(t, low, 2)
}

func TestGetProductMovements_OrdenYLimite(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLedger(t)
	p := uuid.New().String()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	svc.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})
	for i := 1; i <= 5; i++ {
		_, err := svc.StockIn(ctx, inventory.MovementInput{ProductID: p, ProductName: "Cable", Amount: i})
		require.NoError(t, err)
	}

	movs, err := svc.GetProductMovements(ctx, p, 2, 0)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, 5, movs[0].Amount)
	assert.Equal(t, 4, movs[1].Amount)

	movs, err = svc.GetProductMovements(ctx, p, 2, 4)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, 1, movs[0].Amount)
}
