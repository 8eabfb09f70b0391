package analytics_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-api/internal/application/analytics"
	"github.com/jhoicas/erp-api/internal/application/billing"
	"github.com/jhoicas/erp-api/internal/application/dto"
	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/application/usecase"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/repository"
	"github.com/jhoicas/erp-api/internal/infrastructure/memory"
)

// mapCache caché en memoria que serializa como lo haría Redis.
type mapCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	hits   int
	writes int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dst)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	c.writes++
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func TestDashboard_ResumenEInvalidacion(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := memory.NewStore()
	cache := newMapCache()

	dash := analytics.NewDashboardUseCase(store.Dashboard(), store.Inventory(), store.Movements(), store.Invoices(),
		cache, time.Minute, zerolog.Nop()).WithClock(clock)
	ledger := inventory.NewService(store.TxRunner(), store.Inventory(), store.Movements(), zerolog.Nop(),
		inventory.Options{DefaultReorderLevel: 5, MovementsMaxLimit: 100}, dash.Observer()).WithClock(clock)
	invoices := billing.NewInvoiceUseCase(store.TxRunner(), ledger, store.Products(), store.Invoices(), zerolog.Nop(),
		dash.Invalidate).WithClock(clock)

	a := &entity.Product{ID: uuid.NewString(), SKU: "A", Name: "Alicate", Price: decimal.NewFromInt(10), Status: entity.ProductStatusActive}
	b := &entity.Product{ID: uuid.NewString(), SKU: "B", Name: "Brocha", Price: decimal.NewFromInt(4), Status: entity.ProductStatusActive}
	require.NoError(t, store.Products().Create(ctx, a))
	require.NoError(t, store.Products().Create(ctx, b))
	_, err := ledger.StockIn(ctx, inventory.MovementInput{ProductID: a.ID, ProductName: a.Name, Amount: 20})
	require.NoError(t, err)
	_, err = ledger.StockIn(ctx, inventory.MovementInput{ProductID: b.ID, ProductName: b.Name, Amount: 3})
	require.NoError(t, err)

	s, err := dash.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.ProductCount)
	assert.Equal(t, 23, s.TotalUnits)
	assert.True(t, s.StockValue.Equal(decimal.NewFromInt(212)), s.StockValue.String())
	assert.Equal(t, 1, s.LowStockCount)
	assert.Equal(t, 23, s.TodayUnitsIn)
	require.Len(t, s.LowStockItems, 1)
	assert.Equal(t, b.ID, s.LowStockItems[0].ProductID)

	_, err = dash.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	_, err = invoices.Create(ctx, "", dto.InvoiceRequest{Items: []dto.InvoiceItemRequest{{ProductID: a.ID, Quantity: 5}}})
	require.NoError(t, err)

	s, err = dash.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 18, s.TotalUnits)
	assert.Equal(t, 5, s.TodayUnitsOut)
	assert.True(t, s.TodaySales.Equal(decimal.NewFromInt(50)), s.TodaySales.String())
	assert.True(t, s.MonthlySales.Equal(decimal.NewFromInt(50)), s.MonthlySales.String())
	assert.Equal(t, 2, cache.writes)
}

func TestDashboard_SinCache(t *testing.T) {
	store := memory.NewStore()
	dash := analytics.NewDashboardUseCase(store.Dashboard(), store.Inventory(), store.Movements(), store.Invoices(),
		nil, time.Minute, zerolog.Nop())

	s, err := dash.GetSummary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.ProductCount)
	assert.Empty(t, s.LowStockItems)
	dash.Invalidate(context.Background())
}

// valuationHook ejecuta during una vez, en medio del cálculo del resumen.
type valuationHook struct {
	repository.DashboardRepository
	once   sync.Once
	during func()
}

func (h *valuationHook) GetStockValuation(ctx context.Context) (repository.StockValuation, error) {
	h.once.Do(h.during)
	return h.DashboardRepository.GetStockValuation(ctx)
}

func TestDashboard_InvalidacionDuranteElCalculoNoSeCachea(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cache := newMapCache()

	var dash *analytics.DashboardUseCase
	hook := &valuationHook{DashboardRepository: store.Dashboard(), during: func() { dash.Invalidate(ctx) }}
	dash = analytics.NewDashboardUseCase(hook, store.Inventory(), store.Movements(), store.Invoices(),
		cache, time.Minute, zerolog.Nop())

	_, err := dash.GetSummary(ctx)
	require.NoError(t, err)
	assert.Zero(t, cache.writes)

	_, err = dash.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.writes)
}

func TestDashboard_LlamadorCanceladoNoAfectaElCalculo(t *testing.T) {
	store := memory.NewStore()
	dash := analytics.NewDashboardUseCase(store.Dashboard(), store.Inventory(), store.Movements(), store.Invoices(),
		newMapCache(), time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, err := dash.GetSummary(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.ProductCount)
}

func TestDashboard_CatalogoInvalidaElResumen(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	dash := analytics.NewDashboardUseCase(store.Dashboard(), store.Inventory(), store.Movements(), store.Invoices(),
		newMapCache(), time.Minute, zerolog.Nop())
	products := usecase.NewProductUseCase(store.TxRunner(), store.Products(), 5, zerolog.Nop(), dash.Invalidate)

	_, err := products.Create(ctx, dto.CreateProductRequest{SKU: "A", Name: "Alicate"})
	require.NoError(t, err)
	s, err := dash.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.ProductCount)

	p, err := products.Create(ctx, dto.CreateProductRequest{SKU: "B", Name: "Brocha"})
	require.NoError(t, err)
	s, err = dash.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.ProductCount)

	require.NoError(t, products.Delete(ctx, p.ID))
	s, err = dash.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.ProductCount)
}
