// Package analytics contiene el tablero de inventario y facturación.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/erp-api/internal/application/dto"
	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

const (
	dashboardLowStockItems = 5 // filas de stock bajo en el widget
	summaryCacheKey        = "dashboard:summary"
	computeTimeout         = 30 * time.Second
)

// Cache almacén clave/valor con TTL. Un error de caché nunca falla la consulta.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// DashboardUseCase genera el resumen del tablero. El resultado se cachea; las cantidades
// que usa el ledger nunca salen de aquí.
type DashboardUseCase struct {
	dashRepo    repository.DashboardRepository
	invRepo     repository.InventoryRepository
	movRepo     repository.InventoryMovementRepository
	invoiceRepo repository.InvoiceRepository
	cache       Cache
	ttl         time.Duration
	group       singleflight.Group
	generation  atomic.Uint64 // sube con cada Invalidate
	log         zerolog.Logger
	now         func() time.Time
}

// NewDashboardUseCase construye el caso de uso. cache nil desactiva el cacheo.
func NewDashboardUseCase(
	dashRepo repository.DashboardRepository,
	invRepo repository.InventoryRepository,
	movRepo repository.InventoryMovementRepository,
	invoiceRepo repository.InvoiceRepository,
	cache Cache,
	ttl time.Duration,
	log zerolog.Logger,
) *DashboardUseCase {
	return &DashboardUseCase{
		dashRepo:    dashRepo,
		invRepo:     invRepo,
		movRepo:     movRepo,
		invoiceRepo: invoiceRepo,
		cache:       cache,
		ttl:         ttl,
		log:         log.With().Str("component", "dashboard").Logger(),
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *DashboardUseCase) WithClock(now func() time.Time) *DashboardUseCase {
	uc.now = now
	return uc
}

// GetSummary devuelve el resumen cacheado o lo calcula. Fallos concurrentes de caché
// comparten un único cálculo, que no depende de la cancelación del primer llamador.
func (uc *DashboardUseCase) GetSummary(ctx context.Context) (*dto.DashboardSummaryDTO, error) {
	if uc.cache != nil {
		var cached dto.DashboardSummaryDTO
		ok, err := uc.cache.Get(ctx, summaryCacheKey, &cached)
		if err != nil {
			uc.log.Warn().Err(err).Msg("caché del tablero no disponible")
		}
		if ok {
			return &cached, nil
		}
	}

	v, err, _ := uc.group.Do(summaryCacheKey, func() (any, error) {
		gen := uc.generation.Load()
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()

		summary, err := uc.compute(cctx)
		if err != nil {
			return nil, err
		}
		// Un Invalidate durante el cálculo deja este resultado fuera de la caché.
		if uc.cache != nil && uc.generation.Load() == gen {
			if err := uc.cache.Set(cctx, summaryCacheKey, summary, uc.ttl); err != nil {
				uc.log.Warn().Err(err).Msg("no se pudo guardar el tablero en caché")
			}
		}
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dto.DashboardSummaryDTO), nil
}

// Invalidate descarta el resumen cacheado y el cálculo en curso.
func (uc *DashboardUseCase) Invalidate(ctx context.Context) {
	uc.generation.Add(1)
	uc.group.Forget(summaryCacheKey)
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, summaryCacheKey); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo invalidar el tablero")
	}
}

// Observer adapta Invalidate a los eventos del ledger.
func (uc *DashboardUseCase) Observer() inventory.LedgerObserver {
	return cacheInvalidator{uc: uc}
}

type cacheInvalidator struct {
	inventory.NopObserver
	uc *DashboardUseCase
}

func (c cacheInvalidator) MovementRecorded(ctx context.Context, _ *entity.InventoryMovement) {
	c.uc.Invalidate(ctx)
}

func (c cacheInvalidator) ReorderLevelChanged(ctx context.Context, _ *entity.Inventory) {
	c.uc.Invalidate(ctx)
}

// compute lanza las consultas en paralelo; la primera que falle cancela el resto.
func (uc *DashboardUseCase) compute(ctx context.Context) (*dto.DashboardSummaryDTO, error) {
	now := uc.now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := todayStart.AddDate(0, 0, 1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var (
		valuation  repository.StockValuation
		totals     repository.MovementTotals
		todaySales decimal.Decimal
		monthSales decimal.Decimal
		records    []*entity.Inventory
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		valuation, err = uc.dashRepo.GetStockValuation(gctx)
		if err != nil {
			return fmt.Errorf("dashboard: valoración: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		totals, err = uc.movRepo.TotalsSince(gctx, todayStart)
		if err != nil {
			return fmt.Errorf("dashboard: movimientos de hoy: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		todaySales, err = uc.invoiceRepo.SumGrandTotal(gctx, todayStart, tomorrow)
		if err != nil {
			return fmt.Errorf("dashboard: ventas de hoy: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		monthSales, err = uc.invoiceRepo.SumGrandTotal(gctx, monthStart, tomorrow)
		if err != nil {
			return fmt.Errorf("dashboard: ventas del mes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = uc.invRepo.List(gctx)
		if err != nil {
			return fmt.Errorf("dashboard: inventario: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &dto.DashboardSummaryDTO{
		ProductCount:    valuation.ProductCount,
		TotalUnits:      valuation.TotalUnits,
		StockValue:      valuation.StockValue.Round(2),
		LowStockCount:   valuation.LowStockCount,
		OutOfStockCount: valuation.OutOfStockCount,
		TodayUnitsIn:    totals.In,
		TodayUnitsOut:   totals.Out,
		TodaySales:      todaySales.Round(2),
		MonthlySales:    monthSales.Round(2),
		LowStockItems:   lowestStock(records, dashboardLowStockItems),
		GeneratedAt:     now,
	}, nil
}

// lowestStock registros en stock bajo, menor existencia primero.
func lowestStock(records []*entity.Inventory, n int) []dto.InventoryResponse {
	low := make([]*entity.Inventory, 0)
	for _, r := range records {
		if r.IsLowStock() {
			low = append(low, r)
		}
	}
	sort.SliceStable(low, func(i, j int) bool { return low[i].Quantity < low[j].Quantity })
	if len(low) > n {
		low = low[:n]
	}
	out := make([]dto.InventoryResponse, 0, len(low))
	for _, r := range low {
		out = append(out, dto.InventoryResponse{
			ProductID:    r.ProductID,
			ProductName:  r.ProductName,
			Quantity:     r.Quantity,
			ReorderLevel: r.ReorderLevel,
			IsLowStock:   true,
			LastUpdated:  r.LastUpdated,
		})
	}
	return out
}
