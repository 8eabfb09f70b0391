package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/erp-api/internal/domain/repository"
)

var _ repository.DashboardRepository = (*DashboardRepo)(nil)

// DashboardRepo consultas agregadas de solo lectura.
type DashboardRepo struct {
	q Querier
}

// NewDashboardRepository construye el adaptador.
func NewDashboardRepository(q Querier) *DashboardRepo {
	return &DashboardRepo{q: q}
}

// GetStockValuation valoriza la existencia al precio de venta actual.
func (r *DashboardRepo) GetStockValuation(ctx context.Context) (repository.StockValuation, error) {
	var v repository.StockValuation
	err := r.q.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(i.quantity), 0),
			COALESCE(SUM(i.quantity * COALESCE(p.price, 0)), 0),
			COUNT(*) FILTER (WHERE i.quantity <= i.reorder_level),
			COUNT(*) FILTER (WHERE i.quantity = 0)
		FROM inventory i
		LEFT JOIN products p ON p.id = i.product_id`).Scan(
		&v.ProductCount, &v.TotalUnits, &v.StockValue, &v.LowStockCount, &v.OutOfStockCount,
	)
	if err != nil {
		return v, fmt.Errorf("stock valuation: %w", err)
	}
	return v, nil
}
