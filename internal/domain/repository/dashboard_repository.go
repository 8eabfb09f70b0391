package repository

import (
	"context"

	"github.com/shopspring/decimal"
)

// StockValuation agregados del inventario valorizado a precio de venta.
type StockValuation struct {
	ProductCount    int
	TotalUnits      int
	StockValue      decimal.Decimal
	LowStockCount   int
	OutOfStockCount int
}

// DashboardRepository consultas de solo lectura para el tablero.
type DashboardRepository interface {
	GetStockValuation(ctx context.Context) (StockValuation, error)
}
