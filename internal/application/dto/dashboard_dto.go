package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
type DashboardSummaryDTO struct {
	// Valoración de la existencia actual
	ProductCount    int             `json:"product_count"`
	TotalUnits      int             `json:"total_units"`
	StockValue      decimal.Decimal `json:"stock_value"` // Σ cantidad × precio
	LowStockCount   int             `json:"low_stock_count"`
	OutOfStockCount int             `json:"out_of_stock_count"`

	// Ledger del día (00:00 UTC – ahora)
	TodayUnitsIn  int `json:"today_units_in"`
	TodayUnitsOut int `json:"today_units_out"`

	// Facturación
	TodaySales   decimal.Decimal `json:"today_sales"`
	MonthlySales decimal.Decimal `json:"monthly_sales"`

	// Top 5 productos con stock bajo (menor existencia primero)
	LowStockItems []InventoryResponse `json:"low_stock_items"`

	GeneratedAt time.Time `json:"generated_at"`
}
