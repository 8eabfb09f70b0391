package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de producto.
const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

// Product representa un producto del catálogo. La existencia vive en Inventory.
type Product struct {
	ID          string
	SKU         string // código único
	Name        string
	Description string
	Price       decimal.Decimal // precio de venta
	TaxRate     decimal.Decimal // IVA: 0, 0.05, 0.19
	UnitMeasure string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
