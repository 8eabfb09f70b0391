package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
type CreateProductRequest struct {
	SKU          string          `json:"sku" validate:"required,min=1,max=100"`
	Name         string          `json:"name" validate:"required,min=1,max=200"`
	Description  string          `json:"description" validate:"max=2000"`
	Price        decimal.Decimal `json:"price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	UnitMeasure  string          `json:"unit_measure" validate:"omitempty,max=20"`
	ReorderLevel *int            `json:"reorder_level" validate:"omitempty,min=0"`
}

// UpdateProductRequest entrada para actualizar un producto (la existencia no se toca aquí).
type UpdateProductRequest struct {
	SKU         *string          `json:"sku" validate:"omitempty,min=1,max=100"`
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price"`
	TaxRate     *decimal.Decimal `json:"tax_rate"`
	UnitMeasure *string          `json:"unit_measure" validate:"omitempty,max=20"`
	Status      *string          `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	UnitMeasure string          `json:"unit_measure"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
