package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceRequest body para POST /api/invoices y PUT /api/invoices/:id.
type InvoiceRequest struct {
	CustomerName string               `json:"customer_name" validate:"max=200"`
	Prefix       string               `json:"prefix" validate:"omitempty,alphanum,max=10"`
	Number       string               `json:"number,omitempty" validate:"max=40"` // opcional; vacío = se genera
	Notes        string               `json:"notes" validate:"max=1000"`
	Items        []InvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

// InvoiceItemRequest línea de factura. UnitPrice cero o ausente toma el precio del producto.
type InvoiceItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// InvoiceResponse factura con sus líneas.
type InvoiceResponse struct {
	ID           string                `json:"id"`
	Prefix       string                `json:"prefix"`
	Number       string                `json:"number"`
	CustomerName string                `json:"customer_name,omitempty"`
	Date         time.Time             `json:"date"`
	NetTotal     decimal.Decimal       `json:"net_total"`
	TaxTotal     decimal.Decimal       `json:"tax_total"`
	GrandTotal   decimal.Decimal       `json:"grand_total"`
	Status       string                `json:"status"`
	Notes        string                `json:"notes,omitempty"`
	Items        []InvoiceItemResponse `json:"items"`
}

// InvoiceItemResponse línea en la respuesta.
type InvoiceItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// InvoiceListResponse lista paginada.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
