package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de factura.
const (
	InvoiceStatusIssued = "issued"
	InvoiceStatusPaid   = "paid"
)

// Invoice cabecera de una factura de venta.
type Invoice struct {
	ID           string
	Prefix       string
	Number       string
	CustomerName string
	Date         time.Time
	NetTotal     decimal.Decimal
	TaxTotal     decimal.Decimal
	GrandTotal   decimal.Decimal
	Status       string
	Notes        string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Reference texto usado como referencia en los movimientos del ledger.
func (i *Invoice) Reference() string {
	return "Invoice #" + i.Number
}

// InvoiceItem línea de factura; Quantity es la cantidad reconciliada contra el ledger.
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
}
