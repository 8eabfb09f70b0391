package billing

import (
	"context"

	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

// BillingTxRunner ejecuta una función dentro de una transacción que incluye facturas e inventario.
// La factura y todos sus movimientos de stock se confirman o se descartan juntos.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		invRepo repository.InventoryRepository,
		movRepo repository.InventoryMovementRepository,
	) error) error
}

// InvoicePDFGenerator genera la representación gráfica de una factura.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, invoice *entity.Invoice, items []*entity.InvoiceItem) ([]byte, error)
}

// ChangeListener se invoca tras confirmar un alta, edición o borrado de factura.
type ChangeListener func(ctx context.Context)
