package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/erp-api/internal/application/dto"
	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/domain"
	domainbilling "github.com/jhoicas/erp-api/internal/domain/billing"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	domaininv "github.com/jhoicas/erp-api/internal/domain/inventory"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

// Motivos registrados en el ledger por la facturación.
const (
	ReasonInvoiceSale      = "Invoice Sale"
	ReasonQuantityIncrease = "Invoice Update - Quantity Increase"
	ReasonQuantityDecrease = "Invoice Update - Quantity Decrease"
	ReasonInvoiceDeleted   = "Invoice Deleted - Stock Restored"
)

// InvoiceUseCase mantiene el inventario reconciliado con las facturas: alta, edición y borrado
// ocurren en una sola transacción junto con sus movimientos de stock.
type InvoiceUseCase struct {
	txRunner    BillingTxRunner
	ledger      *inventory.Service
	productRepo repository.ProductRepository
	invoiceRepo repository.InvoiceRepository
	listeners   []ChangeListener
	log         zerolog.Logger
	now         func() time.Time
}

// NewInvoiceUseCase construye el caso de uso. invoiceRepo se usa solo para lecturas fuera de transacción.
func NewInvoiceUseCase(
	txRunner BillingTxRunner,
	ledger *inventory.Service,
	productRepo repository.ProductRepository,
	invoiceRepo repository.InvoiceRepository,
	log zerolog.Logger,
	listeners ...ChangeListener,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		txRunner:    txRunner,
		ledger:      ledger,
		productRepo: productRepo,
		invoiceRepo: invoiceRepo,
		listeners:   listeners,
		log:         log.With().Str("component", "billing").Logger(),
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *InvoiceUseCase) WithClock(now func() time.Time) *InvoiceUseCase {
	uc.now = now
	return uc
}

// Create crea la factura y descuenta cada línea del inventario. Antes de escribir nada se verifica,
// con las filas bloqueadas, que todos los productos tienen stock suficiente; si uno falla no se
// registra ningún movimiento.
func (uc *InvoiceUseCase) Create(ctx context.Context, userID string, in dto.InvoiceRequest) (*dto.InvoiceResponse, error) {
	invoiceID := uuid.NewString()
	items, totals, inactive, err := uc.buildItems(ctx, invoiceID, in.Items)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if sku, ok := inactive[it.ProductID]; ok {
			return nil, domain.InvalidInputf("el producto %s está inactivo", sku)
		}
	}

	now := uc.now().UTC()
	number := strings.TrimSpace(in.Number)
	if number == "" {
		number = domainbilling.FormatNumber(in.Prefix, strings.ToUpper(strings.ReplaceAll(invoiceID, "-", "")[:8]))
	}
	prefix := in.Prefix
	if prefix == "" {
		prefix = "INV"
	}
	inv := &entity.Invoice{
		ID:           invoiceID,
		Prefix:       prefix,
		Number:       number,
		CustomerName: in.CustomerName,
		Date:         now,
		NetTotal:     totals.Net,
		TaxTotal:     totals.Tax,
		GrandTotal:   totals.Grand,
		Status:       entity.InvoiceStatusIssued,
		Notes:        in.Notes,
		CreatedBy:    userID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var movs []*entity.InventoryMovement
	err = uc.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		invRepo repository.InventoryRepository,
		movRepo repository.InventoryMovementRepository,
	) error {
		// ── 1. Pre-verificación de todas las líneas ──────────────────────────
		required := domaininv.RequiredByProduct(toLines(items))
		for _, productID := range domaininv.SortedKeys(required) {
			if err := uc.ledger.HasSufficientStockTx(ctx, invRepo, productID, required[productID]); err != nil {
				return err
			}
		}

		// ── 2. Cabecera y líneas ─────────────────────────────────────────────
		if err := invoiceRepo.Create(ctx, inv); err != nil {
			return err
		}
		for _, it := range items {
			if err := invoiceRepo.CreateItem(ctx, it); err != nil {
				return err
			}
		}

		// ── 3. Una salida por línea ──────────────────────────────────────────
		for _, it := range items {
			res, err := uc.ledger.StockOutTx(ctx, invRepo, movRepo, inventory.MovementInput{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Amount:      it.Quantity,
				Reason:      ReasonInvoiceSale,
				Reference:   inv.Reference(),
				UserID:      userID,
			})
			if err != nil {
				return err
			}
			movs = append(movs, res.Movement)
		}
		return nil
	})
	if err != nil {
		uc.ledger.ReportRejection(ctx, err)
		return nil, err
	}

	uc.committed(ctx, movs)
	uc.log.Info().Str("invoice_id", inv.ID).Str("number", inv.Number).Int("lines", len(items)).Msg("factura creada")
	return toInvoiceResponse(inv, items), nil
}

// Update reemplaza las líneas de la factura y aplica al inventario solo la diferencia por producto:
// un aumento es una salida (pre-verificada), una disminución o un producto retirado es una entrada.
func (uc *InvoiceUseCase) Update(ctx context.Context, userID, invoiceID string, in dto.InvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := domain.ValidateID("id", invoiceID); err != nil {
		return nil, err
	}
	items, totals, inactive, err := uc.buildItems(ctx, invoiceID, in.Items)
	if err != nil {
		return nil, err
	}

	var (
		inv  *entity.Invoice
		movs []*entity.InventoryMovement
	)
	err = uc.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		invRepo repository.InventoryRepository,
		movRepo repository.InventoryMovementRepository,
	) error {
		var err error
		inv, err = invoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		previous, err := invoiceRepo.GetItems(ctx, invoiceID)
		if err != nil {
			return err
		}

		diff := domaininv.QuantityDiff(toLines(previous), toLines(items))
		keys := domaininv.SortedKeys(diff)
		for _, productID := range keys {
			if diff[productID] > 0 {
				// Un producto inactivo solo puede mantener o reducir su cantidad.
				if sku, ok := inactive[productID]; ok {
					return domain.InvalidInputf("el producto %s está inactivo", sku)
				}
				if err := uc.ledger.HasSufficientStockTx(ctx, invRepo, productID, diff[productID]); err != nil {
					return err
				}
			}
		}

		if err := invoiceRepo.DeleteItems(ctx, invoiceID); err != nil {
			return err
		}
		for _, it := range items {
			if err := invoiceRepo.CreateItem(ctx, it); err != nil {
				return err
			}
		}
		inv.CustomerName = in.CustomerName
		inv.Notes = in.Notes
		inv.NetTotal = totals.Net
		inv.TaxTotal = totals.Tax
		inv.GrandTotal = totals.Grand
		inv.UpdatedAt = uc.now().UTC()
		if err := invoiceRepo.Update(ctx, inv); err != nil {
			return err
		}

		names := productNames(previous, items)
		for _, productID := range keys {
			delta := diff[productID]
			mi := inventory.MovementInput{
				ProductID:   productID,
				ProductName: names[productID],
				Reference:   inv.Reference(),
				UserID:      userID,
			}
			var res *inventory.MovementResult
			if delta > 0 {
				mi.Amount = delta
				mi.Reason = ReasonQuantityIncrease
				res, err = uc.ledger.StockOutTx(ctx, invRepo, movRepo, mi)
			} else {
				mi.Amount = -delta
				mi.Reason = ReasonQuantityDecrease
				res, err = uc.ledger.StockInTx(ctx, invRepo, movRepo, mi)
			}
			if err != nil {
				return err
			}
			movs = append(movs, res.Movement)
		}
		return nil
	})
	if err != nil {
		uc.ledger.ReportRejection(ctx, err)
		return nil, err
	}

	uc.committed(ctx, movs)
	uc.log.Info().Str("invoice_id", inv.ID).Int("adjustments", len(movs)).Msg("factura actualizada")
	return toInvoiceResponse(inv, items), nil
}

// Delete elimina la factura y devuelve al inventario la cantidad de cada línea.
func (uc *InvoiceUseCase) Delete(ctx context.Context, userID, invoiceID string) error {
	if err := domain.ValidateID("id", invoiceID); err != nil {
		return err
	}
	var movs []*entity.InventoryMovement
	err := uc.txRunner.RunBilling(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		invRepo repository.InventoryRepository,
		movRepo repository.InventoryMovementRepository,
	) error {
		inv, err := invoiceRepo.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		items, err := invoiceRepo.GetItems(ctx, invoiceID)
		if err != nil {
			return err
		}
		// Orden fijo de bloqueo por producto.
		sort.SliceStable(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
		for _, it := range items {
			res, err := uc.ledger.StockInTx(ctx, invRepo, movRepo, inventory.MovementInput{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Amount:      it.Quantity,
				Reason:      ReasonInvoiceDeleted,
				Reference:   inv.Reference(),
				UserID:      userID,
			})
			if err != nil {
				return err
			}
			movs = append(movs, res.Movement)
		}
		if err := invoiceRepo.DeleteItems(ctx, invoiceID); err != nil {
			return err
		}
		return invoiceRepo.Delete(ctx, invoiceID)
	})
	if err != nil {
		return err
	}

	uc.committed(ctx, movs)
	uc.log.Info().Str("invoice_id", invoiceID).Int("restored_lines", len(movs)).Msg("factura eliminada")
	return nil
}

// Get devuelve la factura con sus líneas.
func (uc *InvoiceUseCase) Get(ctx context.Context, invoiceID string) (*dto.InvoiceResponse, error) {
	if err := domain.ValidateID("id", invoiceID); err != nil {
		return nil, err
	}
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	items, err := uc.invoiceRepo.GetItems(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, items), nil
}

// List devuelve las cabeceras, más recientes primero.
func (uc *InvoiceUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.InvoiceListResponse, error) {
	page.DefaultPage()
	list, err := uc.invoiceRepo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.InvoiceListResponse{
		Items: make([]dto.InvoiceResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, inv := range list {
		out.Items = append(out.Items, *toInvoiceResponse(inv, nil))
	}
	return out, nil
}

// buildItems valida las líneas contra el catálogo y calcula subtotales y totales.
// Precio unitario cero toma el precio del producto; el IVA es el del producto.
// inactive lista los productos inactivos (id → SKU); cada llamador decide si los admite.
func (uc *InvoiceUseCase) buildItems(ctx context.Context, invoiceID string, in []dto.InvoiceItemRequest) (
	items []*entity.InvoiceItem, totals domainbilling.Totals, inactive map[string]string, err error,
) {
	if len(in) == 0 {
		return nil, totals, nil, domain.InvalidInputf("la factura debe tener al menos una línea")
	}

	products := make(map[string]*entity.Product, len(in))
	items = make([]*entity.InvoiceItem, 0, len(in))
	inactive = make(map[string]string)
	for i, line := range in {
		if err := domaininv.ValidateProductID(line.ProductID); err != nil {
			return nil, totals, nil, fmt.Errorf("línea %d: %w", i+1, err)
		}
		if err := domaininv.ValidateAmount(line.Quantity); err != nil {
			return nil, totals, nil, fmt.Errorf("línea %d: %w", i+1, err)
		}
		if line.UnitPrice.IsNegative() {
			return nil, totals, nil, domain.InvalidInputf("línea %d: el precio unitario no puede ser negativo", i+1)
		}

		p, ok := products[line.ProductID]
		if !ok {
			p, err = uc.productRepo.GetByID(ctx, line.ProductID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil, totals, nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, line.ProductID)
			}
			if err != nil {
				return nil, totals, nil, err
			}
			products[line.ProductID] = p
		}
		if p.Status == entity.ProductStatusInactive {
			inactive[p.ID] = p.SKU
		}

		price := line.UnitPrice
		if price.IsZero() {
			price = p.Price
		}
		rate := domainbilling.NormalizeTaxRate(p.TaxRate)
		subtotal := domainbilling.LineSubtotal(line.Quantity, price)
		totals = totals.Accumulate(subtotal, rate)
		items = append(items, &entity.InvoiceItem{
			ID:          uuid.NewString(),
			InvoiceID:   invoiceID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    line.Quantity,
			UnitPrice:   price,
			TaxRate:     rate,
			Subtotal:    subtotal,
		})
	}
	return items, totals, inactive, nil
}

func (uc *InvoiceUseCase) committed(ctx context.Context, movs []*entity.InventoryMovement) {
	uc.ledger.Publish(ctx, movs...)
	for _, l := range uc.listeners {
		l(ctx)
	}
}

func toLines(items []*entity.InvoiceItem) []domaininv.Line {
	out := make([]domaininv.Line, 0, len(items))
	for _, it := range items {
		out = append(out, domaininv.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

// productNames nombre por producto; las líneas nuevas prevalecen sobre las anteriores.
func productNames(previous, next []*entity.InvoiceItem) map[string]string {
	out := make(map[string]string, len(previous)+len(next))
	for _, it := range previous {
		out[it.ProductID] = it.ProductName
	}
	for _, it := range next {
		out[it.ProductID] = it.ProductName
	}
	return out
}

func toInvoiceResponse(inv *entity.Invoice, items []*entity.InvoiceItem) *dto.InvoiceResponse {
	out := &dto.InvoiceResponse{
		ID:           inv.ID,
		Prefix:       inv.Prefix,
		Number:       inv.Number,
		CustomerName: inv.CustomerName,
		Date:         inv.Date,
		NetTotal:     inv.NetTotal,
		TaxTotal:     inv.TaxTotal,
		GrandTotal:   inv.GrandTotal,
		Status:       inv.Status,
		Notes:        inv.Notes,
		Items:        make([]dto.InvoiceItemResponse, 0, len(items)),
	}
	for _, it := range items {
		out.Items = append(out.Items, dto.InvoiceItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
			Subtotal:    it.Subtotal,
		})
	}
	return out
}
