package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const invoiceColumns = `id, prefix, number, customer_name, date, net_total, tax_total, grand_total,
	status, notes, created_by, created_at, updated_at`

// InvoiceRepo facturas y líneas sobre PostgreSQL (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var notes, createdBy *string
	err := row.Scan(&inv.ID, &inv.Prefix, &inv.Number, &inv.CustomerName, &inv.Date,
		&inv.NetTotal, &inv.TaxTotal, &inv.GrandTotal, &inv.Status, &notes, &createdBy,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	inv.Notes = deref(notes)
	inv.CreatedBy = deref(createdBy)
	return &inv, nil
}

// Create persiste la cabecera.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		inv.ID, inv.Prefix, inv.Number, inv.CustomerName, inv.Date,
		inv.NetTotal, inv.TaxTotal, inv.GrandTotal, inv.Status, nullIfEmpty(inv.Notes), nullIfEmpty(inv.CreatedBy),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateItem persiste una línea.
func (r *InvoiceRepo) CreateItem(ctx context.Context, it *entity.InvoiceItem) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO invoice_items (id, invoice_id, product_id, product_name, quantity, unit_price, tax_rate, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		it.ID, it.InvoiceID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.TaxRate, it.Subtotal,
	)
	if err != nil {
		return fmt.Errorf("insert invoice item: %w", err)
	}
	return nil
}

// Update reescribe cabecera y totales.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE invoices
		SET customer_name = $2, date = $3, net_total = $4, tax_total = $5, grand_total = $6,
		    status = $7, notes = $8, updated_at = $9
		WHERE id = $1`,
		inv.ID, inv.CustomerName, inv.Date, inv.NetTotal, inv.TaxTotal, inv.GrandTotal,
		inv.Status, nullIfEmpty(inv.Notes), inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene la cabecera.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, err
}

// GetForUpdate obtiene la cabecera con FOR UPDATE; dos ediciones de la misma factura se serializan.
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lock invoice: %w", err)
	}
	return inv, err
}

// GetItems obtiene todas las líneas de una factura.
func (r *InvoiceRepo) GetItems(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, product_id, product_name, quantity, unit_price, tax_rate, subtotal
		FROM invoice_items WHERE invoice_id = $1 ORDER BY product_name, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()

	var list []*entity.InvoiceItem
	for rows.Next() {
		var it entity.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.UnitPrice, &it.TaxRate, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		list = append(list, &it)
	}
	return list, rows.Err()
}

// DeleteItems elimina las líneas (antes de reescribirlas en una actualización).
func (r *InvoiceRepo) DeleteItems(ctx context.Context, invoiceID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	return nil
}

// Delete elimina la factura; las líneas caen por ON DELETE CASCADE.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List facturas más recientes primero.
func (r *InvoiceRepo) List(ctx context.Context, limit, offset int) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		ORDER BY date DESC, number DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// SumGrandTotal total facturado en [from, to).
func (r *InvoiceRepo) SumGrandTotal(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(grand_total), 0) FROM invoices WHERE date >= $1 AND date < $2`, from, to).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum invoices: %w", err)
	}
	return total, nil
}
