package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

const movementColumns = `id, product_id, product_name, type, amount, reason, reference, notes,
	previous_quantity, new_quantity, date, created_at, created_by`

// InventoryMovementRepo ledger sobre PostgreSQL. Solo INSERT y SELECT.
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

func scanMovement(row pgx.Row) (*entity.InventoryMovement, error) {
	var m entity.InventoryMovement
	var reference, notes, createdBy *string
	err := row.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Type, &m.Amount, &m.Reason, &reference, &notes,
		&m.PreviousQuantity, &m.NewQuantity, &m.Date, &m.CreatedAt, &createdBy)
	if err != nil {
		return nil, err
	}
	m.Reference = deref(reference)
	m.Notes = deref(notes)
	m.CreatedBy = deref(createdBy)
	return &m, nil
}

// Create agrega un asiento.
func (r *InventoryMovementRepo) Create(ctx context.Context, m *entity.InventoryMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO inventory_movements (id, product_id, product_name, type, amount, reason, reference, notes,
			previous_quantity, new_quantity, date, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.ProductID, m.ProductName, m.Type, m.Amount, m.Reason, nullIfEmpty(m.Reference), nullIfEmpty(m.Notes),
		m.PreviousQuantity, m.NewQuantity, m.Date, m.CreatedAt, nullIfEmpty(m.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("create inventory movement: %w", err)
	}
	return nil
}

// GetByID obtiene un asiento.
func (r *InventoryMovementRepo) GetByID(ctx context.Context, id string) (*entity.InventoryMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM inventory_movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

func (r *InventoryMovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.InventoryMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.InventoryMovement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// ListByProduct más recientes primero; seq desempata asientos con la misma fecha.
func (r *InventoryMovementRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.InventoryMovement, error) {
	return r.list(ctx, `
		SELECT `+movementColumns+` FROM inventory_movements
		WHERE product_id = $1
		ORDER BY date DESC, seq DESC
		LIMIT $2 OFFSET $3`, productID, limit, offset)
}

// ListRecent últimos asientos de todos los productos.
func (r *InventoryMovementRepo) ListRecent(ctx context.Context, limit int) ([]*entity.InventoryMovement, error) {
	return r.list(ctx, `
		SELECT `+movementColumns+` FROM inventory_movements
		ORDER BY date DESC, seq DESC
		LIMIT $1`, limit)
}

// ListChronological historial completo en orden de inserción.
func (r *InventoryMovementRepo) ListChronological(ctx context.Context, productID string) ([]*entity.InventoryMovement, error) {
	return r.list(ctx, `
		SELECT `+movementColumns+` FROM inventory_movements
		WHERE product_id = $1
		ORDER BY seq`, productID)
}

// TotalsSince unidades in/out desde from.
func (r *InventoryMovementRepo) TotalsSince(ctx context.Context, from time.Time) (repository.MovementTotals, error) {
	var t repository.MovementTotals
	err := r.q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'in'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'out'), 0)
		FROM inventory_movements WHERE date >= $1`, from).Scan(&t.In, &t.Out)
	if err != nil {
		return t, fmt.Errorf("movement totals: %w", err)
	}
	return t, nil
}
