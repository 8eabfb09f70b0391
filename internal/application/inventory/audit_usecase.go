package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

// Tipos de discrepancia detectados por la auditoría.
const (
	DiscrepancyLastMovement = "last_movement_mismatch" // quantity != newQuantity del último asiento
	DiscrepancyLedgerSum    = "ledger_sum_mismatch"    // quantity != Σin - Σout (historial completo)
	DiscrepancyBrokenChain  = "broken_chain"           // previousQuantity != newQuantity del asiento anterior
	DiscrepancyArithmetic   = "arithmetic"             // newQuantity != previousQuantity ± amount
)

const auditLockKey = "inventory:audit"

// Discrepancy inconsistencia entre un registro de inventario y su ledger.
type Discrepancy struct {
	ProductID   string
	ProductName string
	Kind        string
	Expected    int
	Actual      int
	MovementID  string
}

// AuditReport resultado de una auditoría completa.
type AuditReport struct {
	CheckedProducts int
	Discrepancies   []Discrepancy
	StartedAt       time.Time
	FinishedAt      time.Time
}

// AuditUseCase reconcilia cada registro de inventario con su historial de movimientos.
// Solo lectura; una única ejecución a la vez protegida por Locker.
// Cada producto se lee con su fila bloqueada, así un movimiento confirmado durante la
// auditoría nunca queda a medias entre el registro y el historial.
type AuditUseCase struct {
	txRunner    TxRunner
	invRepo     repository.InventoryRepository
	locker      Locker
	lockTTL     time.Duration
	concurrency int
	log         zerolog.Logger
}

// NewAuditUseCase construye la auditoría.
func NewAuditUseCase(
	txRunner TxRunner,
	invRepo repository.InventoryRepository,
	locker Locker,
	lockTTL time.Duration,
	log zerolog.Logger,
) *AuditUseCase {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &AuditUseCase{
		txRunner:    txRunner,
		invRepo:     invRepo,
		locker:      locker,
		lockTTL:     lockTTL,
		concurrency: 4,
		log:         log.With().Str("component", "ledger_audit").Logger(),
	}
}

// Run audita todos los productos. Devuelve domain.ErrConflict si ya hay una auditoría en curso.
func (uc *AuditUseCase) Run(ctx context.Context) (*AuditReport, error) {
	release, err := uc.locker.Acquire(ctx, auditLockKey, uc.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			uc.log.Warn().Err(err).Msg("no se pudo liberar el lock de auditoría")
		}
	}()

	report := &AuditReport{StartedAt: time.Now().UTC()}
	list, err := uc.invRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("auditoría: listar inventario: %w", err)
	}

	var (
		mu      sync.Mutex
		checked int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for _, listed := range list {
		listed := listed
		g.Go(func() error {
			found, ok, err := uc.checkProduct(gctx, listed.ProductID)
			if err != nil {
				return fmt.Errorf("auditoría: %s: %w", listed.ProductID, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				checked++
			}
			report.Discrepancies = append(report.Discrepancies, found...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Discrepancies, func(i, j int) bool {
		a, b := report.Discrepancies[i], report.Discrepancies[j]
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return a.Kind < b.Kind
	})
	report.CheckedProducts = checked
	report.FinishedAt = time.Now().UTC()

	uc.log.Info().
		Int("products", report.CheckedProducts).
		Int("discrepancies", len(report.Discrepancies)).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("auditoría de inventario finalizada")
	return report, nil
}

// checkProduct relee el registro bloqueado y su historial en la misma transacción.
// ok=false si el registro desapareció después del listado.
func (uc *AuditUseCase) checkProduct(ctx context.Context, productID string) (found []Discrepancy, ok bool, err error) {
	err = uc.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, movRepo repository.InventoryMovementRepository) error {
		inv, err := invRepo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		movs, err := movRepo.ListChronological(ctx, productID)
		if err != nil {
			return err
		}
		found, ok = CheckLedger(inv, movs), true
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	return found, ok, err
}

// CheckLedger compara un registro con sus movimientos en orden cronológico.
// Un registro sin movimientos no se puede auditar y no genera discrepancias.
func CheckLedger(inv *entity.Inventory, movs []*entity.InventoryMovement) []Discrepancy {
	if len(movs) == 0 {
		return nil
	}
	var out []Discrepancy
	add := func(kind string, expected, actual int, movID string) {
		out = append(out, Discrepancy{
			ProductID:   inv.ProductID,
			ProductName: inv.ProductName,
			Kind:        kind,
			Expected:    expected,
			Actual:      actual,
			MovementID:  movID,
		})
	}

	sum := 0
	for i, m := range movs {
		delta := m.Amount
		if m.Type == entity.MovementTypeOut {
			delta = -m.Amount
		}
		sum += delta
		if m.PreviousQuantity+delta != m.NewQuantity {
			add(DiscrepancyArithmetic, m.PreviousQuantity+delta, m.NewQuantity, m.ID)
		}
		if i > 0 && movs[i-1].NewQuantity != m.PreviousQuantity {
			add(DiscrepancyBrokenChain, movs[i-1].NewQuantity, m.PreviousQuantity, m.ID)
		}
	}

	last := movs[len(movs)-1]
	if last.NewQuantity != inv.Quantity {
		add(DiscrepancyLastMovement, last.NewQuantity, inv.Quantity, last.ID)
	}
	if movs[0].PreviousQuantity == 0 && sum != inv.Quantity {
		add(DiscrepancyLedgerSum, sum, inv.Quantity, "")
	}
	return out
}
