package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	domaininv "github.com/jhoicas/erp-api/internal/domain/inventory"
	"github.com/jhoicas/erp-api/internal/domain/repository"
)

const defaultMovementsLimit = 50

// Options parámetros del ledger.
type Options struct {
	DefaultReorderLevel int
	MovementsMaxLimit   int
}

// Service es el único escritor de la existencia. Cada entrada o salida bloquea la fila
// de inventario (SELECT ... FOR UPDATE), actualiza la cantidad y agrega el asiento
// del ledger en la misma transacción.
type Service struct {
	txRunner  TxRunner
	invRepo   repository.InventoryRepository
	movRepo   repository.InventoryMovementRepository
	observers []LedgerObserver
	log       zerolog.Logger
	opts      Options
	now       func() time.Time
}

// NewService construye el ledger. invRepo y movRepo se usan solo para lecturas fuera de transacción.
func NewService(
	txRunner TxRunner,
	invRepo repository.InventoryRepository,
	movRepo repository.InventoryMovementRepository,
	log zerolog.Logger,
	opts Options,
	observers ...LedgerObserver,
) *Service {
	if opts.DefaultReorderLevel < 0 {
		opts.DefaultReorderLevel = entity.DefaultReorderLevel
	}
	if opts.MovementsMaxLimit <= 0 {
		opts.MovementsMaxLimit = 100
	}
	return &Service{
		txRunner:  txRunner,
		invRepo:   invRepo,
		movRepo:   movRepo,
		observers: observers,
		log:       log.With().Str("component", "ledger").Logger(),
		opts:      opts,
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// DefaultReorderLevel umbral asignado a los registros nuevos.
func (s *Service) DefaultReorderLevel() int { return s.opts.DefaultReorderLevel }

// MovementInput datos de una entrada o salida.
type MovementInput struct {
	ProductID   string
	ProductName string
	Amount      int
	Reason      string
	Reference   string
	Notes       string
	UserID      string
}

func (in MovementInput) validate() error {
	if err := domaininv.ValidateProductID(in.ProductID); err != nil {
		return err
	}
	return domaininv.ValidateAmount(in.Amount)
}

// MovementResult registro actualizado y asiento creado.
type MovementResult struct {
	Inventory *entity.Inventory
	Movement  *entity.InventoryMovement
}

// GetOrCreateInventory devuelve el registro del producto y lo crea con cantidad 0 si no existe. Idempotente.
func (s *Service) GetOrCreateInventory(ctx context.Context, productID, productName string) (*entity.Inventory, error) {
	if err := domaininv.ValidateProductID(productID); err != nil {
		return nil, err
	}
	var inv *entity.Inventory
	err := s.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, _ repository.InventoryMovementRepository) error {
		var err error
		inv, err = invRepo.GetOrCreateForUpdate(ctx, productID, productName, s.opts.DefaultReorderLevel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// StockIn suma amount a la existencia (creando el registro si falta) y registra el asiento "in".
func (s *Service) StockIn(ctx context.Context, in MovementInput) (*MovementResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var res *MovementResult
	err := s.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, movRepo repository.InventoryMovementRepository) error {
		var err error
		res, err = s.StockInTx(ctx, invRepo, movRepo, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Publish(ctx, res.Movement)
	return res, nil
}

// StockOut resta amount de un registro existente. ErrNotFound si el producto no tiene registro
// (la salida nunca crea el registro); InsufficientStockError si no alcanza, sin modificar nada.
func (s *Service) StockOut(ctx context.Context, in MovementInput) (*MovementResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var res *MovementResult
	err := s.txRunner.Run(ctx, func(invRepo repository.InventoryRepository, movRepo repository.InventoryMovementRepository) error {
		var err error
		res, err = s.StockOutTx(ctx, invRepo, movRepo, in)
		return err
	})
	if err != nil {
		s.rejected(ctx, err)
		return nil, err
	}
	s.Publish(ctx, res.Movement)
	return res, nil
}

// StockInTx aplica una entrada con los repositorios de una transacción abierta por el llamador.
// No notifica a los observadores: el llamador publica con Publish tras el commit.
func (s *Service) StockInTx(
	ctx context.Context,
	invRepo repository.InventoryRepository,
	movRepo repository.InventoryMovementRepository,
	in MovementInput,
) (*MovementResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	inv, err := invRepo.GetOrCreateForUpdate(ctx, in.ProductID, in.ProductName, s.opts.DefaultReorderLevel)
	if err != nil {
		return nil, err
	}
	previous := inv.Quantity
	next, err := domaininv.ApplyIn(previous, in.Amount)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, invRepo, movRepo, inv, entity.MovementTypeIn, previous, next, in)
}

// StockOutTx aplica una salida con los repositorios de una transacción abierta por el llamador.
func (s *Service) StockOutTx(
	ctx context.Context,
	invRepo repository.InventoryRepository,
	movRepo repository.InventoryMovementRepository,
	in MovementInput,
) (*MovementResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	inv, err := invRepo.GetForUpdate(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	previous := inv.Quantity
	next, err := domaininv.ApplyOut(in.ProductID, previous, in.Amount)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, invRepo, movRepo, inv, entity.MovementTypeOut, previous, next, in)
}

func (s *Service) persist(
	ctx context.Context,
	invRepo repository.InventoryRepository,
	movRepo repository.InventoryMovementRepository,
	inv *entity.Inventory,
	movType string,
	previous, next int,
	in MovementInput,
) (*MovementResult, error) {
	inv.Quantity = next
	if in.ProductName != "" {
		inv.ProductName = in.ProductName
	}
	inv.LastUpdated = s.now().UTC()
	if err := invRepo.UpdateStock(ctx, inv); err != nil {
		return nil, err
	}

	mov := domaininv.NewMovement(inv, movType, in.Amount, previous, in.Reason, in.Reference, in.Notes)
	mov.CreatedBy = in.UserID
	if err := movRepo.Create(ctx, mov); err != nil {
		return nil, err
	}
	return &MovementResult{Inventory: inv, Movement: mov}, nil
}

// Publish notifica movimientos ya confirmados a los observadores y los deja en el log.
func (s *Service) Publish(ctx context.Context, movements ...*entity.InventoryMovement) {
	for _, m := range movements {
		if m == nil {
			continue
		}
		s.log.Info().
			Str("product_id", m.ProductID).
			Str("type", m.Type).
			Int("amount", m.Amount).
			Int("previous_quantity", m.PreviousQuantity).
			Int("new_quantity", m.NewQuantity).
			Str("reference", m.Reference).
			Msg("movimiento de inventario registrado")
		for _, o := range s.observers {
			o.MovementRecorded(ctx, m)
		}
	}
}

// rejected notifica un rechazo por stock insuficiente; err de otro tipo se ignora.
func (s *Service) rejected(ctx context.Context, err error) {
	var ise *domain.InsufficientStockError
	if !errors.As(err, &ise) {
		return
	}
	s.log.Warn().
		Str("product_id", ise.ProductID).
		Int("available", ise.Available).
		Int("requested", ise.Requested).
		Msg("salida rechazada por stock insuficiente")
	for _, o := range s.observers {
		o.StockRejected(ctx, ise.ProductID, ise.Available, ise.Requested)
	}
}

// ReportRejection expone rejected para flujos que abren su propia transacción (facturación).
func (s *Service) ReportRejection(ctx context.Context, err error) {
	s.rejected(ctx, err)
}

// GetCurrentStock devuelve la existencia; 0 si el producto no tiene registro.
func (s *Service) GetCurrentStock(ctx context.Context, productID string) (int, error) {
	if err := domaininv.ValidateProductID(productID); err != nil {
		return 0, err
	}
	inv, err := s.invRepo.GetByProductID(ctx, productID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return inv.Quantity, nil
}

// GetInventory devuelve el registro del producto; ErrNotFound si no existe.
func (s *Service) GetInventory(ctx context.Context, productID string) (*entity.Inventory, error) {
	if err := domaininv.ValidateProductID(productID); err != nil {
		return nil, err
	}
	return s.invRepo.GetByProductID(ctx, productID)
}

// HasSufficientStock indica si la existencia cubre requested. requested 0 siempre alcanza.
func (s *Service) HasSufficientStock(ctx context.Context, productID string, requested int) (bool, error) {
	if requested < 0 {
		return false, domain.InvalidInputf("la cantidad solicitada no puede ser negativa (recibido %d)", requested)
	}
	current, err := s.GetCurrentStock(ctx, productID)
	if err != nil {
		return false, err
	}
	return current >= requested, nil
}

// HasSufficientStockTx verifica suficiencia dentro de una transacción abierta, bloqueando la fila
// para que la verificación siga siendo válida hasta el commit. Devuelve InsufficientStockError si no alcanza.
func (s *Service) HasSufficientStockTx(ctx context.Context, invRepo repository.InventoryRepository, productID string, requested int) error {
	if err := domaininv.ValidateProductID(productID); err != nil {
		return err
	}
	if requested < 0 {
		return domain.InvalidInputf("la cantidad solicitada no puede ser negativa (recibido %d)", requested)
	}
	available := 0
	inv, err := invRepo.GetForUpdate(ctx, productID)
	switch {
	case err == nil:
		available = inv.Quantity
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	if available < requested {
		return domain.NewInsufficientStock(productID, available, requested)
	}
	return nil
}

// UpdateReorderLevel cambia solo el umbral; no genera asiento en el ledger.
func (s *Service) UpdateReorderLevel(ctx context.Context, productID string, level int) (*entity.Inventory, error) {
	if err := domaininv.ValidateProductID(productID); err != nil {
		return nil, err
	}
	if err := domaininv.ValidateReorderLevel(level); err != nil {
		return nil, err
	}
	inv, err := s.invRepo.UpdateReorderLevel(ctx, productID, level)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("product_id", productID).Int("reorder_level", level).Msg("nivel de reorden actualizado")
	for _, o := range s.observers {
		o.ReorderLevelChanged(ctx, inv)
	}
	return inv, nil
}

// GetProductMovements devuelve los movimientos del producto, más recientes primero.
// limit <= 0 usa el valor por defecto y se acota al máximo configurado.
func (s *Service) GetProductMovements(ctx context.Context, productID string, limit, offset int) ([]*entity.InventoryMovement, error) {
	if err := domaininv.ValidateProductID(productID); err != nil {
		return nil, err
	}
	limit, offset = s.MovementsPage(limit, offset)
	return s.movRepo.ListByProduct(ctx, productID, limit, offset)
}

// MovementsPage devuelve la paginación que GetProductMovements aplica realmente:
// límite por defecto si falta, acotado a MovementsMaxLimit, offset no negativo.
func (s *Service) MovementsPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultMovementsLimit
	}
	if limit > s.opts.MovementsMaxLimit {
		limit = s.opts.MovementsMaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetInventorySummary lista todos los registros por nombre de producto, marcando los de stock bajo.
func (s *Service) GetInventorySummary(ctx context.Context) ([]entity.InventorySummaryItem, error) {
	list, err := s.invRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.InventorySummaryItem, 0, len(list))
	for _, inv := range list {
		out = append(out, entity.InventorySummaryItem{
			ProductID:    inv.ProductID,
			ProductName:  inv.ProductName,
			Quantity:     inv.Quantity,
			ReorderLevel: inv.ReorderLevel,
			IsLowStock:   inv.IsLowStock(),
			LastUpdated:  inv.LastUpdated,
		})
	}
	return out, nil
}

// GetLowStock filtra el resumen a quantity <= reorderLevel.
func (s *Service) GetLowStock(ctx context.Context) ([]entity.InventorySummaryItem, error) {
	all, err := s.GetInventorySummary(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.InventorySummaryItem, 0)
	for _, it := range all {
		if it.IsLowStock {
			out = append(out, it)
		}
	}
	return out, nil
}

// RecentMovements últimos movimientos de todos los productos (exportación).
func (s *Service) RecentMovements(ctx context.Context, limit int) ([]*entity.InventoryMovement, error) {
	if limit <= 0 || limit > s.opts.MovementsMaxLimit*10 {
		limit = s.opts.MovementsMaxLimit * 10
	}
	return s.movRepo.ListRecent(ctx, limit)
}
