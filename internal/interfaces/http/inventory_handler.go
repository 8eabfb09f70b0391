package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/erp-api/internal/application/dto"
	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InventoryHandler expone el ledger de existencias.
type InventoryHandler struct {
	ledger *inventory.Service
	export *inventory.ExportUseCase
	audit  *inventory.AuditUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.Service, export *inventory.ExportUseCase, audit *inventory.AuditUseCase) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, export: export, audit: audit}
}

// StockIn godoc
// @Summary      Entrada de mercancía
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockMovementRequest  true  "product_id, amount > 0, reason, reference, notes"
// @Success      201   {object}  dto.StockMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/stock-in [post]
func (h *InventoryHandler) StockIn(c *fiber.Ctx) error {
	return h.move(c, h.ledger.StockIn)
}

// StockOut godoc
// @Summary      Salida de mercancía
// @Description  Si la existencia no alcanza responde 409 INSUFFICIENT_STOCK y no modifica nada.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StockMovementRequest  true  "product_id, amount > 0, reason, reference, notes"
// @Success      201   {object}  dto.StockMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/stock-out [post]
func (h *InventoryHandler) StockOut(c *fiber.Ctx) error {
	return h.move(c, h.ledger.StockOut)
}

type movementFunc func(ctx context.Context, in inventory.MovementInput) (*inventory.MovementResult, error)

func (h *InventoryHandler) move(c *fiber.Ctx, apply movementFunc) error {
	var in dto.StockMovementRequest
	if err := bindJSON(c, &in); err != nil {
		return writeError(c, err)
	}
	res, err := apply(c.UserContext(), inventory.MovementInput{
		ProductID:   in.ProductID,
		ProductName: in.ProductName,
		Amount:      in.Amount,
		Reason:      in.Reason,
		Reference:   in.Reference,
		Notes:       in.Notes,
		UserID:      GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.StockMovementResponse{
		Inventory: toInventoryResponse(res.Inventory),
		Movement:  toMovementResponse(res.Movement),
	})
}

// UpdateReorderLevel godoc
// @Summary      Cambiar el nivel de reorden
// @Description  Solo cambia el umbral de stock bajo; no genera movimiento.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del producto"
// @Param        body  body  dto.ReorderLevelRequest  true  "reorder_level >= 0"
// @Success      200   {object}  dto.InventoryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/reorder-level [put]
func (h *InventoryHandler) UpdateReorderLevel(c *fiber.Ctx) error {
	var in dto.ReorderLevelRequest
	if err := bindJSON(c, &in); err != nil {
		return writeError(c, err)
	}
	inv, err := h.ledger.UpdateReorderLevel(c.UserContext(), c.Params("id"), *in.ReorderLevel)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toInventoryResponse(inv))
}

// GetStock godoc
// @Summary      Existencia actual de un producto
// @Description  Un producto sin registro tiene existencia 0. Con ?requested=n incluye "sufficient".
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id         path   string  true   "ID del producto"
// @Param        requested  query  int     false  "Cantidad a verificar"
// @Success      200  {object}  dto.StockLevelResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/{id} [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	ctx := c.UserContext()
	productID := c.Params("id")
	out := dto.StockLevelResponse{ProductID: productID, ReorderLevel: h.ledger.DefaultReorderLevel()}

	inv, err := h.ledger.GetInventory(ctx, productID)
	switch {
	case err == nil:
		out.Quantity = inv.Quantity
		out.ReorderLevel = inv.ReorderLevel
		out.IsLowStock = inv.IsLowStock()
		out.Tracked = true
	case errors.Is(err, domain.ErrNotFound):
		out.IsLowStock = out.Quantity <= out.ReorderLevel
	default:
		return writeError(c, err)
	}

	if c.Query("requested") != "" {
		requested := c.QueryInt("requested", -1)
		ok, err := h.ledger.HasSufficientStock(ctx, productID, requested)
		if err != nil {
			return writeError(c, err)
		}
		out.Sufficient = &ok
	}
	return c.JSON(out)
}

// GetMovements godoc
// @Summary      Movimientos de un producto
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del producto"
// @Param        limit   query  int     false  "Máximo de movimientos (por defecto 50)"
// @Param        offset  query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/{id}/movements [get]
func (h *InventoryHandler) GetMovements(c *fiber.Ctx) error {
	var q dto.MovementsQuery
	if err := bindQuery(c, &q); err != nil {
		return writeError(c, err)
	}
	productID := c.Params("id")
	movs, err := h.ledger.GetProductMovements(c.UserContext(), productID, q.Limit, q.Offset)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		items = append(items, toMovementResponse(m))
	}
	limit, offset := h.ledger.MovementsPage(q.Limit, q.Offset)
	return c.JSON(dto.MovementListResponse{
		ProductID: productID,
		Items:     items,
		Page:      dto.PageResponse{Limit: limit, Offset: offset},
	})
}

// GetSummary godoc
// @Summary      Resumen de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.InventorySummaryResponse
// @Router       /api/inventory/summary [get]
func (h *InventoryHandler) GetSummary(c *fiber.Ctx) error {
	list, err := h.ledger.GetInventorySummary(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSummaryResponse(list))
}

// GetLowStock godoc
// @Summary      Productos en stock bajo
// @Description  Registros con quantity <= reorder_level.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.InventorySummaryResponse
// @Router       /api/inventory/low-stock [get]
func (h *InventoryHandler) GetLowStock(c *fiber.Ctx) error {
	list, err := h.ledger.GetLowStock(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSummaryResponse(list))
}

// Export godoc
// @Summary      Descargar inventario en Excel
// @Tags         inventory
// @Security     Bearer
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        limit  query  int  false  "Máximo de movimientos en la hoja Movimientos"
// @Success      200  {file}  binary
// @Router       /api/inventory/export [get]
func (h *InventoryHandler) Export(c *fiber.Ctx) error {
	raw, filename, err := h.export.Export(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, mimeXLSX)
	c.Attachment(filename)
	return c.Send(raw)
}

// Audit godoc
// @Summary      Auditar el ledger
// @Description  Compara cada registro con su historial de movimientos. Una sola auditoría a la vez.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.AuditReportResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/audit [get]
func (h *InventoryHandler) Audit(c *fiber.Ctx) error {
	report, err := h.audit.Run(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	out := dto.AuditReportResponse{
		CheckedProducts: report.CheckedProducts,
		Consistent:      len(report.Discrepancies) == 0,
		Discrepancies:   make([]dto.DiscrepancyResponse, 0, len(report.Discrepancies)),
		StartedAt:       report.StartedAt,
		FinishedAt:      report.FinishedAt,
	}
	for _, d := range report.Discrepancies {
		out.Discrepancies = append(out.Discrepancies, dto.DiscrepancyResponse{
			ProductID:   d.ProductID,
			ProductName: d.ProductName,
			Kind:        d.Kind,
			Expected:    d.Expected,
			Actual:      d.Actual,
			MovementID:  d.MovementID,
		})
	}
	return c.JSON(out)
}

func toInventoryResponse(inv *entity.Inventory) dto.InventoryResponse {
	return dto.InventoryResponse{
		ProductID:    inv.ProductID,
		ProductName:  inv.ProductName,
		Quantity:     inv.Quantity,
		ReorderLevel: inv.ReorderLevel,
		IsLowStock:   inv.IsLowStock(),
		LastUpdated:  inv.LastUpdated,
	}
}

func toMovementResponse(m *entity.InventoryMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:               m.ID,
		ProductID:        m.ProductID,
		ProductName:      m.ProductName,
		Type:             m.Type,
		Amount:           m.Amount,
		Reason:           m.Reason,
		Reference:        m.Reference,
		Notes:            m.Notes,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		Date:             m.Date,
		CreatedAt:        m.CreatedAt,
	}
}

func toSummaryResponse(list []entity.InventorySummaryItem) dto.InventorySummaryResponse {
	out := dto.InventorySummaryResponse{Items: make([]dto.InventoryResponse, 0, len(list)), Total: len(list)}
	for _, it := range list {
		if it.IsLowStock {
			out.LowStockCount++
		}
		out.Items = append(out.Items, dto.InventoryResponse{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			ReorderLevel: it.ReorderLevel,
			IsLowStock:   it.IsLowStock,
			LastUpdated:  it.LastUpdated,
		})
	}
	return out
}
