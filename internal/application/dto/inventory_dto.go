package dto

import "time"

// StockMovementRequest body para POST /api/inventory/stock-in y /stock-out.
// Amount entero estrictamente positivo; un valor no numérico falla al decodificar el body.
type StockMovementRequest struct {
	ProductID   string `json:"product_id" validate:"required,uuid"`
	ProductName string `json:"product_name" validate:"max=200"`
	Amount      int    `json:"amount" validate:"required,gt=0"`
	Reason      string `json:"reason" validate:"max=200"`
	Reference   string `json:"reference" validate:"max=100"`
	Notes       string `json:"notes" validate:"max=1000"`
}

// ReorderLevelRequest body para PUT /api/inventory/:id/reorder-level.
type ReorderLevelRequest struct {
	ReorderLevel *int `json:"reorder_level" validate:"required,min=0"`
}

// MovementsQuery query de GET /api/inventory/:id/movements.
type MovementsQuery struct {
	Limit  int `query:"limit" validate:"min=0,max=1000"`
	Offset int `query:"offset" validate:"min=0"`
}

// InventoryResponse registro de inventario.
type InventoryResponse struct {
	ProductID    string    `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level"`
	IsLowStock   bool      `json:"is_low_stock"`
	LastUpdated  time.Time `json:"last_updated"`
}

// MovementResponse asiento del ledger.
type MovementResponse struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	ProductName      string    `json:"product_name"`
	Type             string    `json:"type"`
	Amount           int       `json:"amount"`
	Reason           string    `json:"reason"`
	Reference        string    `json:"reference,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	Date             time.Time `json:"date"`
	CreatedAt        time.Time `json:"created_at"`
}

// StockMovementResponse respuesta de stock-in/stock-out.
type StockMovementResponse struct {
	Inventory InventoryResponse `json:"inventory"`
	Movement  MovementResponse  `json:"movement"`
}

// MovementListResponse movimientos de un producto.
type MovementListResponse struct {
	ProductID string             `json:"product_id"`
	Items     []MovementResponse `json:"items"`
	Page      PageResponse       `json:"page"`
}

// InventorySummaryResponse resumen de inventario o lista de stock bajo.
type InventorySummaryResponse struct {
	Items         []InventoryResponse `json:"items"`
	Total         int                 `json:"total"`
	LowStockCount int                 `json:"low_stock_count"`
}

// DiscrepancyResponse inconsistencia detectada por la auditoría.
type DiscrepancyResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Kind        string `json:"kind"`
	Expected    int    `json:"expected"`
	Actual      int    `json:"actual"`
	MovementID  string `json:"movement_id,omitempty"`
}

// AuditReportResponse resultado de GET /api/inventory/audit.
type AuditReportResponse struct {
	CheckedProducts int                   `json:"checked_products"`
	Consistent      bool                  `json:"consistent"`
	Discrepancies   []DiscrepancyResponse `json:"discrepancies"`
	StartedAt       time.Time             `json:"started_at"`
	FinishedAt      time.Time             `json:"finished_at"`
}

// StockLevelResponse respuesta de GET /api/inventory/:id. Sin registro, quantity = 0.
// Sufficient solo se incluye si se consultó ?requested=n.
type StockLevelResponse struct {
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	ReorderLevel int    `json:"reorder_level"`
	IsLowStock   bool   `json:"is_low_stock"`
	Tracked      bool   `json:"tracked"` // false = el producto aún no tiene registro
	Sufficient   *bool  `json:"sufficient,omitempty"`
}
