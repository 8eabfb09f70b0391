package entity

import "time"

// DefaultReorderLevel umbral de reposición cuando no se indica otro.
const DefaultReorderLevel = 5

// Inventory existencia actual de un producto. Exactamente un registro por producto.
// Quantity solo cambia por una entrada o salida del ledger.
type Inventory struct {
	ID           string
	ProductID    string
	ProductName  string // copia desnormalizada para listados
	Quantity     int
	ReorderLevel int
	LastUpdated  time.Time
}

// IsLowStock indica si la existencia está en o por debajo del umbral.
func (i *Inventory) IsLowStock() bool {
	return i.Quantity <= i.ReorderLevel
}

// InventorySummaryItem fila del resumen de inventario.
type InventorySummaryItem struct {
	ProductID    string
	ProductName  string
	Quantity     int
	ReorderLevel int
	IsLowStock   bool
	LastUpdated  time.Time
}
