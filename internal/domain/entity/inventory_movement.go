package entity

import "time"

// Tipos de movimiento del ledger.
const (
	MovementTypeIn  = "in"  // entrada
	MovementTypeOut = "out" // salida
)

// Motivos por defecto.
const (
	DefaultReasonIn  = "Stock In"
	DefaultReasonOut = "Stock Out"
)

// InventoryMovement asiento inmutable del ledger. Se asocia al producto, no al registro de inventario.
type InventoryMovement struct {
	ID               string
	ProductID        string
	ProductName      string
	Type             string // in | out
	Amount           int    // siempre > 0
	Reason           string
	Reference        string
	Notes            string
	PreviousQuantity int
	NewQuantity      int
	Date             time.Time
	CreatedAt        time.Time
	CreatedBy        string
}
