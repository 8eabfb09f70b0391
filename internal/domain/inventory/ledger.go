package inventory

import (
	"sort"

	"github.com/google/uuid"

	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
)

// ValidateProductID exige un UUID bien formado.
func ValidateProductID(productID string) error {
	return domain.ValidateID("product_id", productID)
}

// ValidateAmount exige una cantidad estrictamente positiva.
func ValidateAmount(amount int) error {
	if amount <= 0 {
		return domain.InvalidInputf("la cantidad debe ser mayor que 0 (recibido %d)", amount)
	}
	return nil
}

// ValidateReorderLevel exige un umbral no negativo.
func ValidateReorderLevel(level int) error {
	if level < 0 {
		return domain.InvalidInputf("el nivel de reorden no puede ser negativo (recibido %d)", level)
	}
	return nil
}

// ApplyIn calcula la nueva existencia de una entrada.
func ApplyIn(current, amount int) (int, error) {
	if err := ValidateAmount(amount); err != nil {
		return current, err
	}
	return current + amount, nil
}

// ApplyOut calcula la nueva existencia de una salida; nunca deja la existencia negativa.
func ApplyOut(productID string, current, amount int) (int, error) {
	if err := ValidateAmount(amount); err != nil {
		return current, err
	}
	if current < amount {
		return current, domain.NewInsufficientStock(productID, current, amount)
	}
	return current - amount, nil
}

// NewMovement arma el asiento del ledger a partir del estado antes y después.
func NewMovement(inv *entity.Inventory, movType string, amount, previous int, reason, reference, notes string) *entity.InventoryMovement {
	if reason == "" {
		reason = entity.DefaultReasonIn
		if movType == entity.MovementTypeOut {
			reason = entity.DefaultReasonOut
		}
	}
	return &entity.InventoryMovement{
		ID:               uuid.New().String(),
		ProductID:        inv.ProductID,
		ProductName:      inv.ProductName,
		Type:             movType,
		Amount:           amount,
		Reason:           reason,
		Reference:        reference,
		Notes:            notes,
		PreviousQuantity: previous,
		NewQuantity:      inv.Quantity,
		Date:             inv.LastUpdated,
		CreatedAt:        inv.LastUpdated,
	}
}

// Line cantidad de un producto dentro de un documento (p. ej. una factura).
type Line struct {
	ProductID string
	Quantity  int
}

// RequiredByProduct suma cantidades por producto; un producto repetido en varias líneas se agrega.
func RequiredByProduct(lines []Line) map[string]int {
	out := make(map[string]int, len(lines))
	for _, l := range lines {
		out[l.ProductID] += l.Quantity
	}
	return out
}

// QuantityDiff devuelve nuevo - anterior por producto, omitiendo los que no cambian.
// Un producto eliminado del documento aparece con delta negativo igual a su cantidad previa.
func QuantityDiff(previous, next []Line) map[string]int {
	prev := RequiredByProduct(previous)
	nxt := RequiredByProduct(next)
	out := make(map[string]int)
	for id, q := range nxt {
		if d := q - prev[id]; d != 0 {
			out[id] = d
		}
	}
	for id, q := range prev {
		if _, ok := nxt[id]; !ok && q != 0 {
			out[id] = -q
		}
	}
	return out
}

// SortedKeys ids en orden ascendente; fijar el orden de bloqueo evita deadlocks entre facturas.
func SortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
