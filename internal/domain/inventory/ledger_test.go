package inventory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/erp-api/internal/domain"
	"github.com/jhoicas/erp-api/internal/domain/entity"
	"github.com/jhoicas/erp-api/internal/domain/inventory"
)

func TestApplyOut_Insuficiente(t *testing.T) {
	q, err := inventory.ApplyOut("p1", 10, 15)
	require.Error(t, err)
	assert.Equal(t, 10, q)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, 10, ise.Available)
	assert.Equal(t, 15, ise.Requested)
}

func TestApplyOut_Exacto(t *testing.T) {
	q, err := inventory.ApplyOut("p1", 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, q)
}

func TestApply_CantidadNoPositiva(t *testing.T) {
	for _, amount := range []int{0, -3} {
		_, err := inventory.ApplyIn(5, amount)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		_, err = inventory.ApplyOut("p1", 5, amount)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestValidateProductID(t *testing.T) {
	assert.NoError(t, inventory.ValidateProductID("6f1c1f4e-3d2a-4b8e-9c1a-0e5f8d7c6b5a"))
	assert.ErrorIs(t, inventory.ValidateProductID("abc"), domain.ErrInvalidInput)
	assert.ErrorIs(t, inventory.ValidateReorderLevel(-1), domain.ErrInvalidInput)
	assert.NoError(t, inventory.ValidateReorderLevel(0))
}

func TestNewMovement_MotivoPorDefecto(t *testing.T) {
	now := time.Now()
	inv := &entity.Inventory{ProductID: "p1", ProductName: "Tornillo", Quantity: 6, LastUpdated: now}

	m := inventory.NewMovement(inv, entity.MovementTypeOut, 4, 10, "", "", "")
	assert.Equal(t, entity.DefaultReasonOut, m.Reason)
	assert.Equal(t, 10, m.PreviousQuantity)
	assert.Equal(t, 6, m.NewQuantity)
	assert.Equal(t, "Tornillo", m.ProductName)

	m = inventory.NewMovement(inv, entity.MovementTypeIn, 4, 2, "", "", "")
	assert.Equal(t, entity.DefaultReasonIn, m.Reason)
}

func TestQuantityDiff(t *testing.T) {
	prev := []inventory.Line{{ProductID: "a", Quantity: 5}, {ProductID: "b", Quantity: 2}, {ProductID: "c", Quantity: 1}}
	next := []inventory.Line{{ProductID: "a", Quantity: 3}, {ProductID: "b", Quantity: 2}, {ProductID: "d", Quantity: 4}, {ProductID: "d", Quantity: 1}}

	diff := inventory.QuantityDiff(prev, next)
	assert.Equal(t, map[string]int{"a": -2, "c": -1, "d": 5}, diff)
	assert.Equal(t, []string{"a", "c", "d"}, inventory.SortedKeys(diff))
}

func TestRequiredByProduct_Agrega(t *testing.T) {
	req := inventory.RequiredByProduct([]inventory.Line{{ProductID: "a", Quantity: 2}, {ProductID: "a", Quantity: 3}})
	assert.Equal(t, map[string]int{"a": 5}, req)
}
