package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/erp-api/internal/domain/billing"
)

func TestTotals_Accumulate(t *testing.T) {
	var tot billing.Totals
	tot = tot.Accumulate(billing.LineSubtotal(3, decimal.RequireFromString("10.50")), decimal.RequireFromString("0.19"))
	tot = tot.Accumulate(billing.LineSubtotal(1, decimal.RequireFromString("4")), decimal.Zero)

	assert.True(t, tot.Net.Equal(decimal.RequireFromString("35.50")), tot.Net.String())
	assert.True(t, tot.Tax.Equal(decimal.RequireFromString("5.99")), tot.Tax.String())
	assert.True(t, tot.Grand.Equal(decimal.RequireFromString("41.49")), tot.Grand.String())
}

func TestValidTaxRate(t *testing.T) {
	assert.True(t, billing.ValidTaxRate(decimal.RequireFromString("0.19")))
	assert.True(t, billing.ValidTaxRate(decimal.Zero))
	assert.False(t, billing.ValidTaxRate(decimal.RequireFromString("0.16")))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "INV-00a1", billing.FormatNumber("", "00a1"))
	assert.Equal(t, "FV-7", billing.FormatNumber("FV", "7"))
}

func TestNormalizeTaxRate(t *testing.T) {
	assert.True(t, billing.NormalizeTaxRate(decimal.NewFromInt(19)).Equal(decimal.RequireFromString("0.19")))
	assert.True(t, billing.NormalizeTaxRate(decimal.RequireFromString("0.05")).Equal(decimal.RequireFromString("0.05")))
	assert.True(t, billing.NormalizeTaxRate(decimal.Zero).IsZero())
}
