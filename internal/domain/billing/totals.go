package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tarifas de IVA admitidas.
var validTaxRates = []decimal.Decimal{
	decimal.Zero,
	decimal.NewFromFloat(0.05),
	decimal.NewFromFloat(0.19),
}

// ValidTaxRate indica si rate es una tarifa de IVA admitida.
func ValidTaxRate(rate decimal.Decimal) bool {
	for _, r := range validTaxRates {
		if rate.Equal(r) {
			return true
		}
	}
	return false
}

// NormalizeTaxRate acepta la tarifa como fracción (0.19) o como porcentaje (19).
func NormalizeTaxRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.Div(decimal.NewFromInt(100))
	}
	return rate
}

// Totals totales de una factura.
type Totals struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Grand decimal.Decimal
}

// LineSubtotal cantidad × precio unitario, redondeado a 2 decimales.
func LineSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Accumulate suma una línea a los totales.
func (t Totals) Accumulate(subtotal, taxRate decimal.Decimal) Totals {
	tax := subtotal.Mul(taxRate).Round(2)
	t.Net = t.Net.Add(subtotal)
	t.Tax = t.Tax.Add(tax)
	t.Grand = t.Net.Add(t.Tax)
	return t
}

// FormatNumber número de factura legible: PREFIJO-consecutivo.
func FormatNumber(prefix, seq string) string {
	if prefix == "" {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%s", prefix, seq)
}
