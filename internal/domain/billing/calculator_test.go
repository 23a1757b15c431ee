package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tu-usuario/clinica-pro/internal/domain/billing"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// TestCalculateLine_SesionConIVA valida el caso base: una sesión de 50.00 €
// con IVA 21% y sin retenciones debe producir un total de 60.50 €.
func TestCalculateLine_SesionConIVA(t *testing.T) {
	amounts := billing.CalculateLine(d("50.00"), d("1"), decimal.Zero, d("21"), decimal.Zero, decimal.Zero)

	assert.True(t, d("50.00").Equal(amounts.BaseAmount), "la base debe ser 50.00, fue %s", amounts.BaseAmount)
	assert.True(t, d("10.50").Equal(amounts.VATAmount), "el IVA debe ser 10.50, fue %s", amounts.VATAmount)
	assert.True(t, amounts.IRPFAmount.IsZero(), "sin tipo IRPF no debe haber IRPF")
	assert.True(t, amounts.RetentionAmount.IsZero(), "sin tipo de retención no debe haber retención")
	assert.True(t, d("60.50").Equal(amounts.TotalAmount), "el total debe ser 60.50, fue %s", amounts.TotalAmount)
}

// TestCalculateLine_DescuentoPorcentual verifica que el descuento se aplica
// sobre el subtotal antes de impuestos.
func TestCalculateLine_DescuentoPorcentual(t *testing.T) {
	// 2 × 40.00 = 80.00; 25% de descuento → base 60.00; IVA 21% → 12.60
	amounts := billing.CalculateLine(d("40.00"), d("2"), d("25"), d("21"), decimal.Zero, decimal.Zero)

	assert.True(t, d("80.00").Equal(amounts.Subtotal), "subtotal = cantidad × precio")
	assert.True(t, d("20.00").Equal(amounts.DiscountAmount), "el descuento debe ser 20.00")
	assert.True(t, d("60.00").Equal(amounts.BaseAmount), "la base descuenta antes de impuestos")
	assert.True(t, d("12.60").Equal(amounts.VATAmount))
	assert.True(t, d("72.60").Equal(amounts.TotalAmount))
}

// TestCalculateLine_IRPFYRetencion verifica que IRPF y retención restan del
// total mientras el IVA suma.
func TestCalculateLine_IRPFYRetencion(t *testing.T) {
	// base 100.00; IVA 21 → +21.00; IRPF 15 → −15.00; retención 2 → −2.00
	amounts := billing.CalculateLine(d("100.00"), d("1"), decimal.Zero, d("21"), d("15"), d("2"))

	assert.True(t, d("21.00").Equal(amounts.VATAmount))
	assert.True(t, d("15.00").Equal(amounts.IRPFAmount))
	assert.True(t, d("2.00").Equal(amounts.RetentionAmount))
	assert.True(t, d("104.00").Equal(amounts.TotalAmount),
		"total = base + IVA − IRPF − retención = 104.00, fue %s", amounts.TotalAmount)
}

// TestCalculateLine_RedondeoADosDecimales verifica que cada importe se
// redondea a 2 decimales en el momento del cálculo, no al final.
func TestCalculateLine_RedondeoADosDecimales(t *testing.T) {
	// 3 × 33.333 = 99.999 → subtotal 100.00; IVA 21% → 21.00
	amounts := billing.CalculateLine(d("33.333"), d("3"), decimal.Zero, d("21"), decimal.Zero, decimal.Zero)

	assert.True(t, d("100.00").Equal(amounts.Subtotal), "el subtotal se redondea a 2 decimales")
	assert.GreaterOrEqual(t, amounts.VATAmount.Exponent(), int32(-2), "el IVA nunca lleva más de 2 decimales")
	assert.True(t, d("21.00").Equal(amounts.VATAmount))
}

// TestCalculateLine_CuadraturaSobreValoresRedondeados verifica que la
// identidad base + IVA − IRPF − retención = total cuadra exactamente sobre
// los importes ya redondeados, con importes que fuerzan redondeo.
func TestCalculateLine_CuadraturaSobreValoresRedondeados(t *testing.T) {
	casos := []struct {
		precio, cantidad, descuento, iva, irpf, retencion string
	}{
		{"19.99", "3", "0", "21", "0", "0"},
		{"7.77", "7", "12.5", "10", "15", "2"},
		{"0.01", "1", "0", "21", "0", "0"},
		{"123.45", "2", "33.33", "4", "7", "1"},
	}
	tolerancia := d("0.01")

	for _, c := range casos {
		amounts := billing.CalculateLine(d(c.precio), d(c.cantidad), d(c.descuento), d(c.iva), d(c.irpf), d(c.retencion))

		recomputado := amounts.BaseAmount.Add(amounts.VATAmount).Sub(amounts.IRPFAmount).Sub(amounts.RetentionAmount)
		diff := amounts.TotalAmount.Sub(recomputado).Abs()
		assert.True(t, diff.LessThanOrEqual(tolerancia),
			"la cuadratura debe ser exacta (±0.01) para precio=%s cantidad=%s: diff=%s", c.precio, c.cantidad, diff)
	}
}

// TestCalculateLine_CantidadCero produce importes a cero sin errores.
func TestCalculateLine_CantidadCero(t *testing.T) {
	amounts := billing.CalculateLine(d("50.00"), decimal.Zero, decimal.Zero, d("21"), decimal.Zero, decimal.Zero)

	assert.True(t, amounts.BaseAmount.IsZero())
	assert.True(t, amounts.TotalAmount.IsZero())
}
