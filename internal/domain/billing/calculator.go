// Package billing contiene la lógica de dominio pura de facturación:
// el cálculo financiero de líneas y las reglas de elegibilidad de
// participantes. Sin I/O ni dependencias de infraestructura.
package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineAmounts desglose financiero de una línea de factura.
// Todos los importes se redondean a 2 decimales en el momento del cálculo
// para que la cuadratura base + IVA − IRPF − retención = total sea exacta
// sobre los valores persistidos (tolerancia ±0.01).
type LineAmounts struct {
	Subtotal        decimal.Decimal // cantidad × precio unitario
	DiscountAmount  decimal.Decimal
	BaseAmount      decimal.Decimal // subtotal − descuento
	VATAmount       decimal.Decimal
	IRPFAmount      decimal.Decimal
	RetentionAmount decimal.Decimal
	TotalAmount     decimal.Decimal // base + IVA − IRPF − retención
}

// CalculateLine calcula el desglose de una línea a partir del precio unitario,
// la cantidad, el descuento y los tipos impositivos (todos en porcentaje).
// Es una función pura sin condiciones de error: el caller es responsable de
// sanear tipos negativos o absurdos antes de llamar.
//
// Esta función es la única fuente de semántica fiscal de la plataforma: la
// usan tanto la tanda de facturación grupal como la creación de factura
// individual, para que ambos caminos produzcan siempre los mismos importes.
func CalculateLine(unitPrice, quantity, discountPct, vatRate, irpfRate, retentionRate decimal.Decimal) LineAmounts {
	subtotal := quantity.Mul(unitPrice).Round(2)
	discount := subtotal.Mul(discountPct).Div(hundred).Round(2)
	base := subtotal.Sub(discount)
	vat := base.Mul(vatRate).Div(hundred).Round(2)
	irpf := base.Mul(irpfRate).Div(hundred).Round(2)
	retention := base.Mul(retentionRate).Div(hundred).Round(2)

	return LineAmounts{
		Subtotal:        subtotal,
		DiscountAmount:  discount,
		BaseAmount:      base,
		VATAmount:       vat,
		IRPFAmount:      irpf,
		RetentionAmount: retention,
		TotalAmount:     base.Add(vat).Sub(irpf).Sub(retention),
	}
}
