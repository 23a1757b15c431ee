package entity

import "time"

// InvoiceType tipo de factura; cada tipo lleva su propio consecutivo por organización.
type InvoiceType string

const (
	InvoiceTypeNormal     InvoiceType = "normal"
	InvoiceTypeSimplified InvoiceType = "simplified"
	InvoiceTypeRectifying InvoiceType = "rectifying"
)

// Valid indica si el tipo de factura es uno de los conocidos.
func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceTypeNormal, InvoiceTypeSimplified, InvoiceTypeRectifying:
		return true
	}
	return false
}

// Organization representa la clínica emisora de las facturas.
// Mantiene la configuración de numeración (prefijo y relleno con ceros) por
// tipo de factura; el valor del contador vive en la tabla invoice_counters.
type Organization struct {
	ID         string
	Name       string
	TaxID      string // NIF/CIF de la clínica
	Address    string
	PostalCode string
	City       string
	Province   string
	Email      string
	Phone      string

	PrefixNormal     string // ej: "FAC-"
	PrefixSimplified string // ej: "FS-"
	PrefixRectifying string // ej: "FR-"
	NumberPadding    int    // ancho del número con ceros a la izquierda (ej: 6 -> 000123)

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PrefixFor devuelve el prefijo configurado para el tipo de factura dado.
func (o *Organization) PrefixFor(t InvoiceType) string {
	switch t {
	case InvoiceTypeSimplified:
		return o.PrefixSimplified
	case InvoiceTypeRectifying:
		return o.PrefixRectifying
	default:
		return o.PrefixNormal
	}
}
