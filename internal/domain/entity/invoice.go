package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice representa la cabecera de una factura. Es inmutable una vez creada;
// el único cambio posterior permitido es adjuntar DocumentURL (best-effort).
type Invoice struct {
	ID              string
	OrganizationID  string
	ClientID        string
	ActivityID      string // vacío en facturas individuales (fuera de tandas)
	Type            InvoiceType
	Number          int64  // consecutivo por (organización, tipo)
	FormattedNumber string // prefijo + número con ceros (ej: "FAC-000123")
	IssueDate       time.Time
	BaseAmount      decimal.Decimal
	VATAmount       decimal.Decimal
	IRPFAmount      decimal.Decimal
	RetentionAmount decimal.Decimal
	TotalAmount     decimal.Decimal
	Notes           string // bloque con datos fiscales del cliente y contexto de la actividad
	DocumentURL     string // URL del PDF subido; vacío si la subida falló
	CreatedAt       time.Time
}

// InvoiceLine representa una línea de detalle de una factura.
// cantidad × precio unitario × (1 − descuento/100) es el importe antes de impuestos.
type InvoiceLine struct {
	ID          string
	InvoiceID   string
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	DiscountPct decimal.Decimal
	Amount      decimal.Decimal // importe de la línea antes de impuestos
}

// BilledClient resultado ligero de la consulta de deduplicación:
// qué clientes de una actividad ya tienen factura emitida.
type BilledClient struct {
	ClientID        string
	InvoiceID       string
	FormattedNumber string
}
