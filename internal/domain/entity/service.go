package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service representa un servicio facturable de la clínica (ej: "Taller grupal
// de fisioterapia"). El precio y los tipos impositivos se aplican de manera
// uniforme a todas las facturas generadas en una tanda.
type Service struct {
	ID             string
	OrganizationID string
	Name           string
	Price          decimal.Decimal // precio unitario sin impuestos
	VATRate        decimal.Decimal // IVA en porcentaje (ej: 21)
	IRPFRate       decimal.Decimal // retención IRPF en porcentaje
	RetentionRate  decimal.Decimal // otras retenciones en porcentaje
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
