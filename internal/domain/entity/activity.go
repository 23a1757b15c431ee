package entity

import "time"

// Estados de un participante en una actividad grupal.
const (
	ParticipantRegistered = "registered"
	ParticipantAttended   = "attended"
	ParticipantCancelled  = "cancelled"
	ParticipantNoShow     = "no_show"
)

// GroupActivity representa una actividad grupal de la clínica (taller, sesión
// colectiva) con un servicio asociado que determina precio e impuestos.
type GroupActivity struct {
	ID             string
	OrganizationID string
	ServiceID      string
	ProfessionalID string
	Title          string
	StartsAt       time.Time
	EndsAt         time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Participant representa la inscripción de un cliente en una actividad grupal.
// Profile puede ser nil si el cliente aún no tiene datos de facturación.
type Participant struct {
	ID         string
	ActivityID string
	ClientID   string
	Status     string // registered | attended | cancelled | no_show
	Profile    *BillingProfile
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
