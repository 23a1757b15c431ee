package billing

import "github.com/tu-usuario/clinica-pro/internal/domain/entity"

// Nombres de campos obligatorios del perfil de facturación, tal como se
// reportan en MissingFields (para que la UI pueda señalarlos).
const (
	FieldName       = "name"
	FieldTaxID      = "tax_id"
	FieldAddress    = "address"
	FieldPostalCode = "postal_code"
	FieldCity       = "city"
)

// ValidateProfile evalúa de una sola vez la completitud del perfil de
// facturación. Devuelve ok=false y la lista de campos que faltan si el perfil
// es nil o le falta algún campo obligatorio (email y teléfono son opcionales).
func ValidateProfile(p *entity.BillingProfile) (ok bool, missing []string) {
	if p == nil {
		return false, []string{FieldName, FieldTaxID, FieldAddress, FieldPostalCode, FieldCity}
	}
	if p.Name == "" {
		missing = append(missing, FieldName)
	}
	if p.TaxID == "" {
		missing = append(missing, FieldTaxID)
	}
	if p.Address == "" {
		missing = append(missing, FieldAddress)
	}
	if p.PostalCode == "" {
		missing = append(missing, FieldPostalCode)
	}
	if p.City == "" {
		missing = append(missing, FieldCity)
	}
	return len(missing) == 0, missing
}

// IsBillableStatus indica si el estado del participante permite facturarlo.
// Solo se facturan inscritos y asistentes; cancelados y ausentes quedan fuera.
func IsBillableStatus(status string) bool {
	return status == entity.ParticipantAttended || status == entity.ParticipantRegistered
}

// StructurallyEligible combina estado y completitud del perfil: la primera
// etapa del filtro de elegibilidad, previa a la deduplicación contra la DB.
func StructurallyEligible(p *entity.Participant) (ok bool, missing []string) {
	if !IsBillableStatus(p.Status) {
		return false, nil
	}
	return ValidateProfile(p.Profile)
}
