package billing

import (
	"context"
	"fmt"

	domainbilling "github.com/tu-usuario/clinica-pro/internal/domain/billing"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
)

// Motivos de exclusión de un participante del conjunto facturable.
const (
	ExclusionStatus            = "status"             // estado no facturable (cancelado, ausente)
	ExclusionIncompleteProfile = "incomplete_profile" // faltan campos fiscales obligatorios
	ExclusionAlreadyBilled     = "already_billed"     // ya existe factura para (actividad, cliente)
)

// Exclusion participante excluido con su motivo, para mostrar en la UI.
type Exclusion struct {
	Participant   *entity.Participant
	Reason        string
	MissingFields []string // solo con ExclusionIncompleteProfile
}

// Preview resultado del filtro de elegibilidad y deduplicación: el subconjunto
// facturable y los excluidos anotados. Siembra la selección por defecto y
// delimita lo que el orquestador intentará facturar.
type Preview struct {
	Eligible []*entity.Participant
	Excluded []Exclusion
}

// EligibleIDs devuelve los IDs de participante del subconjunto facturable.
func (p *Preview) EligibleIDs() []string {
	ids := make([]string, 0, len(p.Eligible))
	for _, part := range p.Eligible {
		ids = append(ids, part.ID)
	}
	return ids
}

// EligibilityFilter filtro en dos etapas: elegibilidad estructural (estado +
// perfil completo, pura) y deduplicación contra las facturas ya emitidas de la
// actividad. La clave de deduplicación es (actividad, cliente).
type EligibilityFilter struct {
	invoices repository.InvoiceRepository
}

// NewEligibilityFilter construye el filtro.
func NewEligibilityFilter(invoices repository.InvoiceRepository) *EligibilityFilter {
	return &EligibilityFilter{invoices: invoices}
}

// Filter aplica las dos etapas sobre la lista de participantes de la actividad.
// La consulta de deduplicación solo incluye a los clientes que pasaron la
// etapa estructural; un cliente ya facturado queda excluido aunque su perfil
// sea perfecto.
func (f *EligibilityFilter) Filter(ctx context.Context, activityID string, participants []*entity.Participant) (*Preview, error) {
	preview := &Preview{}

	candidates := make([]*entity.Participant, 0, len(participants))
	clientIDs := make([]string, 0, len(participants))
	for _, p := range participants {
		if !domainbilling.IsBillableStatus(p.Status) {
			preview.Excluded = append(preview.Excluded, Exclusion{Participant: p, Reason: ExclusionStatus})
			continue
		}
		if ok, missing := domainbilling.ValidateProfile(p.Profile); !ok {
			preview.Excluded = append(preview.Excluded, Exclusion{
				Participant: p, Reason: ExclusionIncompleteProfile, MissingFields: missing,
			})
			continue
		}
		candidates = append(candidates, p)
		clientIDs = append(clientIDs, p.ClientID)
	}

	if len(candidates) == 0 {
		return preview, nil
	}

	billed, err := f.invoices.FindByActivityAndClients(ctx, activityID, clientIDs)
	if err != nil {
		return nil, fmt.Errorf("consultar facturas existentes de la actividad %s: %w", activityID, err)
	}
	billedSet := make(map[string]struct{}, len(billed))
	for _, b := range billed {
		billedSet[b.ClientID] = struct{}{}
	}

	for _, p := range candidates {
		if _, ok := billedSet[p.ClientID]; ok {
			preview.Excluded = append(preview.Excluded, Exclusion{Participant: p, Reason: ExclusionAlreadyBilled})
			continue
		}
		preview.Eligible = append(preview.Eligible, p)
	}
	return preview, nil
}
