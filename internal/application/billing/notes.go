package billing

import (
	"fmt"
	"strings"

	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
)

// buildInvoiceNotes compone el bloque de notas de la factura con los datos
// fiscales del cliente y el contexto de la actividad, tal como quedará impreso
// en el documento.
func buildInvoiceNotes(profile *entity.BillingProfile, activity *entity.GroupActivity, service *entity.Service) string {
	var b strings.Builder
	if profile != nil {
		fmt.Fprintf(&b, "Cliente: %s (NIF %s)\n", profile.Name, profile.TaxID)
		fmt.Fprintf(&b, "Domicilio: %s, %s %s", profile.Address, profile.PostalCode, profile.City)
		if profile.Province != "" {
			fmt.Fprintf(&b, " (%s)", profile.Province)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Actividad: %s — %s\n", activity.Title, activity.StartsAt.Format("02/01/2006"))
	fmt.Fprintf(&b, "Servicio: %s", service.Name)
	return b.String()
}
