package repository

import (
	"context"

	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
)

// OrganizationRepository define el puerto de lectura de la organización emisora.
type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Organization, error)
}

// CounterRepository define el puerto del contador de numeración de facturas.
// Es el único recurso compartido entre tandas concurrentes, por lo que
// AtomicIncrement debe ser una actualización condicional atómica en el
// almacén (UPDATE condicional o CAS): dos llamadas concurrentes jamás pueden
// devolver el mismo valor, y un fallo jamás deja el contador avanzado.
type CounterRepository interface {
	ReadCounter(ctx context.Context, orgID string, t entity.InvoiceType) (int64, error)
	AtomicIncrement(ctx context.Context, orgID string, t entity.InvoiceType) (int64, error)
}
