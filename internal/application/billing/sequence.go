package billing

import (
	"context"
	"fmt"

	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
)

// Allocation resultado de asignar un número de factura.
type Allocation struct {
	Number    int64
	Formatted string // prefijo de la organización + número con ceros
}

// SequenceAllocator asigna números de factura únicos y monotónicos por
// (organización, tipo). La garantía de unicidad bajo concurrencia la da el
// CounterRepository con su incremento atómico; este componente solo añade el
// formato. Si el incremento falla, no hay número asignado: el contador queda
// exactamente como estaba.
type SequenceAllocator struct {
	counters repository.CounterRepository
}

// NewSequenceAllocator construye el asignador sobre el contador dado (pool o tx).
func NewSequenceAllocator(counters repository.CounterRepository) *SequenceAllocator {
	return &SequenceAllocator{counters: counters}
}

// Allocate asigna el siguiente número para la organización y tipo dados.
func (a *SequenceAllocator) Allocate(ctx context.Context, org *entity.Organization, t entity.InvoiceType) (Allocation, error) {
	n, err := a.counters.AtomicIncrement(ctx, org.ID, t)
	if err != nil {
		return Allocation{}, fmt.Errorf("asignar número de factura (%s, %s): %w", org.ID, t, err)
	}
	return Allocation{Number: n, Formatted: FormatNumber(org, t, n)}, nil
}

// FormatNumber aplica el prefijo y el relleno con ceros configurados en la
// organización. Con padding 6: "FAC-" + 123 → "FAC-000123".
func FormatNumber(org *entity.Organization, t entity.InvoiceType, n int64) string {
	pad := org.NumberPadding
	if pad <= 0 {
		pad = 6
	}
	return fmt.Sprintf("%s%0*d", org.PrefixFor(t), pad, n)
}
