package billing

import (
	"context"

	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
)

// BatchTxRunner ejecuta una función dentro de una transacción que incluye el
// contador de numeración y el repositorio de facturas. Asignación de número y
// persistencia de la factura viajan juntas: si el insert falla, el commit no
// ocurre y el número no queda consumido en el almacén.
type BatchTxRunner interface {
	RunInvoice(ctx context.Context, fn func(
		counters repository.CounterRepository,
		invoices repository.InvoiceRepository,
	) error) error
}

// DocumentRenderer genera el documento (PDF) de una factura ya persistida.
// Es un colaborador opaco: un fallo aquí debe distinguirse de un fallo de
// persistencia (la factura sigue siendo válida sin documento).
type DocumentRenderer interface {
	Render(ctx context.Context, inv *entity.Invoice, lines []*entity.InvoiceLine,
		org *entity.Organization, profile *entity.BillingProfile) ([]byte, error)
}

// BlobStore sube el documento renderizado y devuelve su URL pública.
// Best-effort: un fallo se registra en el log y no afecta a la tanda.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, path string) (url string, err error)
}

// ArchiveEntry un documento dentro del archivo final de la tanda.
type ArchiveEntry struct {
	Filename string
	Data     []byte
}

// Archiver empaqueta los documentos de la tanda en un único archivo
// descargable. onProgress recibe el porcentaje acumulado (0–100); el cierre y
// compresión final se reporta en la banda 95–100.
type Archiver interface {
	Pack(entries []ArchiveEntry, onProgress func(pct int)) ([]byte, error)
}

// Observer recibe los eventos observables de una tanda en curso. El pipeline
// no opina sobre cómo se presentan (toasts, logs, websockets); la UI anfitriona
// decide. Todas las implementaciones deben ser baratas: se invocan en línea.
type Observer interface {
	OnPhase(phase Phase)
	OnItem(current, total int, name string)
	OnItemError(e ItemError)
	// OnParticipantBilled se emite solo tras confirmar la persistencia de la
	// factura, nunca de forma especulativa; es la señal con la que la vista de
	// selección retira al participante del conjunto seleccionable.
	OnParticipantBilled(participantID, clientID string)
	OnArchiveProgress(pct int)
}

// NopObserver implementación vacía para callers sin interés en el progreso.
type NopObserver struct{}

func (NopObserver) OnPhase(Phase)                 {}
func (NopObserver) OnItem(int, int, string)       {}
func (NopObserver) OnItemError(ItemError)         {}
func (NopObserver) OnParticipantBilled(_, _ string) {}
func (NopObserver) OnArchiveProgress(int)         {}
