package repository

import (
	"context"

	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para facturas y líneas.
// Las facturas son inmutables tras el insert; la única mutación permitida es
// AttachDocumentURL (best-effort tras subir el PDF al almacén de blobs).
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	CreateLine(ctx context.Context, line *entity.InvoiceLine) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetLinesByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error)

	// FindByActivityAndClients es la consulta de deduplicación de la tanda:
	// devuelve los clientes del conjunto candidato que ya tienen factura para
	// la actividad dada. Un cliente presente aquí nunca se vuelve a facturar.
	FindByActivityAndClients(ctx context.Context, activityID string, clientIDs []string) ([]entity.BilledClient, error)

	// AttachDocumentURL adjunta la URL del PDF subido. Best-effort: un fallo
	// aquí no invalida la factura.
	AttachDocumentURL(ctx context.Context, invoiceID, url string) error
}
