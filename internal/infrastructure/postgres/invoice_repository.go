package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/clinica-pro/internal/domain"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la cabecera de la factura. Los índices únicos de la tabla
// respaldan los dos invariantes del pipeline: (organización, tipo, número)
// y (actividad, cliente).
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO invoices
			(id, organization_id, client_id, activity_id, invoice_type, number, formatted_number,
			 issue_date, base_amount, vat_amount, irpf_amount, retention_amount, total_amount,
			 notes, document_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, q,
		inv.ID, inv.OrganizationID, inv.ClientID, nullIfEmpty(inv.ActivityID),
		string(inv.Type), inv.Number, inv.FormattedNumber,
		inv.IssueDate, inv.BaseAmount, inv.VATAmount, inv.IRPFAmount, inv.RetentionAmount,
		inv.TotalAmount, nullIfEmpty(inv.Notes), nullIfEmpty(inv.DocumentURL), inv.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateLine persiste una línea de detalle.
func (r *InvoiceRepo) CreateLine(ctx context.Context, line *entity.InvoiceLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO invoice_lines (id, invoice_id, description, quantity, unit_price, discount_pct, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, q,
		line.ID, line.InvoiceID, line.Description, line.Quantity, line.UnitPrice,
		line.DiscountPct, line.Amount,
	)
	if err != nil {
		return fmt.Errorf("insert invoice line: %w", err)
	}
	return nil
}

// GetByID obtiene una factura completa por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	const q = `
		SELECT id, organization_id, client_id, COALESCE(activity_id, ''), invoice_type,
		       number, formatted_number, issue_date,
		       base_amount, vat_amount, irpf_amount, retention_amount, total_amount,
		       COALESCE(notes, ''), COALESCE(document_url, ''), created_at
		FROM invoices WHERE id = $1`
	var inv entity.Invoice
	var invType string
	err := r.q.QueryRow(ctx, q, id).Scan(
		&inv.ID, &inv.OrganizationID, &inv.ClientID, &inv.ActivityID, &invType,
		&inv.Number, &inv.FormattedNumber, &inv.IssueDate,
		&inv.BaseAmount, &inv.VATAmount, &inv.IRPFAmount, &inv.RetentionAmount, &inv.TotalAmount,
		&inv.Notes, &inv.DocumentURL, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.Type = entity.InvoiceType(invType)
	return &inv, nil
}

// GetLinesByInvoiceID obtiene todas las líneas de una factura.
func (r *InvoiceRepo) GetLinesByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	const q = `
		SELECT id, invoice_id, description, quantity, unit_price, discount_pct, amount
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, q, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceLine
	for rows.Next() {
		var l entity.InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Description, &l.Quantity, &l.UnitPrice, &l.DiscountPct, &l.Amount); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// FindByActivityAndClients consulta de deduplicación de la tanda: clientes del
// conjunto candidato que ya tienen factura para la actividad.
func (r *InvoiceRepo) FindByActivityAndClients(ctx context.Context, activityID string, clientIDs []string) ([]entity.BilledClient, error) {
	if len(clientIDs) == 0 {
		return nil, nil
	}
	const q = `
		SELECT client_id, id, formatted_number
		FROM invoices
		WHERE activity_id = $1 AND client_id = ANY($2)`
	rows, err := r.q.Query(ctx, q, activityID, clientIDs)
	if err != nil {
		return nil, fmt.Errorf("find invoices by activity and clients: %w", err)
	}
	defer rows.Close()
	var list []entity.BilledClient
	for rows.Next() {
		var b entity.BilledClient
		if err := rows.Scan(&b.ClientID, &b.InvoiceID, &b.FormattedNumber); err != nil {
			return nil, fmt.Errorf("scan billed client: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// AttachDocumentURL adjunta la URL del PDF subido (única mutación permitida
// tras el insert; best-effort para el caller).
func (r *InvoiceRepo) AttachDocumentURL(ctx context.Context, invoiceID, url string) error {
	const q = `UPDATE invoices SET document_url = $2 WHERE id = $1`
	if _, err := r.q.Exec(ctx, q, invoiceID, url); err != nil {
		return fmt.Errorf("attach document url: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
