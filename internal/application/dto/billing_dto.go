package dto

import "github.com/shopspring/decimal"

// BatchInvoiceRequest petición de tanda de facturación de una actividad.
type BatchInvoiceRequest struct {
	InvoiceType    string   `json:"invoice_type"`
	ParticipantIDs []string `json:"participant_ids"` // vacío = todos los elegibles
}

// ItemErrorDTO error atribuible de la tanda.
type ItemErrorDTO struct {
	ParticipantID string `json:"participant_id,omitempty"`
	ClientID      string `json:"client_id,omitempty"`
	Name          string `json:"name,omitempty"`
	Kind          string `json:"kind"`
	Message       string `json:"message"`
}

// InvoiceSummary resumen de una factura generada.
type InvoiceSummary struct {
	ID              string          `json:"id"`
	FormattedNumber string          `json:"number"`
	ClientID        string          `json:"client_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DocumentURL     string          `json:"document_url,omitempty"`
}

// BatchInvoiceResponse resultado de la tanda. Outcome: "all_succeeded",
// "partially_succeeded", "failed" (hubo intentos y ninguno emitió) o
// "failed_before_starting" (fallo sistémico previo al bucle).
type BatchInvoiceResponse struct {
	Outcome          string           `json:"outcome"`
	SuccessCount     int              `json:"success_count"`
	Errors           []ItemErrorDTO   `json:"errors"`
	Invoices         []InvoiceSummary `json:"invoices"`
	ArchiveAvailable bool             `json:"archive_available"`
}

// ExclusionDTO participante excluido del conjunto facturable, con el motivo.
type ExclusionDTO struct {
	ParticipantID string   `json:"participant_id"`
	ClientID      string   `json:"client_id"`
	Name          string   `json:"name,omitempty"`
	Reason        string   `json:"reason"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// BatchPreviewResponse resultado del filtro de elegibilidad/deduplicación.
type BatchPreviewResponse struct {
	EligibleParticipantIDs []string       `json:"eligible_participant_ids"`
	Excluded               []ExclusionDTO `json:"excluded"`
}

// CreateInvoiceRequest factura individual (camino no grupal).
type CreateInvoiceRequest struct {
	ClientID    string          `json:"client_id"`
	ServiceID   string          `json:"service_id"`
	InvoiceType string          `json:"invoice_type"`
	Quantity    decimal.Decimal `json:"quantity"`
	DiscountPct decimal.Decimal `json:"discount_pct"`
	Notes       string          `json:"notes"`
	Profile     ProfileDTO      `json:"profile"`
}

// ProfileDTO datos fiscales del cliente aportados por el caller.
type ProfileDTO struct {
	Name       string `json:"name"`
	TaxID      string `json:"tax_id"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Province   string `json:"province"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// InvoiceResponse detalle de una factura creada.
type InvoiceResponse struct {
	ID              string          `json:"id"`
	OrganizationID  string          `json:"organization_id"`
	ClientID        string          `json:"client_id"`
	ActivityID      string          `json:"activity_id,omitempty"`
	Type            string          `json:"type"`
	FormattedNumber string          `json:"number"`
	IssueDate       string          `json:"issue_date"`
	BaseAmount      decimal.Decimal `json:"base_amount"`
	VATAmount       decimal.Decimal `json:"vat_amount"`
	IRPFAmount      decimal.Decimal `json:"irpf_amount"`
	RetentionAmount decimal.Decimal `json:"retention_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Notes           string          `json:"notes,omitempty"`
	DocumentURL     string          `json:"document_url,omitempty"`
}
