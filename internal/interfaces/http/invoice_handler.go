package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/clinica-pro/internal/application/billing"
	"github.com/tu-usuario/clinica-pro/internal/application/dto"
	"github.com/tu-usuario/clinica-pro/internal/domain"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
)

// InvoiceHandler maneja las facturas individuales fuera de tandas (protegido).
type InvoiceHandler struct {
	uc *billing.CreateInvoiceUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(uc *billing.CreateInvoiceUseCase) *InvoiceHandler {
	return &InvoiceHandler{uc: uc}
}

// Create crea una factura individual con numeración secuencial.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)
	if orgID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	invoiceType := entity.InvoiceType(in.InvoiceType)
	if in.InvoiceType == "" {
		invoiceType = entity.InvoiceTypeNormal
	}
	inv, err := h.uc.Create(c.Context(), orgID, billing.SingleInvoiceInput{
		ClientID:    in.ClientID,
		ServiceID:   in.ServiceID,
		InvoiceType: invoiceType,
		Quantity:    in.Quantity,
		DiscountPct: in.DiscountPct,
		Notes:       in.Notes,
		Profile: entity.BillingProfile{
			ClientID:   in.ClientID,
			Name:       in.Profile.Name,
			TaxID:      in.Profile.TaxID,
			Address:    in.Profile.Address,
			PostalCode: in.Profile.PostalCode,
			City:       in.Profile.City,
			Province:   in.Profile.Province,
			Email:      in.Profile.Email,
			Phone:      in.Profile.Phone,
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "servicio no encontrado"})
		}
		if errors.Is(err, domain.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(toInvoiceResponse(inv))
}

// GetByID obtiene el detalle de una factura de la organización.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)
	if orgID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	inv, _, err := h.uc.Get(c.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "factura no encontrada"})
		}
		if errors.Is(err, domain.ErrForbidden) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(toInvoiceResponse(inv))
}

func toInvoiceResponse(inv *entity.Invoice) dto.InvoiceResponse {
	return dto.InvoiceResponse{
		ID:              inv.ID,
		OrganizationID:  inv.OrganizationID,
		ClientID:        inv.ClientID,
		ActivityID:      inv.ActivityID,
		Type:            string(inv.Type),
		FormattedNumber: inv.FormattedNumber,
		IssueDate:       inv.IssueDate.Format("2006-01-02"),
		BaseAmount:      inv.BaseAmount,
		VATAmount:       inv.VATAmount,
		IRPFAmount:      inv.IRPFAmount,
		RetentionAmount: inv.RetentionAmount,
		TotalAmount:     inv.TotalAmount,
		Notes:           inv.Notes,
		DocumentURL:     inv.DocumentURL,
	}
}
