package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/clinica-pro/internal/domain"
	domainbilling "github.com/tu-usuario/clinica-pro/internal/domain/billing"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
)

// SingleInvoiceInput datos de una factura individual (camino no grupal). Los
// datos fiscales del cliente los aporta el caller: la gestión de clientes
// pertenece a otro módulo de la plataforma.
type SingleInvoiceInput struct {
	ClientID    string
	Profile     entity.BillingProfile
	ServiceID   string
	InvoiceType entity.InvoiceType
	Quantity    decimal.Decimal
	DiscountPct decimal.Decimal
	Notes       string
}

// CreateInvoiceUseCase crea una factura individual fuera de las tandas. Reúsa
// el mismo asignador de números y el mismo cálculo financiero que la tanda
// grupal para que la semántica fiscal sea idéntica en toda la plataforma.
type CreateInvoiceUseCase struct {
	txRunner    BatchTxRunner
	orgRepo     repository.OrganizationRepository
	rosterRepo  repository.RosterRepository
	invoiceRepo repository.InvoiceRepository // solo lecturas; las escrituras van por txRunner
}

// NewCreateInvoiceUseCase construye el caso de uso.
func NewCreateInvoiceUseCase(txRunner BatchTxRunner, orgRepo repository.OrganizationRepository, rosterRepo repository.RosterRepository, invoiceRepo repository.InvoiceRepository) *CreateInvoiceUseCase {
	return &CreateInvoiceUseCase{txRunner: txRunner, orgRepo: orgRepo, rosterRepo: rosterRepo, invoiceRepo: invoiceRepo}
}

// Get devuelve una factura comprobando que pertenece a la organización.
// El adaptador de lectura puede devolver (nil, nil) cuando no hay fila.
func (uc *CreateInvoiceUseCase) Get(ctx context.Context, orgID, invoiceID string) (*entity.Invoice, []*entity.InvoiceLine, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if inv == nil {
		return nil, nil, domain.ErrNotFound
	}
	if inv.OrganizationID != orgID {
		return nil, nil, domain.ErrForbidden
	}
	lines, err := uc.invoiceRepo.GetLinesByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, nil, err
	}
	return inv, lines, nil
}

// Create valida la entrada, asigna número y persiste factura + línea en una
// transacción. Mismo contrato de numeración que la tanda: sin commit no hay
// número consumido.
func (uc *CreateInvoiceUseCase) Create(ctx context.Context, orgID string, in SingleInvoiceInput) (*entity.Invoice, error) {
	if in.ClientID == "" || in.ServiceID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !in.InvoiceType.Valid() {
		return nil, fmt.Errorf("%w: tipo de factura %q", domain.ErrInvalidInput, in.InvoiceType)
	}
	if ok, missing := domainbilling.ValidateProfile(&in.Profile); !ok {
		return nil, fmt.Errorf("%w: faltan campos fiscales %v", domain.ErrInvalidInput, missing)
	}
	qty := in.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	if qty.IsNegative() || in.DiscountPct.IsNegative() {
		return nil, domain.ErrInvalidInput
	}

	org, err := uc.orgRepo.GetByID(ctx, orgID)
	if err != nil || org == nil {
		return nil, fmt.Errorf("obtener organización %s: %w", orgID, errOr(err, domain.ErrNotFound))
	}
	service, err := uc.rosterRepo.GetService(ctx, in.ServiceID)
	if err != nil || service == nil {
		return nil, fmt.Errorf("obtener servicio %s: %w", in.ServiceID, errOr(err, domain.ErrNotFound))
	}

	var inv *entity.Invoice
	err = uc.txRunner.RunInvoice(ctx, func(
		counters repository.CounterRepository,
		invoices repository.InvoiceRepository,
	) error {
		alloc, err := NewSequenceAllocator(counters).Allocate(ctx, org, in.InvoiceType)
		if err != nil {
			return err
		}
		amounts := domainbilling.CalculateLine(service.Price, qty, in.DiscountPct, service.VATRate, service.IRPFRate, service.RetentionRate)

		now := time.Now()
		inv = &entity.Invoice{
			ID:              uuid.New().String(),
			OrganizationID:  org.ID,
			ClientID:        in.ClientID,
			Type:            in.InvoiceType,
			Number:          alloc.Number,
			FormattedNumber: alloc.Formatted,
			IssueDate:       now,
			BaseAmount:      amounts.BaseAmount,
			VATAmount:       amounts.VATAmount,
			IRPFAmount:      amounts.IRPFAmount,
			RetentionAmount: amounts.RetentionAmount,
			TotalAmount:     amounts.TotalAmount,
			Notes:           in.Notes,
			CreatedAt:       now,
		}
		line := &entity.InvoiceLine{
			ID:          uuid.New().String(),
			InvoiceID:   inv.ID,
			Description: service.Name,
			Quantity:    qty,
			UnitPrice:   service.Price,
			DiscountPct: in.DiscountPct,
			Amount:      amounts.BaseAmount,
		}
		if err := invoices.Create(ctx, inv); err != nil {
			return fmt.Errorf("insertar factura: %w", err)
		}
		if err := invoices.CreateLine(ctx, line); err != nil {
			return fmt.Errorf("insertar línea: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func errOr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}
