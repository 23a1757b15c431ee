package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/clinica-pro/internal/domain"
	domainbilling "github.com/tu-usuario/clinica-pro/internal/domain/billing"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
	"github.com/tu-usuario/clinica-pro/pkg/logger"
)

// BatchRequest parámetros de una tanda de facturación de actividad grupal.
type BatchRequest struct {
	OrganizationID string
	ActivityID     string
	InvoiceType    entity.InvoiceType
	// ParticipantIDs subconjunto seleccionado por la UI; vacío = todos los
	// elegibles. El filtro de elegibilidad manda en cualquier caso: un ID
	// seleccionado pero no elegible simplemente no se intenta.
	ParticipantIDs []string
}

// RunOptions colaboradores opcionales de una tanda.
type RunOptions struct {
	Observer  Observer        // eventos de progreso; nil = sin notificaciones
	Selection *SelectionState // vista de selección de la UI a mantener sincronizada
	Stop      *StopFlag       // parada cooperativa entre participantes
}

// BatchResult resultado estructurado de la tanda. Documents conserva los
// buffers renderizados para poder reintentar solo el empaquetado (Repack) sin
// volver a facturar a nadie.
type BatchResult struct {
	SuccessCount int
	Errors       []ItemError
	Invoices     []*entity.Invoice
	Documents    []ArchiveEntry
	Archive      []byte // nil si no se produjo ningún documento o el empaquetado falló
}

// producedInvoice factura persistida pendiente de documento.
type producedInvoice struct {
	participant *entity.Participant
	invoice     *entity.Invoice
	lines       []*entity.InvoiceLine
}

// stepError error de un sub-paso del bucle con su clasificación.
type stepError struct {
	kind ErrorKind
	err  error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// BatchInvoiceUseCase orquesta la tanda de facturación de una actividad grupal:
//
//	validating → generating → creating_documents → creating_archive → completed
//
// Una factura secuencial por participante elegible, sin facturar dos veces a
// ningún cliente entre tandas repetidas, con los fallos por participante
// aislados (la tanda nunca aborta por un ítem) y los documentos resultantes
// empaquetados en un único archivo descargable.
//
// Los participantes se procesan secuencialmente, uno a uno: mantiene simple la
// asignación de números y acota las llamadas de render/subida en vuelo. Varias
// tandas independientes pueden correr a la vez; el único recurso compartido es
// el contador por (organización, tipo), protegido por el incremento atómico
// del almacén.
type BatchInvoiceUseCase struct {
	txRunner    BatchTxRunner
	orgRepo     repository.OrganizationRepository
	rosterRepo  repository.RosterRepository
	invoiceRepo repository.InvoiceRepository
	filter      *EligibilityFilter
	renderer    DocumentRenderer
	blobs       BlobStore
	archiver    Archiver
	log         *logger.Logger
}

// NewBatchInvoiceUseCase construye el orquestador con todas sus dependencias.
// blobs puede ser nil (no se suben documentos; el archivo se genera igual).
func NewBatchInvoiceUseCase(
	txRunner BatchTxRunner,
	orgRepo repository.OrganizationRepository,
	rosterRepo repository.RosterRepository,
	invoiceRepo repository.InvoiceRepository,
	renderer DocumentRenderer,
	blobs BlobStore,
	archiver Archiver,
	log *logger.Logger,
) *BatchInvoiceUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &BatchInvoiceUseCase{
		txRunner:    txRunner,
		orgRepo:     orgRepo,
		rosterRepo:  rosterRepo,
		invoiceRepo: invoiceRepo,
		filter:      NewEligibilityFilter(invoiceRepo),
		renderer:    renderer,
		blobs:       blobs,
		archiver:    archiver,
		log:         log,
	}
}

// Preview aplica el filtro de elegibilidad y deduplicación sin facturar nada.
// Lo usa la UI para sembrar la selección por defecto y anotar los excluidos.
func (uc *BatchInvoiceUseCase) Preview(ctx context.Context, orgID, activityID string) (*Preview, error) {
	activity, err := uc.rosterRepo.GetActivity(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("obtener actividad %s: %w", activityID, err)
	}
	if activity == nil {
		return nil, domain.ErrNotFound
	}
	if activity.OrganizationID != orgID {
		return nil, domain.ErrForbidden
	}
	participants, err := uc.rosterRepo.ListParticipants(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("listar participantes de %s: %w", activityID, err)
	}
	return uc.filter.Filter(ctx, activityID, participants)
}

// Run ejecuta la tanda completa. Los errores por participante se acumulan en
// el resultado y nunca abortan el bucle; solo un fallo sistémico (contexto
// previo ilegible) devuelve error y deja la tanda en fase "error". La fase
// terminal es "completed" incluso con lista de errores no vacía.
func (uc *BatchInvoiceUseCase) Run(ctx context.Context, in BatchRequest, opts RunOptions) (*BatchResult, error) {
	state := newRunState(opts.Observer)
	state.setPhase(PhaseValidating)

	if !in.InvoiceType.Valid() {
		state.setPhase(PhaseError)
		return nil, fmt.Errorf("%w: tipo de factura %q", domain.ErrInvalidInput, in.InvoiceType)
	}

	// ── Contexto previo: organización, actividad, servicio, roster ────────────
	// Cualquier fallo aquí es sistémico: aborta antes de procesar a nadie.
	org, err := uc.orgRepo.GetByID(ctx, in.OrganizationID)
	if err != nil || org == nil {
		state.setPhase(PhaseError)
		return nil, systemic("obtener organización "+in.OrganizationID, err)
	}
	activity, err := uc.rosterRepo.GetActivity(ctx, in.ActivityID)
	if err != nil || activity == nil {
		state.setPhase(PhaseError)
		return nil, systemic("obtener actividad "+in.ActivityID, err)
	}
	if activity.OrganizationID != org.ID {
		state.setPhase(PhaseError)
		return nil, domain.ErrForbidden
	}
	service, err := uc.rosterRepo.GetService(ctx, activity.ServiceID)
	if err != nil || service == nil {
		state.setPhase(PhaseError)
		return nil, systemic("obtener servicio "+activity.ServiceID, err)
	}
	participants, err := uc.rosterRepo.ListParticipants(ctx, in.ActivityID)
	if err != nil {
		state.setPhase(PhaseError)
		return nil, systemic("listar participantes de "+in.ActivityID, err)
	}

	preview, err := uc.filter.Filter(ctx, in.ActivityID, participants)
	if err != nil {
		state.setPhase(PhaseError)
		return nil, systemic("filtrar participantes", err)
	}

	targets := selectTargets(preview.Eligible, in.ParticipantIDs)

	// ── Fase generating: una factura por participante, secuencial ────────────
	state.setPhase(PhaseGenerating)
	result := &BatchResult{}
	var produced []producedInvoice
	billedClients := make(map[string]struct{}) // dedup dentro de la propia tanda

	for i, p := range targets {
		if opts.Stop.Stopped() {
			uc.log.Info().Str("activity_id", in.ActivityID).Int("remaining", len(targets)-i).
				Msg("parada solicitada; se omiten los participantes restantes")
			break
		}
		name := participantName(p)
		state.setItem(i+1, len(targets), name)

		// Re-comprobación: la selección de la UI puede haber cambiado durante
		// la tanda, y un mismo cliente puede aparecer dos veces en el roster.
		if _, dup := billedClients[p.ClientID]; dup {
			uc.log.Info().Str("participant_id", p.ID).Msg("cliente ya facturado en esta tanda; se omite")
			continue
		}
		if opts.Selection != nil && !opts.Selection.IsSelectable(p.ID) {
			continue
		}

		pi, err := uc.generateOne(ctx, org, activity, service, p, in.InvoiceType)
		if err != nil {
			result.Errors = appendStepError(result.Errors, state, p, name, err)
			continue
		}

		produced = append(produced, pi)
		result.Invoices = append(result.Invoices, pi.invoice)
		result.SuccessCount++
		billedClients[p.ClientID] = struct{}{}
		// Evento confirmado: la factura ya está persistida. Solo ahora se
		// actualizan la selección y el conjunto de deduplicación de la vista.
		if opts.Selection != nil {
			opts.Selection.MarkBilled(p.ID)
		}
		state.obs.OnParticipantBilled(p.ID, p.ClientID)
	}

	// ── Fase creating_documents: render + subida best-effort ─────────────────
	state.setPhase(PhaseCreatingDocuments)
	for i, pi := range produced {
		if opts.Stop.Stopped() {
			// Las facturas ya emitidas que se quedan sin documento se anotan
			// para que el resumen de la tanda las atribuya.
			for _, rest := range produced[i:] {
				e := ItemError{
					ParticipantID: rest.participant.ID,
					ClientID:      rest.participant.ClientID,
					Name:          participantName(rest.participant),
					Kind:          ErrorKindRender,
					Message:       "facturada sin documento: parada solicitada antes de generar el documento",
				}
				result.Errors = append(result.Errors, e)
				state.addError(e)
			}
			break
		}
		name := participantName(pi.participant)
		state.setItem(i+1, len(produced), name)

		data, err := uc.renderer.Render(ctx, pi.invoice, pi.lines, org, pi.participant.Profile)
		if err != nil {
			// Fallo blando: la factura ya es válida, solo queda sin documento
			// y fuera del archivo.
			result.Errors = append(result.Errors, ItemError{
				ParticipantID: pi.participant.ID,
				ClientID:      pi.participant.ClientID,
				Name:          name,
				Kind:          ErrorKindRender,
				Message:       fmt.Sprintf("facturada sin documento: %v", err),
			})
			state.addError(result.Errors[len(result.Errors)-1])
			continue
		}

		uc.uploadDocument(ctx, pi.invoice, data)

		result.Documents = append(result.Documents, ArchiveEntry{
			Filename: DocumentFilename(pi.invoice.FormattedNumber, pi.participant.Profile.Name),
			Data:     data,
		})
	}

	// ── Fase creating_archive ─────────────────────────────────────────────────
	// Se entra siempre tras intentar a todos; con cero documentos la tanda
	// termina igualmente en "completed" (las facturas persistidas valen por sí
	// mismas).
	state.setPhase(PhaseCreatingArchive)
	if len(result.Documents) > 0 {
		archive, err := uc.archiver.Pack(result.Documents, state.setArchivePct)
		if err != nil {
			e := ItemError{Kind: ErrorKindPackaging, Message: fmt.Sprintf("empaquetar archivo: %v", err)}
			result.Errors = append(result.Errors, e)
			state.addError(e)
		} else {
			result.Archive = archive
		}
	}

	state.setPhase(PhaseCompleted)
	uc.log.Info().
		Str("activity_id", in.ActivityID).
		Int("success", result.SuccessCount).
		Int("errors", len(result.Errors)).
		Int("documents", len(result.Documents)).
		Msg("tanda de facturación terminada")
	return result, nil
}

// Repack reintenta solo el empaquetado a partir de los buffers retenidos en el
// resultado, sin volver a facturar a nadie.
func (uc *BatchInvoiceUseCase) Repack(res *BatchResult, onProgress func(pct int)) error {
	if len(res.Documents) == 0 {
		return fmt.Errorf("%w: no hay documentos que empaquetar", domain.ErrInvalidInput)
	}
	if onProgress == nil {
		onProgress = func(int) {}
	}
	archive, err := uc.archiver.Pack(res.Documents, onProgress)
	if err != nil {
		return fmt.Errorf("reempaquetar archivo: %w", err)
	}
	res.Archive = archive
	return nil
}

// generateOne ejecuta los sub-pasos duros de un participante: asignación de
// número, cálculo financiero y persistencia de factura + línea, todo en una
// transacción. Si el insert falla el commit no ocurre y el número no queda
// consumido en el almacén; con un fallo posterior al commit del contador en
// almacenes no transaccionales el número se pierde (hueco tolerado).
func (uc *BatchInvoiceUseCase) generateOne(
	ctx context.Context,
	org *entity.Organization,
	activity *entity.GroupActivity,
	service *entity.Service,
	p *entity.Participant,
	invoiceType entity.InvoiceType,
) (producedInvoice, error) {
	var pi producedInvoice
	one := decimal.NewFromInt(1)

	err := uc.txRunner.RunInvoice(ctx, func(
		counters repository.CounterRepository,
		invoices repository.InvoiceRepository,
	) error {
		alloc, err := NewSequenceAllocator(counters).Allocate(ctx, org, invoiceType)
		if err != nil {
			return &stepError{kind: ErrorKindAllocation, err: err}
		}

		amounts := domainbilling.CalculateLine(service.Price, one, decimal.Zero, service.VATRate, service.IRPFRate, service.RetentionRate)

		now := time.Now()
		inv := &entity.Invoice{
			ID:              uuid.New().String(),
			OrganizationID:  org.ID,
			ClientID:        p.ClientID,
			ActivityID:      activity.ID,
			Type:            invoiceType,
			Number:          alloc.Number,
			FormattedNumber: alloc.Formatted,
			IssueDate:       now,
			BaseAmount:      amounts.BaseAmount,
			VATAmount:       amounts.VATAmount,
			IRPFAmount:      amounts.IRPFAmount,
			RetentionAmount: amounts.RetentionAmount,
			TotalAmount:     amounts.TotalAmount,
			Notes:           buildInvoiceNotes(p.Profile, activity, service),
			CreatedAt:       now,
		}
		line := &entity.InvoiceLine{
			ID:          uuid.New().String(),
			InvoiceID:   inv.ID,
			Description: fmt.Sprintf("%s — %s", service.Name, activity.Title),
			Quantity:    one,
			UnitPrice:   service.Price,
			DiscountPct: decimal.Zero,
			Amount:      amounts.BaseAmount,
		}

		if err := invoices.Create(ctx, inv); err != nil {
			return &stepError{kind: ErrorKindPersistence, err: err}
		}
		if err := invoices.CreateLine(ctx, line); err != nil {
			return &stepError{kind: ErrorKindPersistence, err: err}
		}

		pi = producedInvoice{participant: p, invoice: inv, lines: []*entity.InvoiceLine{line}}
		return nil
	})
	if err != nil {
		return producedInvoice{}, err
	}
	return pi, nil
}

// uploadDocument sube el PDF y adjunta su URL a la factura. Totalmente
// best-effort: cualquier fallo se registra y se sigue adelante (el buffer en
// memoria alimenta el archivo igualmente).
func (uc *BatchInvoiceUseCase) uploadDocument(ctx context.Context, inv *entity.Invoice, data []byte) {
	if uc.blobs == nil {
		return
	}
	path := fmt.Sprintf("invoices/%s/%s.pdf", inv.OrganizationID, inv.FormattedNumber)
	url, err := uc.blobs.Upload(ctx, data, path)
	if err != nil {
		uc.log.Warn().Str("invoice", inv.FormattedNumber).Err(err).Msg("subida del documento fallida")
		return
	}
	if err := uc.invoiceRepo.AttachDocumentURL(ctx, inv.ID, url); err != nil {
		uc.log.Warn().Str("invoice", inv.FormattedNumber).Err(err).Msg("no se pudo adjuntar la URL del documento")
		return
	}
	inv.DocumentURL = url
}

// ── helpers ───────────────────────────────────────────────────────────────────

func systemic(step string, err error) error {
	if err == nil {
		err = domain.ErrNotFound
	}
	return fmt.Errorf("fallo sistémico en %s: %w", step, err)
}

// selectTargets interseca los elegibles con la selección de la UI (vacía = todos).
func selectTargets(eligible []*entity.Participant, selectedIDs []string) []*entity.Participant {
	if len(selectedIDs) == 0 {
		return eligible
	}
	wanted := make(map[string]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		wanted[id] = struct{}{}
	}
	out := make([]*entity.Participant, 0, len(eligible))
	for _, p := range eligible {
		if _, ok := wanted[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func participantName(p *entity.Participant) string {
	if p.Profile != nil && p.Profile.Name != "" {
		return p.Profile.Name
	}
	return p.ClientID
}

// appendStepError clasifica el error del sub-paso y lo acumula.
func appendStepError(errs []ItemError, state *RunState, p *entity.Participant, name string, err error) []ItemError {
	kind := ErrorKindPersistence
	var se *stepError
	if errors.As(err, &se) {
		kind = se.kind
	}
	e := ItemError{
		ParticipantID: p.ID,
		ClientID:      p.ClientID,
		Name:          name,
		Kind:          kind,
		Message:       err.Error(),
	}
	state.addError(e)
	return append(errs, e)
}
