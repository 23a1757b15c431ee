package http

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/clinica-pro/internal/application/billing"
	"github.com/tu-usuario/clinica-pro/internal/application/dto"
	"github.com/tu-usuario/clinica-pro/internal/domain"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/pkg/logger"
)

// batchArtifact último resultado de tanda de una actividad, retenido en
// memoria para servir la descarga del archivo y reintentar el empaquetado.
// mu serializa el reintento: dos descargas concurrentes tras un fallo de
// empaquetado no deben escribir res.Archive a la vez.
type batchArtifact struct {
	mu        sync.Mutex
	res       *billing.BatchResult
	createdAt time.Time
}

// BatchInvoiceHandler maneja las peticiones HTTP de facturación por tandas
// de actividades grupales (protegido).
type BatchInvoiceHandler struct {
	uc  *billing.BatchInvoiceUseCase
	log *logger.Logger

	mu        sync.Mutex
	running   map[string]*billing.StopFlag // tanda en curso por actividad
	artifacts map[string]*batchArtifact    // último resultado por actividad
}

// NewBatchInvoiceHandler construye el handler.
func NewBatchInvoiceHandler(uc *billing.BatchInvoiceUseCase, log *logger.Logger) *BatchInvoiceHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &BatchInvoiceHandler{
		uc:        uc,
		log:       log,
		running:   make(map[string]*billing.StopFlag),
		artifacts: make(map[string]*batchArtifact),
	}
}

// Preview devuelve el conjunto facturable de la actividad y los excluidos
// con su motivo, sin emitir nada.
// GET /api/activities/:id/invoices/batch/preview
func (h *BatchInvoiceHandler) Preview(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)
	if orgID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	activityID := c.Params("id")
	if activityID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id de actividad requerido"})
	}
	preview, err := h.uc.Preview(c.Context(), orgID, activityID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(toPreviewResponse(preview))
}

// Run lanza la tanda de facturación de la actividad. Una sola tanda en curso
// por actividad; la petición responde cuando la tanda termina.
// POST /api/activities/:id/invoices/batch
func (h *BatchInvoiceHandler) Run(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)
	if orgID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	activityID := c.Params("id")
	if activityID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id de actividad requerido"})
	}
	var in dto.BatchInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	invoiceType := entity.InvoiceType(in.InvoiceType)
	if in.InvoiceType == "" {
		invoiceType = entity.InvoiceTypeNormal
	}
	if !invoiceType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: fmt.Sprintf("tipo de factura inválido: %q", in.InvoiceType)})
	}

	stop := &billing.StopFlag{}
	h.mu.Lock()
	if _, busy := h.running[activityID]; busy {
		h.mu.Unlock()
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "BATCH_RUNNING", Message: "ya hay una tanda en curso para esta actividad"})
	}
	h.running[activityID] = stop
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.running, activityID)
		h.mu.Unlock()
	}()

	obs := &logObserver{log: h.log, activityID: activityID}
	res, err := h.uc.Run(c.Context(), billing.BatchRequest{
		OrganizationID: orgID,
		ActivityID:     activityID,
		InvoiceType:    invoiceType,
		ParticipantIDs: in.ParticipantIDs,
	}, billing.RunOptions{Observer: obs, Stop: stop})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
			return h.mapError(c, err)
		}
		// Fallo sistémico: la tanda no llegó a facturar a nadie.
		h.log.Error().Err(err).Str("activity_id", activityID).Msg("tanda abortada antes de empezar")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.BatchInvoiceResponse{
			Outcome: "failed_before_starting",
			Errors:  []dto.ItemErrorDTO{{Kind: string(billing.ErrorKindSystemic), Message: err.Error()}},
		})
	}

	h.mu.Lock()
	h.artifacts[activityID] = &batchArtifact{res: res, createdAt: time.Now()}
	h.mu.Unlock()

	return c.JSON(toBatchResponse(res))
}

// Stop solicita la parada cooperativa de la tanda en curso. El participante
// que se esté procesando termina; los restantes no se intentan.
// POST /api/activities/:id/invoices/batch/stop
func (h *BatchInvoiceHandler) Stop(c *fiber.Ctx) error {
	activityID := c.Params("id")
	h.mu.Lock()
	stop, ok := h.running[activityID]
	h.mu.Unlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "no hay tanda en curso para esta actividad"})
	}
	stop.RequestStop()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"stopping": true})
}

// DownloadArchive descarga el ZIP de la última tanda de la actividad. Si el
// empaquetado falló en su momento, se reintenta aquí desde los buffers
// retenidos sin volver a facturar a nadie.
// GET /api/activities/:id/invoices/batch/archive
func (h *BatchInvoiceHandler) DownloadArchive(c *fiber.Ctx) error {
	orgID := GetOrganizationID(c)
	if orgID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	activityID := c.Params("id")
	h.mu.Lock()
	artifact, ok := h.artifacts[activityID]
	h.mu.Unlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "no hay archivo disponible para esta actividad"})
	}

	artifact.mu.Lock()
	if len(artifact.res.Documents) == 0 {
		artifact.mu.Unlock()
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "no hay archivo disponible para esta actividad"})
	}
	if artifact.res.Archive == nil {
		if err := h.uc.Repack(artifact.res, nil); err != nil {
			artifact.mu.Unlock()
			h.log.Error().Err(err).Str("activity_id", activityID).Msg("reintento de empaquetado fallido")
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "PACKAGING", Message: "no se pudo generar el archivo"})
		}
	}
	data := artifact.res.Archive
	artifact.mu.Unlock()

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "facturas_"+activityID+".zip"))
	return c.Send(data)
}

// mapError traduce errores de dominio a códigos HTTP.
func (h *BatchInvoiceHandler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "actividad no encontrada"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	default:
		h.log.Error().Err(err).Msg("fallo sistémico en tanda de facturación")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Observer respaldado por zerolog
// ──────────────────────────────────────────────────────────────────────────────

// logObserver publica los eventos de progreso de la tanda como log estructurado.
type logObserver struct {
	log        *logger.Logger
	activityID string
}

var _ billing.Observer = (*logObserver)(nil)

func (o *logObserver) OnPhase(p billing.Phase) {
	o.log.Info().Str("activity_id", o.activityID).Str("phase", string(p)).Msg("cambio de fase")
}

func (o *logObserver) OnItem(current, total int, name string) {
	o.log.Debug().Str("activity_id", o.activityID).
		Int("current", current).Int("total", total).Str("participant", name).
		Msg("procesando participante")
}

func (o *logObserver) OnItemError(e billing.ItemError) {
	o.log.Warn().Str("activity_id", o.activityID).
		Str("participant_id", e.ParticipantID).Str("kind", string(e.Kind)).
		Msg(e.Message)
}

func (o *logObserver) OnParticipantBilled(participantID, clientID string) {
	o.log.Info().Str("activity_id", o.activityID).
		Str("participant_id", participantID).Str("client_id", clientID).
		Msg("participante facturado")
}

func (o *logObserver) OnArchiveProgress(pct int) {
	o.log.Debug().Str("activity_id", o.activityID).Int("pct", pct).Msg("empaquetando archivo")
}

// ──────────────────────────────────────────────────────────────────────────────
// Mapeo a DTOs
// ──────────────────────────────────────────────────────────────────────────────

func toPreviewResponse(p *billing.Preview) dto.BatchPreviewResponse {
	out := dto.BatchPreviewResponse{
		EligibleParticipantIDs: p.EligibleIDs(),
		Excluded:               make([]dto.ExclusionDTO, 0, len(p.Excluded)),
	}
	for _, ex := range p.Excluded {
		e := dto.ExclusionDTO{
			ParticipantID: ex.Participant.ID,
			ClientID:      ex.Participant.ClientID,
			Reason:        ex.Reason,
			MissingFields: ex.MissingFields,
		}
		if ex.Participant.Profile != nil {
			e.Name = ex.Participant.Profile.Name
		}
		out.Excluded = append(out.Excluded, e)
	}
	return out
}

func toBatchResponse(res *billing.BatchResult) dto.BatchInvoiceResponse {
	out := dto.BatchInvoiceResponse{
		Outcome:          "all_succeeded",
		SuccessCount:     res.SuccessCount,
		Errors:           make([]dto.ItemErrorDTO, 0, len(res.Errors)),
		Invoices:         make([]dto.InvoiceSummary, 0, len(res.Invoices)),
		ArchiveAvailable: res.Archive != nil,
	}
	switch {
	case len(res.Errors) == 0:
		// all_succeeded
	case res.SuccessCount == 0:
		out.Outcome = "failed"
	default:
		out.Outcome = "partially_succeeded"
	}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, dto.ItemErrorDTO{
			ParticipantID: e.ParticipantID,
			ClientID:      e.ClientID,
			Name:          e.Name,
			Kind:          string(e.Kind),
			Message:       e.Message,
		})
	}
	for _, inv := range res.Invoices {
		out.Invoices = append(out.Invoices, dto.InvoiceSummary{
			ID:              inv.ID,
			FormattedNumber: inv.FormattedNumber,
			ClientID:        inv.ClientID,
			TotalAmount:     inv.TotalAmount,
			DocumentURL:     inv.DocumentURL,
		})
	}
	return out
}
