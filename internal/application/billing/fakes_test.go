package billing_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tu-usuario/clinica-pro/internal/application/billing"
	"github.com/tu-usuario/clinica-pro/internal/domain"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria de los puertos del pipeline. Comparten la semántica de los
// adaptadores reales: el contador solo avanza si el incremento tiene éxito, y
// el runner de transacción revierte contador y facturas si el cierre falla.
// ──────────────────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// memCounters contador de numeración con incremento bajo mutex. failOnCall
// permite inyectar un fallo en la n-ésima llamada (1-indexado) a
// AtomicIncrement; el contador no avanza en la llamada fallida.
type memCounters struct {
	mu         sync.Mutex
	counters   map[string]int64
	calls      int
	failOnCall int
}

var _ repository.CounterRepository = (*memCounters)(nil)

func newMemCounters() *memCounters {
	return &memCounters{counters: make(map[string]int64)}
}

func counterKey(orgID string, t entity.InvoiceType) string {
	return orgID + "/" + string(t)
}

func (m *memCounters) ReadCounter(_ context.Context, orgID string, t entity.InvoiceType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[counterKey(orgID, t)], nil
}

func (m *memCounters) AtomicIncrement(_ context.Context, orgID string, t entity.InvoiceType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failOnCall > 0 && m.calls == m.failOnCall {
		return 0, domain.ErrCounterConflict
	}
	k := counterKey(orgID, t)
	m.counters[k]++
	return m.counters[k], nil
}

// memInvoices almacén de facturas en memoria. failCreateFor inyecta fallos de
// insert por cliente.
type memInvoices struct {
	mu            sync.Mutex
	invoices      map[string]*entity.Invoice
	lines         map[string][]*entity.InvoiceLine
	failCreateFor map[string]error // clientID → error de insert
	failFind      error
}

var _ repository.InvoiceRepository = (*memInvoices)(nil)

func newMemInvoices() *memInvoices {
	return &memInvoices{
		invoices:      make(map[string]*entity.Invoice),
		lines:         make(map[string][]*entity.InvoiceLine),
		failCreateFor: make(map[string]error),
	}
}

func (m *memInvoices) Create(_ context.Context, inv *entity.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failCreateFor[inv.ClientID]; err != nil {
		return err
	}
	cp := *inv
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *memInvoices) CreateLine(_ context.Context, line *entity.InvoiceLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *line
	m.lines[line.InvoiceID] = append(m.lines[line.InvoiceID], &cp)
	return nil
}

func (m *memInvoices) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoices) GetLinesByInvoiceID(_ context.Context, invoiceID string) ([]*entity.InvoiceLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines[invoiceID], nil
}

func (m *memInvoices) FindByActivityAndClients(_ context.Context, activityID string, clientIDs []string) ([]entity.BilledClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return nil, m.failFind
	}
	wanted := make(map[string]struct{}, len(clientIDs))
	for _, id := range clientIDs {
		wanted[id] = struct{}{}
	}
	var out []entity.BilledClient
	for _, inv := range m.invoices {
		if inv.ActivityID != activityID {
			continue
		}
		if _, ok := wanted[inv.ClientID]; ok {
			out = append(out, entity.BilledClient{
				ClientID:        inv.ClientID,
				InvoiceID:       inv.ID,
				FormattedNumber: inv.FormattedNumber,
			})
		}
	}
	return out, nil
}

func (m *memInvoices) AttachDocumentURL(_ context.Context, invoiceID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return domain.ErrNotFound
	}
	inv.DocumentURL = url
	return nil
}

func (m *memInvoices) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoices)
}

// memTxRunner simula la transacción: si el cierre falla, revierte el contador
// y las facturas al estado previo (sin commit no hay número consumido).
type memTxRunner struct {
	counters *memCounters
	invoices *memInvoices
}

var _ billing.BatchTxRunner = (*memTxRunner)(nil)

func newMemTxRunner(counters *memCounters, invoices *memInvoices) *memTxRunner {
	return &memTxRunner{counters: counters, invoices: invoices}
}

func (r *memTxRunner) RunInvoice(ctx context.Context, fn func(repository.CounterRepository, repository.InvoiceRepository) error) error {
	countersBefore := r.snapshotCounters()
	invoicesBefore, linesBefore := r.snapshotInvoices()

	if err := fn(r.counters, r.invoices); err != nil {
		r.counters.mu.Lock()
		r.counters.counters = countersBefore
		r.counters.mu.Unlock()
		r.invoices.mu.Lock()
		r.invoices.invoices = invoicesBefore
		r.invoices.lines = linesBefore
		r.invoices.mu.Unlock()
		return err
	}
	return nil
}

func (r *memTxRunner) snapshotCounters() map[string]int64 {
	r.counters.mu.Lock()
	defer r.counters.mu.Unlock()
	cp := make(map[string]int64, len(r.counters.counters))
	for k, v := range r.counters.counters {
		cp[k] = v
	}
	return cp
}

func (r *memTxRunner) snapshotInvoices() (map[string]*entity.Invoice, map[string][]*entity.InvoiceLine) {
	r.invoices.mu.Lock()
	defer r.invoices.mu.Unlock()
	invs := make(map[string]*entity.Invoice, len(r.invoices.invoices))
	for k, v := range r.invoices.invoices {
		invs[k] = v
	}
	lines := make(map[string][]*entity.InvoiceLine, len(r.invoices.lines))
	for k, v := range r.invoices.lines {
		lines[k] = v
	}
	return invs, lines
}

// memOrgs lectura de organizaciones.
type memOrgs struct {
	orgs map[string]*entity.Organization
}

var _ repository.OrganizationRepository = (*memOrgs)(nil)

func (m *memOrgs) GetByID(_ context.Context, id string) (*entity.Organization, error) {
	org, ok := m.orgs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return org, nil
}

// memRoster contexto de tanda: actividad, servicio y participantes.
type memRoster struct {
	activity     *entity.GroupActivity
	service      *entity.Service
	participants []*entity.Participant
}

var _ repository.RosterRepository = (*memRoster)(nil)

func (m *memRoster) GetActivity(_ context.Context, id string) (*entity.GroupActivity, error) {
	if m.activity == nil || m.activity.ID != id {
		return nil, domain.ErrNotFound
	}
	return m.activity, nil
}

func (m *memRoster) GetService(_ context.Context, id string) (*entity.Service, error) {
	if m.service == nil || m.service.ID != id {
		return nil, domain.ErrNotFound
	}
	return m.service, nil
}

func (m *memRoster) ListParticipants(_ context.Context, activityID string) ([]*entity.Participant, error) {
	if m.activity == nil || m.activity.ID != activityID {
		return nil, domain.ErrNotFound
	}
	return m.participants, nil
}

// fakeRenderer devuelve un PDF sintético; failFor inyecta fallos por cliente.
type fakeRenderer struct {
	failFor map[string]error // clientID → error de render
}

var _ billing.DocumentRenderer = (*fakeRenderer)(nil)

func (f *fakeRenderer) Render(_ context.Context, inv *entity.Invoice, _ []*entity.InvoiceLine, _ *entity.Organization, _ *entity.BillingProfile) ([]byte, error) {
	if f.failFor != nil {
		if err := f.failFor[inv.ClientID]; err != nil {
			return nil, err
		}
	}
	return []byte("PDF " + inv.FormattedNumber), nil
}

// fakeBlob registra las subidas; failWith hace fallar todas.
type fakeBlob struct {
	mu       sync.Mutex
	uploads  []string
	failWith error
}

var _ billing.BlobStore = (*fakeBlob)(nil)

func (f *fakeBlob) Upload(_ context.Context, _ []byte, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return "", f.failWith
	}
	f.uploads = append(f.uploads, path)
	return "https://files.test/" + path, nil
}

// fakeArchiver empaqueta concatenando nombres; failTimes hace fallar las
// primeras n llamadas (para probar el reintento de empaquetado).
type fakeArchiver struct {
	mu        sync.Mutex
	packed    [][]billing.ArchiveEntry
	failTimes int
	lastPct   int
}

var _ billing.Archiver = (*fakeArchiver)(nil)

func (f *fakeArchiver) Pack(entries []billing.ArchiveEntry, onProgress func(pct int)) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTimes > 0 {
		f.failTimes--
		return nil, fmt.Errorf("disco lleno")
	}
	f.packed = append(f.packed, entries)
	onProgress(100)
	f.lastPct = 100
	out := "ZIP:"
	for _, e := range entries {
		out += e.Filename + ";"
	}
	return []byte(out), nil
}

// recorderObserver acumula todos los eventos emitidos por la tanda.
type recorderObserver struct {
	mu         sync.Mutex
	phases     []billing.Phase
	items      []string
	itemErrors []billing.ItemError
	billed     []string // participantIDs confirmados
	archivePct []int
}

var _ billing.Observer = (*recorderObserver)(nil)

func (r *recorderObserver) OnPhase(p billing.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, p)
}

func (r *recorderObserver) OnItem(_, _ int, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, name)
}

func (r *recorderObserver) OnItemError(e billing.ItemError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.itemErrors = append(r.itemErrors, e)
}

func (r *recorderObserver) OnParticipantBilled(participantID, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.billed = append(r.billed, participantID)
}

func (r *recorderObserver) OnArchiveProgress(pct int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archivePct = append(r.archivePct, pct)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario base: una clínica, una actividad con servicio de 50.00 € + 21% IVA
// y tres participantes con perfil completo.
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	org      *entity.Organization
	roster   *memRoster
	counters *memCounters
	invoices *memInvoices
	txRunner *memTxRunner
	renderer *fakeRenderer
	blob     *fakeBlob
	archiver *fakeArchiver
	uc       *billing.BatchInvoiceUseCase
}

func participante(id, clientID, status, name string) *entity.Participant {
	return &entity.Participant{
		ID:         id,
		ActivityID: "act-1",
		ClientID:   clientID,
		Status:     status,
		Profile: &entity.BillingProfile{
			ClientID:   clientID,
			Name:       name,
			TaxID:      "00000000T",
			Address:    "Calle Salud 5",
			PostalCode: "28001",
			City:       "Madrid",
		},
	}
}

func newFixture() *fixture {
	f := &fixture{
		org: &entity.Organization{
			ID:            "org-1",
			Name:          "Clínica Aurora",
			TaxID:         "B12345678",
			PrefixNormal:  "FAC-",
			NumberPadding: 6,
		},
		roster: &memRoster{
			activity: &entity.GroupActivity{ID: "act-1", OrganizationID: "org-1", ServiceID: "svc-1", Title: "Taller de fisioterapia"},
			service: &entity.Service{
				ID: "svc-1", OrganizationID: "org-1", Name: "Sesión grupal",
				Price: dec("50.00"), VATRate: dec("21"),
			},
			participants: []*entity.Participant{
				participante("p-1", "cli-1", entity.ParticipantAttended, "Ana García"),
				participante("p-2", "cli-2", entity.ParticipantAttended, "José Muñoz"),
				participante("p-3", "cli-3", entity.ParticipantRegistered, "Lucía Pérez"),
			},
		},
		counters: newMemCounters(),
		invoices: newMemInvoices(),
		renderer: &fakeRenderer{},
		blob:     &fakeBlob{},
		archiver: &fakeArchiver{},
	}
	f.txRunner = newMemTxRunner(f.counters, f.invoices)
	f.uc = billing.NewBatchInvoiceUseCase(
		f.txRunner, &memOrgs{orgs: map[string]*entity.Organization{"org-1": f.org}},
		f.roster, f.invoices, f.renderer, f.blob, f.archiver, nil,
	)
	return f
}

func baseRequest() billing.BatchRequest {
	return billing.BatchRequest{
		OrganizationID: "org-1",
		ActivityID:     "act-1",
		InvoiceType:    entity.InvoiceTypeNormal,
	}
}
