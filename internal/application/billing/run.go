package billing

import (
	"sync"
	"sync/atomic"
)

// Phase fases de una tanda de facturación. Solo avanzan hacia adelante; la
// única excepción es la fase terminal PhaseError, alcanzable desde cualquier
// punto ante un fallo sistémico (no por errores de participantes sueltos).
type Phase string

const (
	PhaseValidating        Phase = "validating"
	PhaseGenerating        Phase = "generating"
	PhaseCreatingDocuments Phase = "creating_documents"
	PhaseCreatingArchive   Phase = "creating_archive"
	PhaseCompleted         Phase = "completed"
	PhaseError             Phase = "error"
)

// phaseOrder índice de avance para impedir retrocesos.
var phaseOrder = map[Phase]int{
	PhaseValidating:        0,
	PhaseGenerating:        1,
	PhaseCreatingDocuments: 2,
	PhaseCreatingArchive:   3,
	PhaseCompleted:         4,
}

// ErrorKind clasifica los fallos de una tanda según su origen y fatalidad.
type ErrorKind string

const (
	ErrorKindValidation  ErrorKind = "validation"  // filtrado previo; nunca ocurre dentro del bucle
	ErrorKindAllocation  ErrorKind = "allocation"  // fallo del contador; el número no queda consumido
	ErrorKindPersistence ErrorKind = "persistence" // insert de factura/líneas fallido tras asignar número
	ErrorKindRender      ErrorKind = "render"      // PDF fallido; la factura sigue siendo válida
	ErrorKindStorage     ErrorKind = "storage"     // subida del PDF fallida; solo se registra en log
	ErrorKindPackaging   ErrorKind = "packaging"   // archivo final fallido; las facturas persisten
	ErrorKindSystemic    ErrorKind = "systemic"    // contexto previo ilegible; aborta antes del bucle
)

// ItemError error atribuible de una tanda. ParticipantID queda vacío en
// errores no asociados a un participante concreto (ej: empaquetado).
type ItemError struct {
	ParticipantID string
	ClientID      string
	Name          string
	Kind          ErrorKind
	Message       string
}

// StopFlag petición de parada cooperativa: se comprueba antes de iniciar el
// siguiente participante. El participante en curso termina sus pasos (semántica
// at-least-once para ese ítem) para no dejar una factura a medio escribir.
type StopFlag struct {
	stopped atomic.Bool
}

// RequestStop marca la tanda para detenerse antes del siguiente participante.
func (s *StopFlag) RequestStop() { s.stopped.Store(true) }

// Stopped indica si se pidió la parada.
func (s *StopFlag) Stopped() bool { return s != nil && s.stopped.Load() }

// RunState estado observable de una tanda en curso: fase, contadores, ítem
// actual, errores acumulados y porcentaje de empaquetado. Una vista mutable
// única protegida por mutex; los eventos se reenvían al Observer.
type RunState struct {
	mu sync.Mutex

	phase       Phase
	current     int
	total       int
	currentName string
	errs        []ItemError
	archivePct  int

	obs Observer
}

// newRunState crea el estado con el observer dado (NopObserver si es nil).
func newRunState(obs Observer) *RunState {
	if obs == nil {
		obs = NopObserver{}
	}
	return &RunState{phase: PhaseValidating, obs: obs}
}

// setPhase avanza la fase. Los retrocesos se ignoran; PhaseError es terminal
// y siempre alcanzable.
func (s *RunState) setPhase(p Phase) {
	s.mu.Lock()
	if s.phase == PhaseError {
		s.mu.Unlock()
		return
	}
	if p != PhaseError && phaseOrder[p] < phaseOrder[s.phase] {
		s.mu.Unlock()
		return
	}
	s.phase = p
	s.mu.Unlock()
	s.obs.OnPhase(p)
}

func (s *RunState) setItem(current, total int, name string) {
	s.mu.Lock()
	s.current, s.total, s.currentName = current, total, name
	s.mu.Unlock()
	s.obs.OnItem(current, total, name)
}

func (s *RunState) addError(e ItemError) {
	s.mu.Lock()
	s.errs = append(s.errs, e)
	s.mu.Unlock()
	s.obs.OnItemError(e)
}

func (s *RunState) setArchivePct(pct int) {
	s.mu.Lock()
	s.archivePct = pct
	s.mu.Unlock()
	s.obs.OnArchiveProgress(pct)
}

// Phase devuelve la fase actual.
func (s *RunState) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Progress devuelve ítem actual, total y nombre del ítem en curso.
func (s *RunState) Progress() (current, total int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.total, s.currentName
}

// Errors devuelve una copia de la lista de errores acumulados.
func (s *RunState) Errors() []ItemError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ItemError, len(s.errs))
	copy(out, s.errs)
	return out
}
