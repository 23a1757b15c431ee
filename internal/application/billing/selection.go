package billing

import "sync"

// SelectionState conjunto de selección de participantes que expone la UI
// durante una tanda. Se mantiene sincronizado con la deduplicación: cuando un
// participante se factura con éxito (evento confirmado, no especulativo) se
// retira del conjunto seleccionable y pasa al conjunto de "ya facturados", de
// forma que una UI consultando a mitad de tanda nunca lo vea como elegible.
type SelectionState struct {
	mu         sync.Mutex
	selectable map[string]struct{} // participantes elegibles y sin facturar
	selected   map[string]struct{}
	billed     map[string]struct{}
}

// NewSelectionState construye el estado a partir del resultado del filtro de
// elegibilidad: los elegibles quedan seleccionados por defecto.
func NewSelectionState(eligibleIDs []string) *SelectionState {
	s := &SelectionState{
		selectable: make(map[string]struct{}, len(eligibleIDs)),
		selected:   make(map[string]struct{}, len(eligibleIDs)),
		billed:     make(map[string]struct{}),
	}
	for _, id := range eligibleIDs {
		s.selectable[id] = struct{}{}
		s.selected[id] = struct{}{}
	}
	return s
}

// Select marca un participante; se ignora si no es seleccionable.
func (s *SelectionState) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.selectable[id]; ok {
		s.selected[id] = struct{}{}
	}
}

// Deselect desmarca un participante.
func (s *SelectionState) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, id)
}

// MarkBilled registra la facturación confirmada de un participante: deja de
// ser seleccionable y entra en el conjunto de deduplicación local.
func (s *SelectionState) MarkBilled(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selectable, id)
	delete(s.selected, id)
	s.billed[id] = struct{}{}
}

// IsSelectable indica si el participante sigue siendo elegible y sin facturar.
func (s *SelectionState) IsSelectable(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selectable[id]
	return ok
}

// IsBilled indica si el participante ya fue facturado en esta vista.
func (s *SelectionState) IsBilled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.billed[id]
	return ok
}

// SelectedIDs devuelve los participantes actualmente seleccionados.
func (s *SelectionState) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	return out
}
