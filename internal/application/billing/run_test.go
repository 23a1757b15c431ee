package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Tests de caja blanca del estado de tanda: la máquina de fases es interna y
// solo el orquestador la muta.

// TestRunState_FasesSoloHaciaDelante una fase nunca retrocede; los intentos de
// retroceso se ignoran.
func TestRunState_FasesSoloHaciaDelante(t *testing.T) {
	s := newRunState(nil)

	s.setPhase(PhaseValidating)
	s.setPhase(PhaseGenerating)
	s.setPhase(PhaseValidating) // retroceso: se ignora
	assert.Equal(t, PhaseGenerating, s.Phase())

	s.setPhase(PhaseCreatingDocuments)
	s.setPhase(PhaseCreatingArchive)
	s.setPhase(PhaseCompleted)
	assert.Equal(t, PhaseCompleted, s.Phase())
}

// TestRunState_FaseErrorEsTerminal tras entrar en error no se avanza a
// ninguna otra fase.
func TestRunState_FaseErrorEsTerminal(t *testing.T) {
	s := newRunState(nil)

	s.setPhase(PhaseValidating)
	s.setPhase(PhaseError)
	s.setPhase(PhaseGenerating)

	assert.Equal(t, PhaseError, s.Phase())
}

// TestRunState_ProgresoYErrores el estado refleja el ítem en curso y acumula
// errores consultables a mitad de tanda.
func TestRunState_ProgresoYErrores(t *testing.T) {
	obs := &countingObserver{}
	s := newRunState(obs)

	s.setItem(2, 5, "Ana García")
	current, total, name := s.Progress()
	assert.Equal(t, 2, current)
	assert.Equal(t, 5, total)
	assert.Equal(t, "Ana García", name)

	s.addError(ItemError{ParticipantID: "p-1", Kind: ErrorKindRender, Message: "pdf"})
	assert.Len(t, s.Errors(), 1)
	assert.Equal(t, 1, obs.items)
	assert.Equal(t, 1, obs.errs)
}

// TestRunState_ErrorsDevuelveCopia mutar el slice devuelto no toca el estado.
func TestRunState_ErrorsDevuelveCopia(t *testing.T) {
	s := newRunState(nil)
	s.addError(ItemError{ParticipantID: "p-1", Kind: ErrorKindRender})

	errs := s.Errors()
	errs[0].ParticipantID = "mutado"

	assert.Equal(t, "p-1", s.Errors()[0].ParticipantID)
}

type countingObserver struct {
	NopObserver
	items int
	errs  int
}

func (c *countingObserver) OnItem(int, int, string) { c.items++ }
func (c *countingObserver) OnItemError(ItemError)   { c.errs++ }
