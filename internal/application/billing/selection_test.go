package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tu-usuario/clinica-pro/internal/application/billing"
)

// TestSelectionState_ElegiblesSeleccionadosPorDefecto la selección arranca con
// todos los elegibles marcados.
func TestSelectionState_ElegiblesSeleccionadosPorDefecto(t *testing.T) {
	sel := billing.NewSelectionState([]string{"p-1", "p-2"})

	assert.ElementsMatch(t, []string{"p-1", "p-2"}, sel.SelectedIDs())
	assert.True(t, sel.IsSelectable("p-1"))
	assert.False(t, sel.IsBilled("p-1"))
}

// TestSelectionState_DeseleccionYReseleccion desmarcar y volver a marcar
// dentro del conjunto seleccionable.
func TestSelectionState_DeseleccionYReseleccion(t *testing.T) {
	sel := billing.NewSelectionState([]string{"p-1", "p-2"})

	sel.Deselect("p-1")
	assert.ElementsMatch(t, []string{"p-2"}, sel.SelectedIDs())

	sel.Select("p-1")
	assert.ElementsMatch(t, []string{"p-1", "p-2"}, sel.SelectedIDs())
}

// TestSelectionState_NoSeleccionableNoSeMarca un ID fuera del conjunto
// elegible se ignora al seleccionar.
func TestSelectionState_NoSeleccionableNoSeMarca(t *testing.T) {
	sel := billing.NewSelectionState([]string{"p-1"})

	sel.Select("p-extraño")

	assert.ElementsMatch(t, []string{"p-1"}, sel.SelectedIDs())
	assert.False(t, sel.IsSelectable("p-extraño"))
}

// TestSelectionState_MarkBilledRetiraDelConjunto el facturado sale del
// conjunto seleccionable y no puede volver a marcarse.
func TestSelectionState_MarkBilledRetiraDelConjunto(t *testing.T) {
	sel := billing.NewSelectionState([]string{"p-1", "p-2"})

	sel.MarkBilled("p-1")

	assert.False(t, sel.IsSelectable("p-1"))
	assert.True(t, sel.IsBilled("p-1"))
	assert.ElementsMatch(t, []string{"p-2"}, sel.SelectedIDs())

	// Reintento de selección tras facturar: no debe reaparecer
	sel.Select("p-1")
	assert.ElementsMatch(t, []string{"p-2"}, sel.SelectedIDs())
}

// TestStopFlag_NilEsSeguro un StopFlag nulo nunca reporta parada.
func TestStopFlag_NilEsSeguro(t *testing.T) {
	var stop *billing.StopFlag

	assert.False(t, stop.Stopped())
}

// TestStopFlag_RequestStop la petición es pegajosa.
func TestStopFlag_RequestStop(t *testing.T) {
	stop := &billing.StopFlag{}
	assert.False(t, stop.Stopped())

	stop.RequestStop()

	assert.True(t, stop.Stopped())
	assert.True(t, stop.Stopped(), "la parada no se consume al leerla")
}
