package archive_test

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/clinica-pro/internal/application/billing"
	"github.com/tu-usuario/clinica-pro/internal/infrastructure/archive"
)

// TestPack_ZipLegible el resultado es un ZIP válido con todas las entradas y
// su contenido intacto.
func TestPack_ZipLegible(t *testing.T) {
	packager := archive.NewZipPackager()
	entries := []billing.ArchiveEntry{
		{Filename: "FAC-000001_Ana_Garcia.pdf", Data: []byte("contenido uno")},
		{Filename: "FAC-000002_Jose_Munoz.pdf", Data: []byte("contenido dos")},
	}

	data, err := packager.Pack(entries, nil)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err, "el resultado debe ser un ZIP válido")
	require.Len(t, zr.File, 2)

	contenidos := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		contenidos[f.Name] = string(b)
	}
	assert.Equal(t, "contenido uno", contenidos["FAC-000001_Ana_Garcia.pdf"])
	assert.Equal(t, "contenido dos", contenidos["FAC-000002_Jose_Munoz.pdf"])
}

// TestPack_ProgresoHasta100 el progreso avanza monotónico, pasa por la banda
// de cierre (95) y termina exactamente en 100.
func TestPack_ProgresoHasta100(t *testing.T) {
	packager := archive.NewZipPackager()
	entries := []billing.ArchiveEntry{
		{Filename: "a.pdf", Data: []byte("a")},
		{Filename: "b.pdf", Data: []byte("b")},
		{Filename: "c.pdf", Data: []byte("c")},
	}

	var pcts []int
	_, err := packager.Pack(entries, func(pct int) { pcts = append(pcts, pct) })
	require.NoError(t, err)

	require.NotEmpty(t, pcts)
	for i := 1; i < len(pcts); i++ {
		assert.GreaterOrEqual(t, pcts[i], pcts[i-1], "el progreso nunca retrocede")
	}
	assert.Contains(t, pcts, 95, "el cierre se reporta en la banda 95–100")
	assert.Equal(t, 100, pcts[len(pcts)-1], "el último evento debe ser 100")
	for _, p := range pcts {
		assert.LessOrEqual(t, p, 100)
		assert.GreaterOrEqual(t, p, 0)
	}
}

// TestPack_SinEntradas un ZIP vacío también es válido; el caller decide si
// tiene sentido generarlo.
func TestPack_SinEntradas(t *testing.T) {
	packager := archive.NewZipPackager()

	data, err := packager.Pack(nil, nil)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}

// TestPack_SinCallbackNoRevienta onProgress nil es aceptable.
func TestPack_SinCallbackNoRevienta(t *testing.T) {
	packager := archive.NewZipPackager()

	_, err := packager.Pack([]billing.ArchiveEntry{{Filename: "x.pdf", Data: []byte("x")}}, nil)

	assert.NoError(t, err)
}
