// Package archive empaqueta los documentos de una tanda de facturación en un
// único ZIP descargable, reportando el progreso entrada a entrada.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/tu-usuario/clinica-pro/internal/application/billing"
)

var _ billing.Archiver = (*ZipPackager)(nil)

// ZipPackager implementa billing.Archiver con archive/zip en memoria.
type ZipPackager struct{}

// NewZipPackager construye el empaquetador.
func NewZipPackager() *ZipPackager {
	return &ZipPackager{}
}

// Pack empaqueta las entradas en un ZIP en memoria. Cada entrada añadida
// reporta progreso dentro de la banda 0–95; el cierre del ZIP (compresión y
// directorio central) se reporta como el tramo final 95–100. Un fallo aquí no
// afecta a las facturas ya persistidas: el caller puede reintentar con los
// mismos buffers.
func (z *ZipPackager) Pack(entries []billing.ArchiveEntry, onProgress func(pct int)) ([]byte, error) {
	if onProgress == nil {
		onProgress = func(int) {}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i, e := range entries {
		fw, err := zw.Create(e.Filename)
		if err != nil {
			return nil, fmt.Errorf("zip: crear entrada %s: %w", e.Filename, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return nil, fmt.Errorf("zip: escribir %s: %w", e.Filename, err)
		}
		onProgress((i + 1) * 95 / len(entries))
	}

	onProgress(95)
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	onProgress(100)
	return buf.Bytes(), nil
}
