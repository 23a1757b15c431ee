package billing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxClientNameLen longitud máxima del nombre de cliente dentro del nombre de
// archivo; el número de factura garantiza la unicidad, el nombre solo es ayuda
// visual.
const maxClientNameLen = 40

// stripAccents descompone (NFD), elimina marcas combinantes y recompone (NFC):
// "José Muñoz" → "Jose Munoz". Necesario porque algunos extractores de ZIP
// siguen tratando mal los nombres con caracteres no ASCII.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// DocumentFilename construye el nombre del documento dentro del archivo:
// número de factura + nombre de cliente saneado y truncado. Único par a par
// porque los números de factura lo son.
func DocumentFilename(formattedNumber, clientName string) string {
	return formattedNumber + "_" + SanitizeFilename(clientName) + ".pdf"
}

// SanitizeFilename deja el nombre apto para entrada de ZIP en cualquier SO:
// sin acentos, espacios a guiones bajos, solo [A-Za-z0-9_-], truncado.
func SanitizeFilename(name string) string {
	s, _, err := transform.String(stripAccents, name)
	if err != nil {
		s = name
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '.':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "cliente"
	}
	if len(out) > maxClientNameLen {
		out = out[:maxClientNameLen]
	}
	return out
}
