// Package blob implementa el almacén de documentos renderizados. La
// implementación local escribe en disco y devuelve URLs relativas; el puerto
// (billing.BlobStore) admite sustituirla por un almacén de objetos remoto.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore guarda documentos bajo un directorio raíz.
type LocalStore struct {
	baseDir string
	baseURL string
}

// NewLocalStore construye el almacén. baseURL es el prefijo de las URLs
// devueltas (ej: "/documents").
func NewLocalStore(baseDir, baseURL string) *LocalStore {
	return &LocalStore{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Upload escribe el documento y devuelve su URL pública.
func (s *LocalStore) Upload(_ context.Context, data []byte, path string) (string, error) {
	full := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("blob: crear directorio: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("blob: escribir %s: %w", path, err)
	}
	return s.baseURL + "/" + path, nil
}
