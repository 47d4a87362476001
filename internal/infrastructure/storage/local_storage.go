package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/rentals-api/internal/application/billing"
)

var _ billing.ObjectStorage = (*LocalStorage)(nil)

// LocalStorage guarda los objetos en disco. Pensado para desarrollo.
type LocalStorage struct {
	dir string
}

// NewLocalStorage crea el directorio raíz si no existe.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: crear %s: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStorage{dir: abs}, nil
}

func (l *LocalStorage) Upload(ctx context.Context, key string, body []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(l.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(path, l.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: clave fuera del directorio: %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("storage: crear directorio: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("storage: escribir %s: %w", key, err)
	}
	return "file://" + filepath.ToSlash(path), nil
}
