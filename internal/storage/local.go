package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes objects below a directory on disk. The HTTP server
// exposes that directory under URLPrefix.
type LocalStorage struct {
	dir       string
	urlPrefix string
}

// NewLocalStorage creates a LocalStorage rooted at dir.
func NewLocalStorage(dir, urlPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStorage{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Dir returns the storage root.
func (s *LocalStorage) Dir() string { return s.dir }

// Store writes data to dir/objectPath.
func (s *LocalStorage) Store(ctx context.Context, objectPath string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	return s.urlPrefix + "/" + rel, nil
}
