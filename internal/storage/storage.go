// Package storage persists uploaded documents and returns their public URL.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrInvalidPath is returned for object paths that escape the storage root.
var ErrInvalidPath = errors.New("invalid object path")

// FileStorage stores an object under path and returns the URL it is served from.
type FileStorage interface {
	Store(ctx context.Context, objectPath string, data []byte) (string, error)
}

// cleanPath normalises an object path to a relative, slash-separated form.
func cleanPath(objectPath string) (string, error) {
	if objectPath == "" || strings.Contains(objectPath, "..") || strings.Contains(objectPath, `\`) {
		return "", ErrInvalidPath
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+objectPath), "/")
	if cleaned == "" {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
