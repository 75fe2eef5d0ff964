// Package storage keeps uploaded post images. Keys look like
// "posts/<uuid>.gif" and double as the path under /media/.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ErrNotExist is returned by Open and Delete for unknown keys.
var ErrNotExist = errors.New("media object does not exist")

// ErrInvalidKey is returned for keys that escape the media namespace.
var ErrInvalidKey = errors.New("invalid media key")

// Object describes a stored file.
type Object struct {
	ContentType string
	Size        int64
}

// Store is implemented by the filesystem, MinIO and GridFS backends.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, key string) error
}

// CleanKey normalises key and rejects absolute or parent-relative paths.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
