package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrNotImage = errors.New("upload a valid image: the file you uploaded was either not an image or a corrupted image")
	ErrTooLarge = errors.New("uploaded file is too large")
)

// ReadImage reads at most limit bytes from r and checks that the content
// sniffs as an image. It returns the bytes and the detected MIME type.
func ReadImage(r io.Reader, limit int64) ([]byte, *mimetype.MIME, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, nil, ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, nil, ErrNotImage
	}
	return data, mt, nil
}

// SaveImage validates r and stores it under a fresh posts/<uuid><ext> key.
func SaveImage(ctx context.Context, store Store, r io.Reader, limit int64) (string, error) {
	data, mt, err := ReadImage(r, limit)
	if err != nil {
		return "", err
	}
	key := "posts/" + uuid.NewString() + mt.Extension()
	if err := store.Save(ctx, key, bytes.NewReader(data), int64(len(data)), mt.String()); err != nil {
		return "", err
	}
	return key, nil
}
