// Package storage keeps uploaded media objects. Keys are slash separated
// paths such as "post_images/<uuid>.png".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"dbsite/internal/config"
)

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// Store is an object store for media files.
type Store interface {
	Save(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	// URL returns the public address of key. It does not check existence.
	URL(key string) string
}

// New builds the store selected by cfg.Backend.
func New(cfg config.MediaConfig) (Store, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.Root, cfg.URLPrefix)
	case "s3":
		s := cfg.S3
		return NewS3(s.Endpoint, s.Region, s.AccessKey, s.SecretKey, s.Bucket, s.PublicURL)
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}
