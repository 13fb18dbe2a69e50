package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"dbsite/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	PostImagePrefix    = "post_images/"
	ContentImagePrefix = "post_content_images/"

	// DefaultMaxUploadSize applies when no limit is configured.
	DefaultMaxUploadSize = 10 << 20
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MediaService validates uploaded images and keeps them in the object store.
type MediaService struct {
	store   storage.Store
	maxSize int64
	logger  *zap.Logger
}

func NewMediaService(store storage.Store, maxSize int64, logger *zap.Logger) *MediaService {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &MediaService{store: store, maxSize: maxSize, logger: logger}
}

// MaxSize is the largest accepted upload in bytes.
func (s *MediaService) MaxSize() int64 {
	return s.maxSize
}

// SaveFile stores a multipart upload under prefix and returns its key.
func (s *MediaService) SaveFile(ctx context.Context, prefix, field string, fh *multipart.FileHeader) (string, error) {
	if fh.Size > s.maxSize {
		return "", invalid(field, fmt.Sprintf("file is larger than %d MiB", s.maxSize>>20))
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.Save(ctx, prefix, field, fh.Filename, f)
}

// Save checks that r holds a JPEG, PNG, GIF or WebP image no larger than the
// configured limit and stores it as prefix + random UUID + extension. field
// names the input in a returned ValidationError.
func (s *MediaService) Save(ctx context.Context, prefix, field, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", invalid(field, fmt.Sprintf("file is larger than %d MiB", s.maxSize>>20))
	}
	if len(data) == 0 {
		return "", invalid(field, "file is empty")
	}

	contentType := http.DetectContentType(data)
	typeExt, ok := allowedImageTypes[contentType]
	if !ok {
		return "", invalid(field, fmt.Sprintf("file type %q is not allowed", contentType))
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", invalid(field, "file is not a valid image")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !extensionMatches(ext, contentType) {
		ext = typeExt
	}
	key := prefix + uuid.New().String() + ext

	if err := s.store.Save(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", err
	}
	return key, nil
}

func extensionMatches(ext, contentType string) bool {
	switch contentType {
	case "image/jpeg":
		return ext == ".jpg" || ext == ".jpeg"
	default:
		return ext == allowedImageTypes[contentType]
	}
}

// Remove deletes key from the store. Failures are logged, not returned: the
// row referencing the object is already gone.
func (s *MediaService) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete media object", zap.String("key", key), zap.Error(err))
	}
}

// URL returns the public address of key, or "" when key is empty.
func (s *MediaService) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.store.URL(key)
}
