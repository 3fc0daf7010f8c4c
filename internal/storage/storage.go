// Package storage keeps claim attachment bytes outside the database.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// Object identifies a stored file.
type Object struct {
	Filename string
	Path     string
	Size     int64
}

// FileStore saves, streams and removes attachment files.
type FileStore interface {
	Save(ctx context.Context, originalName, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg":         {},
	"image/png":          {},
	"image/gif":          {},
	"image/webp":         {},
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"text/plain": {},
	"text/csv":   {},
}

// ValidateUpload rejects files whose type is not allow-listed or whose size exceeds maxSize.
func ValidateUpload(contentType string, size, maxSize int64) error {
	mimeType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return apperrors.NewBadRequest(fmt.Sprintf("File type %s is not allowed", mimeType))
	}
	if size <= 0 {
		return apperrors.NewBadRequest("File is empty")
	}
	if maxSize > 0 && size > maxSize {
		return apperrors.NewBadRequest(fmt.Sprintf("File exceeds the maximum size of %d bytes", maxSize))
	}
	return nil
}

// objectKey builds YYYY/MM/<uuid><ext> for an upload made at now.
func objectKey(originalName string, now time.Time) (key, filename string) {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(originalName, "\\", "/")))
	filename = uuid.NewString() + ext
	return path.Join(now.Format("2006"), now.Format("01"), filename), filename
}
