package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = time.Hour

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// PutObject uploads body under key and returns the object's public URL.
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)

	// DeleteObject removes an object. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, key string) error

	// PresignGetURL creates a temporary URL that allows GET requests for the object.
	PresignGetURL(ctx context.Context, key string, expires time.Duration) (string, error)

	// ObjectURL is the public URL of key; it does not contact the backend.
	ObjectURL(key string) string
}

// NewObjectKey builds a collision-free key inside folder that keeps the
// extension of the original file name, e.g. "clients/5f0c...e1.jpg".
func NewObjectKey(folder, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	key := uuid.NewString() + ext
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return key
	}
	return folder + "/" + key
}
