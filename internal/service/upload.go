package service

import (
	"context"
	"io"
	"strings"

	"github.com/chatuz-park/gym-now-back/internal/storage"

	"go.uber.org/zap"
)

// Upload is a file received from a client, ready to be streamed to storage.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

const maxImageSize = 10 << 20  // 10 MiB
const maxVideoSize = 200 << 20 // 200 MiB

func validateUpload(u Upload, kind string, maxSize int64) error {
	if u.Body == nil || u.Size <= 0 {
		return validationError("file is empty")
	}
	if u.Size > maxSize {
		return validationError("file exceeds %d MiB", maxSize>>20)
	}
	if !strings.HasPrefix(u.ContentType, kind+"/") {
		return validationError("file must be of type %s/*, got %q", kind, u.ContentType)
	}
	return nil
}

// storeUpload writes u under folder and returns its key and public URL.
func storeUpload(ctx context.Context, files storage.FileStorage, folder string, u Upload) (key, url string, err error) {
	key = storage.NewObjectKey(folder, u.FileName)
	url, err = files.PutObject(ctx, key, u.Body, u.Size, u.ContentType)
	if err != nil {
		return "", "", err
	}
	return key, url, nil
}

// discardObject removes an object that is no longer referenced. The record
// update already succeeded, so a failure is only logged.
func discardObject(ctx context.Context, files storage.FileStorage, log *zap.Logger, key string) {
	if key == "" {
		return
	}
	if err := files.DeleteObject(ctx, key); err != nil {
		log.Warn("object_delete_failed", zap.String("key", key), zap.Error(err))
	}
}
