package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/chatuz-park/gym-now-back/internal/service"

	"github.com/gin-gonic/gin"
)

// formUpload opens the multipart "file" field. The caller must close the
// returned file once the upload has been stored.
func formUpload(c *gin.Context) (service.Upload, multipart.File, error) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return service.Upload{}, nil, errors.New("file is required")
		}
		return service.Upload{}, nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	f, err := header.Open()
	if err != nil {
		return service.Upload{}, nil, fmt.Errorf("could not read upload: %w", err)
	}
	return service.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	}, f, nil
}
