package handler

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/artgan/internal/filestore"
	appErr "github.com/xxxsen/artgan/internal/pkg/errors"
)

type FileHandler struct {
	store filestore.Store
}

func NewFileHandler(store filestore.Store) *FileHandler {
	return &FileHandler{store: store}
}

// Get serves stored artifacts for the local store. Objects in s3 are
// addressed by their bucket url and never routed through here.
func (h *FileHandler) Get(c *gin.Context) {
	if h.store.Type() != "local" {
		handleError(c, appErr.ErrNotFound)
		return
	}
	key := c.Param("key")
	if !filestore.ValidKey(key) {
		handleError(c, filestore.ErrInvalidKey)
		return
	}
	file, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = appErr.ErrNotFound
		}
		handleError(c, err)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
