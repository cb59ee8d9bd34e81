package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/cloudchat/internal/fileserver"
	"github.com/cloudchat/internal/logger"
	"github.com/cloudchat/internal/middleware"
	"github.com/cloudchat/internal/model"
)

type FileHandler struct {
	files *fileserver.Service
	// contentBase — путь публичной раздачи содержимого, куда ведёт редирект /download.
	contentBase string
}

func NewFileHandler(files *fileserver.Service, contentBase string) *FileHandler {
	return &FileHandler{files: files, contentBase: contentBase}
}

// Upload: POST /upload (multipart, поле "file"). 201 + FileMetadata.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.files.Upload(w, r, middleware.GetUsername(r.Context()))
}

// Download: GET /download/{fileId}: 302 на адрес содержимого.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileId")
	if _, ok := h.metadata(w, fileID); !ok {
		return
	}
	http.Redirect(w, r, h.contentBase+"/"+url.PathEscape(fileID), http.StatusFound)
}

// Metadata: GET /metadata/{fileId}.
func (h *FileHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	meta, ok := h.metadata(w, chi.URLParam(r, "fileId"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// Content: GET {contentBase}/{fileId}: само содержимое.
func (h *FileHandler) Content(w http.ResponseWriter, r *http.Request) {
	h.files.Serve(w, r, chi.URLParam(r, "fileId"))
}

func (h *FileHandler) metadata(w http.ResponseWriter, fileID string) (*model.FileMetadata, bool) {
	meta, err := h.files.Metadata(fileID)
	if errors.Is(err, fileserver.ErrNotFound) {
		writeError(w, http.StatusNotFound, "file not found")
		return nil, false
	}
	if err != nil {
		logger.Errorf("files: metadata %s: %v", fileID, err)
		writeError(w, http.StatusInternalServerError, "failed to read file metadata")
		return nil, false
	}
	return meta, true
}
