package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"byteGiftAPI/internal/assets"
	"byteGiftAPI/services"

	"github.com/gorilla/mux"
)

// multipart overhead allowed on top of the file itself
const formSlack = 1 << 20

type UploadHandler struct {
	uploadService *services.UploadService
}

func NewUploadHandler(uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
	}
}

// Upload stores one file sent as multipart form data. The form field is
// named after the kind: "image" or "audio".
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	kind, err := assets.ParseKind(mux.Vars(r)["kind"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.uploadService.MaxBytes()+formSlack)
	file, header, err := r.FormFile(string(kind))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithServiceError(w, services.ErrFileTooLarge)
			return
		}
		respondWithError(w, http.StatusBadRequest, "missing file field "+string(kind))
		return
	}
	defer file.Close()

	url, err := h.uploadService.Upload(ctx, kind, header.Filename, file)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}
