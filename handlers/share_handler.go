package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"byteGiftAPI/internal/share"
	"byteGiftAPI/services"

	"github.com/gorilla/mux"
)

const maxShareBodyBytes = 5 << 20

type ShareHandler struct {
	shareService *services.ShareService
}

func NewShareHandler(shareService *services.ShareService) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
	}
}

func (h *ShareHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	req, err := share.DecodeRequest(r.Body, maxShareBodyBytes)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	resp, err := h.shareService.CreateShare(ctx, req.Items, req.ShareID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *ShareHandler) GetShare(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	snap, err := h.shareService.GetShare(ctx, mux.Vars(r)["shareId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snap)
}

func (h *ShareHandler) GetShareQRCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pngBytes, err := h.shareService.ShareQRCode(ctx, mux.Vars(r)["shareId"])
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(pngBytes)
}

func (h *ShareHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	shareID := mux.Vars(r)["shareId"]

	var buf bytes.Buffer
	if err := h.shareService.ExportPDF(ctx, shareID, &buf); err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="bytegift-%s.pdf"`, shareID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *ShareHandler) GetDoodlePNG(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	size := services.DefaultThumbSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "size must be a positive integer")
			return
		}
		size = n
	}

	vars := mux.Vars(r)
	pngBytes, err := h.shareService.DoodlePNG(ctx, vars["shareId"], vars["itemId"], size)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(pngBytes)
}
