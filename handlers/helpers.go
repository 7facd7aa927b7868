package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"byteGiftAPI/internal/assets"
	"byteGiftAPI/internal/embed"
	"byteGiftAPI/internal/share"
	"byteGiftAPI/internal/types/board"
	"byteGiftAPI/services"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps domain errors to a status code. Anything
// unrecognised is logged and reported as a 500.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, share.ErrNotFound), errors.Is(err, share.ErrExpired):
		respondWithError(w, http.StatusNotFound, share.ErrNotFound.Error())

	case errors.Is(err, services.ErrBoardNotFound),
		errors.Is(err, services.ErrBoardClosed),
		errors.Is(err, services.ErrItemNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, share.ErrShareIDTaken):
		respondWithError(w, http.StatusConflict, err.Error())

	case errors.Is(err, services.ErrFileTooLarge):
		respondWithError(w, http.StatusRequestEntityTooLarge, err.Error())

	case errors.Is(err, services.ErrAssetUpload),
		errors.Is(err, assets.ErrUpload),
		errors.Is(err, embed.ErrUpstream):
		log.Printf("Upstream failure: %v", err)
		respondWithError(w, http.StatusBadGateway, err.Error())

	case errors.Is(err, embed.ErrUnsupportedMediaLink):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, share.ErrInvalidShareID),
		errors.Is(err, share.ErrEmptyBoard),
		errors.Is(err, share.ErrInvalidRequest),
		errors.Is(err, share.ErrUnresolvedAsset),
		errors.Is(err, board.ErrInvalidItem),
		errors.Is(err, board.ErrUnknownItemType),
		errors.Is(err, assets.ErrUnknownKind),
		errors.Is(err, assets.ErrUnsupportedType),
		errors.Is(err, services.ErrNotDoodle):
		respondWithError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, "request timed out")

	default:
		log.Printf("Internal error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
