package handlers

import (
	"context"
	"net/http"
	"time"

	"byteGiftAPI/internal/embed"
)

type EmbedHandler struct {
	resolver *embed.Resolver
}

func NewEmbedHandler(resolver *embed.Resolver) *EmbedHandler {
	return &EmbedHandler{
		resolver: resolver,
	}
}

func (h *EmbedHandler) ResolveEmbed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	link := r.URL.Query().Get("url")
	if link == "" {
		respondWithError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	e, err := h.resolver.Resolve(ctx, link)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, e)
}
