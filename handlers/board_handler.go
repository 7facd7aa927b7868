package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"byteGiftAPI/services"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type BoardHandler struct {
	boardManager  *services.BoardManager
	maxPhotoBytes int64
}

func NewBoardHandler(boardManager *services.BoardManager, maxPhotoBytes int64) *BoardHandler {
	return &BoardHandler{
		boardManager:  boardManager,
		maxPhotoBytes: maxPhotoBytes,
	}
}

type createBoardRequest struct {
	// optional: start from a copy of a shared board
	FromShareID string `json:"fromShareId"`
}

func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req createBoardRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var b *services.LiveBoard
	if req.FromShareID != "" {
		var err error
		if b, err = h.boardManager.RestoreBoard(ctx, req.FromShareID); err != nil {
			respondWithServiceError(w, err)
			return
		}
	} else {
		b = h.boardManager.CreateBoard()
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"boardId": b.ID,
		"wsUrl":   "/api/v1/boards/" + b.ID + "/ws",
	})
}

func (h *BoardHandler) board(w http.ResponseWriter, r *http.Request) (*services.LiveBoard, bool) {
	b, ok := h.boardManager.GetBoard(mux.Vars(r)["boardId"])
	if !ok {
		respondWithServiceError(w, services.ErrBoardNotFound)
		return nil, false
	}
	return b, true
}

func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, ok := h.board(w, r)
	if !ok {
		return
	}

	snap, err := b.Snapshot(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snap)
}

func (h *BoardHandler) JoinBoard(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	client := services.NewBoardClient(b, conn)
	if err := b.Join(client); err != nil {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// AddPhoto places an image from a multipart "image" field on the board. It is
// held in memory until the board is shared.
func (h *BoardHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	b, ok := h.board(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxPhotoBytes+formSlack)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithServiceError(w, services.ErrFileTooLarge)
			return
		}
		respondWithError(w, http.StatusBadRequest, "missing file field image")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxPhotoBytes+1))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "could not read image")
		return
	}
	if int64(len(data)) > h.maxPhotoBytes {
		respondWithServiceError(w, services.ErrFileTooLarge)
		return
	}

	item, err := b.AddPhoto(ctx, header.Filename, data, r.FormValue("dateTaken"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, item)
}

func (h *BoardHandler) ShareBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	b, ok := h.board(w, r)
	if !ok {
		return
	}

	var req struct {
		ShareID string `json:"shareId"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := b.Share(ctx, req.ShareID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}
