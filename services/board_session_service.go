// A LiveBoard is one collaborative canvas. Its Run loop is the only goroutine
// that touches the board's session, the per-client drag and drawing state and
// the staged blobs. Everything else talks to it through channels:
//
//	register / unregister  websocket clients joining and leaving
//	inbound                frames read by a client's ReadPump
//	calls                  work posted by HTTP handlers and recorder timers
//
// The manager keeps the boards by id and drops a board once its loop exits.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"byteGiftAPI/internal/assets"
	"byteGiftAPI/internal/doodle"
	"byteGiftAPI/internal/drag"
	"byteGiftAPI/internal/metrics"
	"byteGiftAPI/internal/recorder"
	"byteGiftAPI/internal/session"
	"byteGiftAPI/internal/types/board"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Audio arrives in binary chunks.
	maxMessageSize = 1 << 20

	sendBuffer = 256
)

var (
	ErrBoardNotFound = errors.New("board not found")
	ErrBoardClosed   = errors.New("board is closed")
)

// BoardManager holds all live boards.
type BoardManager struct {
	boards map[string]*LiveBoard
	mu     sync.RWMutex

	uploads      *UploadService
	shares       *ShareService
	recordingMax time.Duration
	idle         time.Duration
	now          func() time.Time
}

func NewBoardManager(uploads *UploadService, shares *ShareService, recordingMax, idle time.Duration) *BoardManager {
	if recordingMax <= 0 {
		recordingMax = recorder.DefaultMaxDuration
	}
	return &BoardManager{
		boards:       make(map[string]*LiveBoard),
		uploads:      uploads,
		shares:       shares,
		recordingMax: recordingMax,
		idle:         idle,
		now:          time.Now,
	}
}

// CreateBoard starts an empty board.
func (m *BoardManager) CreateBoard() *LiveBoard {
	return m.start(uuid.NewString(), session.New())
}

// RestoreBoard starts a live board holding a copy of a shared snapshot.
func (m *BoardManager) RestoreBoard(ctx context.Context, shareID string) (*LiveBoard, error) {
	snap, err := m.shares.GetShare(ctx, shareID)
	if err != nil {
		return nil, err
	}
	s, err := session.FromItems(snap.Items)
	if err != nil {
		return nil, err
	}
	return m.start(uuid.NewString(), s), nil
}

func (m *BoardManager) start(id string, s *session.Session) *LiveBoard {
	b := newLiveBoard(id, s, m)

	m.mu.Lock()
	m.boards[id] = b
	m.mu.Unlock()

	metrics.LiveBoards.Inc()
	go b.Run()
	return b
}

func (m *BoardManager) GetBoard(id string) (*LiveBoard, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.boards[id]
	return b, ok
}

func (m *BoardManager) DeleteBoard(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; ok {
		delete(m.boards, id)
		metrics.LiveBoards.Dec()
	}
}

func (m *BoardManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.boards)
}

// ReapIdle closes boards that have had no clients for longer than the idle
// limit and returns how many it closed.
func (m *BoardManager) ReapIdle(ctx context.Context) int {
	if m.idle <= 0 {
		return 0
	}

	m.mu.RLock()
	boards := make([]*LiveBoard, 0, len(m.boards))
	for _, b := range m.boards {
		boards = append(boards, b)
	}
	m.mu.RUnlock()

	now := m.now()
	closed := 0
	for _, b := range boards {
		if ctx.Err() != nil {
			break
		}
		since := b.emptySince.Load()
		if since == 0 || now.Sub(time.Unix(0, since)) < m.idle {
			continue
		}
		b.Close()
		closed++
	}
	return closed
}

// Shutdown closes every board and waits for their loops to finish.
func (m *BoardManager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	boards := make([]*LiveBoard, 0, len(m.boards))
	for _, b := range m.boards {
		boards = append(boards, b)
	}
	m.mu.RUnlock()

	for _, b := range boards {
		b.Close()
	}
	for _, b := range boards {
		select {
		case <-b.done:
		case <-ctx.Done():
			return
		}
	}
}

type clientMessage struct {
	client *BoardClient
	data   []byte
	binary bool
}

type boardCall struct {
	fn   func() error
	done chan error
}

// stagedBlob is a photo or audio clip that lives only in memory until the
// board is shared.
type stagedBlob struct {
	kind     assets.Kind
	filename string
	data     []byte
}

type LiveBoard struct {
	ID      string
	manager *BoardManager

	// owned by Run
	session  *session.Session
	clients  map[*BoardClient]bool
	blobs    map[string]stagedBlob
	uploaded map[string]string
	canvas   board.Point

	register   chan *BoardClient
	unregister chan *BoardClient
	inbound    chan clientMessage
	calls      chan boardCall

	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	// unix nanos of when the last client left; 0 while anyone is connected
	emptySince atomic.Int64
}

func newLiveBoard(id string, s *session.Session, m *BoardManager) *LiveBoard {
	b := &LiveBoard{
		ID:         id,
		manager:    m,
		session:    s,
		clients:    make(map[*BoardClient]bool),
		blobs:      make(map[string]stagedBlob),
		uploaded:   make(map[string]string),
		register:   make(chan *BoardClient),
		unregister: make(chan *BoardClient),
		inbound:    make(chan clientMessage, sendBuffer),
		calls:      make(chan boardCall),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	b.emptySince.Store(m.now().UnixNano())
	return b
}

func (b *LiveBoard) Run() {
	defer func() {
		for c := range b.clients {
			b.dropClient(c)
		}
		b.manager.DeleteBoard(b.ID)
		close(b.done)
	}()

	for {
		select {
		case c := <-b.register:
			b.addClient(c)
			log.Printf("[Board %s] Client connected. Count: %d", b.ID, len(b.clients))

		case c := <-b.unregister:
			if _, ok := b.clients[c]; ok {
				b.dropClient(c)
				if len(b.clients) == 0 {
					log.Printf("[Board %s] Empty, destroying.", b.ID)
					return
				}
			}

		case msg := <-b.inbound:
			if _, ok := b.clients[msg.client]; ok {
				b.handleMessage(msg.client, msg.data, msg.binary)
			}

		case call := <-b.calls:
			call.done <- call.fn()

		case <-b.quit:
			log.Printf("[Board %s] Closed.", b.ID)
			return
		}
	}
}

// Close stops the board's loop. Connected clients are disconnected.
func (b *LiveBoard) Close() {
	b.quitOnce.Do(func() { close(b.quit) })
}

// Done is closed once the board's loop has exited.
func (b *LiveBoard) Done() <-chan struct{} { return b.done }

// Call runs fn on the board's loop and returns its error.
func (b *LiveBoard) Call(ctx context.Context, fn func() error) error {
	call := boardCall{fn: fn, done: make(chan error, 1)}

	select {
	case b.calls <- call:
	case <-b.done:
		return ErrBoardClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-call.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn on the loop without waiting for it. It gives up once the
// board has stopped.
func (b *LiveBoard) post(fn func()) {
	call := boardCall{fn: func() error { fn(); return nil }, done: make(chan error, 1)}
	select {
	case b.calls <- call:
	case <-b.done:
	}
}

// Join hands a connected client to the board.
func (b *LiveBoard) Join(c *BoardClient) error {
	select {
	case b.register <- c:
		return nil
	case <-b.done:
		return ErrBoardClosed
	}
}

func (b *LiveBoard) leave(c *BoardClient) {
	select {
	case b.unregister <- c:
	case <-b.done:
	}
}

func (b *LiveBoard) deliver(msg clientMessage) bool {
	select {
	case b.inbound <- msg:
		return true
	case <-b.done:
		return false
	}
}

func (b *LiveBoard) addClient(c *BoardClient) {
	c.drag = drag.NewController(b.observed())
	c.sketch = doodle.NewSketch()
	c.recorder = recorder.New(b.manager.recordingMax, recorder.DefaultMimeType, func(clip recorder.Clip) {
		b.post(func() { b.finishRecording(c, clip) })
	})

	b.clients[c] = true
	b.emptySince.Store(0)
	b.sendTo(c, b.snapshotEvent())
}

func (b *LiveBoard) dropClient(c *BoardClient) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	delete(b.clients, c)
	close(c.send)
	if len(b.clients) == 0 {
		b.emptySince.Store(b.manager.now().UnixNano())
	}

	c.recorder.Discard()
	if rel, ok := c.drag.Cancel(); ok {
		b.broadcast(BoardEvent{Event: EventItemMoved, ItemID: rel.ItemID, Position: &rel.Position})
	}
}

func (b *LiveBoard) sendTo(c *BoardClient, ev BoardEvent) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Board %s] Error marshalling %s event: %v", b.ID, ev.Event, err)
		return
	}
	select {
	case c.send <- data:
	default:
		b.dropClient(c)
	}
}

func (b *LiveBoard) broadcast(ev BoardEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Board %s] Error marshalling %s event: %v", b.ID, ev.Event, err)
		return
	}
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			b.dropClient(c)
		}
	}
}

// BoardClient sits between one websocket connection and its board.
type BoardClient struct {
	Board *LiveBoard
	Conn  *websocket.Conn
	send  chan []byte

	// owned by the board's loop
	drag     *drag.Controller
	sketch   *doodle.Sketch
	recorder *recorder.Recorder
	recordAt *board.Point
}

func NewBoardClient(b *LiveBoard, conn *websocket.Conn) *BoardClient {
	return &BoardClient{Board: b, Conn: conn, send: make(chan []byte, sendBuffer)}
}

// ReadPump forwards frames from the browser to the board. Text frames carry
// JSON actions, binary frames carry audio for the recording in progress.
func (c *BoardClient) ReadPump() {
	defer func() {
		c.Board.leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Board %s] Error reading message: %v", c.Board.ID, err)
			}
			return
		}

		msg := clientMessage{client: c, data: message, binary: msgType == websocket.BinaryMessage}
		if !c.Board.deliver(msg) {
			return
		}
	}
}

// WritePump handles messages going to the browser.
func (c *BoardClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The board closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
