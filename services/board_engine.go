package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"byteGiftAPI/internal/assets"
	"byteGiftAPI/internal/doodle"
	"byteGiftAPI/internal/drag"
	"byteGiftAPI/internal/recorder"
	"byteGiftAPI/internal/share"
	"byteGiftAPI/internal/types/board"
	"byteGiftAPI/utils"

	"github.com/google/uuid"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrItemNotFound  = errors.New("item not found")
	ErrAssetUpload   = errors.New("failed to upload board asset")
)

const (
	EventSnapshot         = "snapshot"
	EventItemAdded        = "item_added"
	EventItemRemoved      = "item_removed"
	EventItemMoved        = "item_moved"
	EventItemPromoted     = "item_promoted"
	EventNoteUpdated      = "note_updated"
	EventDragEnd          = "drag_end"
	EventClick            = "click"
	EventStroke           = "stroke"
	EventDoodleStyle      = "doodle_style"
	EventDoodleCleared    = "doodle_cleared"
	EventRecording        = "recording"
	EventRecordingStopped = "recording_stopped"
	EventError            = "error"
)

// BoardAction is a message from a browser.
type BoardAction struct {
	Action   string          `json:"action"`
	ItemID   string          `json:"itemId,omitempty"`
	Point    board.Point     `json:"point"`
	Target   drag.Target     `json:"target,omitempty"`
	Text     string          `json:"text,omitempty"`
	Item     json.RawMessage `json:"item,omitempty"`
	Position *board.Point    `json:"position,omitempty"`
	Color    string          `json:"color,omitempty"`
	Width    float64         `json:"width,omitempty"`
	Canvas   *board.Point    `json:"canvas,omitempty"`
}

// BoardEvent is a message to browsers. Only the fields relevant to Event are set.
type BoardEvent struct {
	Event         string         `json:"event"`
	BoardID       string         `json:"boardId,omitempty"`
	ItemID        string         `json:"itemId,omitempty"`
	Item          *board.Item    `json:"item,omitempty"`
	Items         []board.Item   `json:"items,omitempty"`
	HighestZIndex int            `json:"highestZIndex,omitempty"`
	Position      *board.Point   `json:"position,omitempty"`
	ZIndex        *int           `json:"zIndex,omitempty"`
	Content       *string        `json:"content,omitempty"`
	Dragged       *bool          `json:"dragged,omitempty"`
	Handled       *bool          `json:"handled,omitempty"`
	Stroke        *doodle.Stroke `json:"stroke,omitempty"`
	Color         string         `json:"color,omitempty"`
	Width         float64        `json:"width,omitempty"`
	State         string         `json:"state,omitempty"`
	MaxMs         int64          `json:"maxMs,omitempty"`
	DurationMs    int64          `json:"durationMs,omitempty"`
	AutoStopped   bool           `json:"autoStopped,omitempty"`
	Message       string         `json:"message,omitempty"`
}

type actionHandler func(b *LiveBoard, c *BoardClient, a BoardAction) error

var actionHandlers = map[string]actionHandler{
	"snapshot":       handleSnapshot,
	"canvas":         handleCanvas,
	"add_item":       handleAddItem,
	"remove_item":    handleRemoveItem,
	"pointer_down":   handlePointerDown,
	"pointer_move":   handlePointerMove,
	"pointer_up":     handlePointerUp,
	"pointer_cancel": handlePointerCancel,
	"click":          handleClick,
	"note_edit":      handleNoteEdit,
	"stroke_begin":   handleStrokeBegin,
	"stroke_extend":  handleStrokeExtend,
	"stroke_end":     handleStrokeEnd,
	"stroke_cancel":  handleStrokeCancel,
	"doodle_style":   handleDoodleStyle,
	"doodle_clear":   handleDoodleClear,
	"doodle_save":    handleDoodleSave,
	"record_start":   handleRecordStart,
	"record_stop":    handleRecordStop,
	"record_discard": handleRecordDiscard,
}

// handleMessage runs on the board's loop.
func (b *LiveBoard) handleMessage(c *BoardClient, data []byte, binary bool) {
	if binary {
		if _, err := c.recorder.Write(data); err != nil {
			b.sendError(c, err)
		}
		return
	}

	var a BoardAction
	if err := json.Unmarshal(data, &a); err != nil {
		b.sendError(c, fmt.Errorf("malformed message: %w", err))
		return
	}

	h, ok := actionHandlers[a.Action]
	if !ok {
		b.sendError(c, fmt.Errorf("%w: %q", ErrUnknownAction, a.Action))
		return
	}
	if err := h(b, c, a); err != nil {
		b.sendError(c, err)
	}
}

func (b *LiveBoard) sendError(c *BoardClient, err error) {
	b.sendTo(c, BoardEvent{Event: EventError, Message: err.Error()})
}

func (b *LiveBoard) snapshotEvent() BoardEvent {
	return BoardEvent{
		Event:         EventSnapshot,
		BoardID:       b.ID,
		Items:         b.session.List(),
		HighestZIndex: b.session.HighestZIndex(),
	}
}

// placement is where a new item goes: the requested spot, or somewhere random
// on the last canvas size a client reported.
func (b *LiveBoard) placement(requested *board.Point) board.Point {
	if requested != nil {
		return *requested
	}
	return utils.RandomPosition(b.canvas.X, b.canvas.Y)
}

func (b *LiveBoard) create(p board.Payload, at *board.Point) (board.Item, error) {
	item, err := b.session.Create(p, b.placement(at))
	if err != nil {
		return board.Item{}, err
	}
	b.broadcast(BoardEvent{Event: EventItemAdded, Item: &item})
	return item, nil
}

func (b *LiveBoard) stage(kind assets.Kind, filename string, data []byte) string {
	ref := board.BlobScheme + uuid.NewString()
	b.blobs[ref] = stagedBlob{kind: kind, filename: filename, data: data}
	return ref
}

// observed wraps the session so that moves and promotions made by a drag
// controller reach every client.
func (b *LiveBoard) observed() drag.Board { return observedSession{b} }

type observedSession struct{ b *LiveBoard }

func (o observedSession) Item(id string) (board.Item, bool) { return o.b.session.Item(id) }

func (o observedSession) UpdatePosition(id string, p board.Point) {
	if _, ok := o.b.session.Item(id); !ok {
		return
	}
	o.b.session.UpdatePosition(id, p)
	o.b.broadcast(BoardEvent{Event: EventItemMoved, ItemID: id, Position: &p})
}

func (o observedSession) Promote(id string) (int, bool) {
	z, ok := o.b.session.Promote(id)
	if ok {
		o.b.broadcast(BoardEvent{Event: EventItemPromoted, ItemID: id, ZIndex: &z})
	}
	return z, ok
}

func handleSnapshot(b *LiveBoard, c *BoardClient, _ BoardAction) error {
	b.sendTo(c, b.snapshotEvent())
	return nil
}

func handleCanvas(b *LiveBoard, _ *BoardClient, a BoardAction) error {
	if a.Canvas == nil || a.Canvas.X <= 0 || a.Canvas.Y <= 0 {
		return errors.New("canvas size must be positive")
	}
	b.canvas = *a.Canvas
	return nil
}

func handleAddItem(b *LiveBoard, _ *BoardClient, a BoardAction) error {
	var in board.Item
	if err := json.Unmarshal(a.Item, &in); err != nil {
		return fmt.Errorf("%w: %v", board.ErrInvalidItem, err)
	}

	p, err := b.checkPayload(in.Payload)
	if err != nil {
		return err
	}
	_, err = b.create(p, a.Position)
	return err
}

// checkPayload accepts what a browser may place directly: notes, media links,
// doodles that parse, and photos or clips that are either already hosted or
// staged on this board.
func (b *LiveBoard) checkPayload(p board.Payload) (board.Payload, error) {
	switch v := p.(type) {
	case board.Note:
		return v, nil
	case board.Media:
		if strings.TrimSpace(v.URL) == "" {
			return nil, fmt.Errorf("%w: media item needs a link", board.ErrInvalidItem)
		}
		return v, nil
	case board.Doodle:
		doc, err := doodle.ParseSVG(v.SVG)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", board.ErrInvalidItem, err)
		}
		return board.Doodle{SVG: doc.SVG()}, nil
	case board.Photo, board.Audio:
		ref, _ := board.AssetRef(v)
		switch {
		case board.IsBlobRef(ref):
			if _, ok := b.blobs[ref]; !ok {
				return nil, fmt.Errorf("%w: %s is not staged on this board", share.ErrUnresolvedAsset, ref)
			}
		case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "/"):
		default:
			return nil, fmt.Errorf("%w: %s item needs an uploaded asset", board.ErrInvalidItem, v.Type())
		}
		return v, nil
	default:
		return nil, board.ErrUnknownItemType
	}
}

func handleRemoveItem(b *LiveBoard, _ *BoardClient, a BoardAction) error {
	item, ok := b.session.Item(a.ItemID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, a.ItemID)
	}
	b.session.RemoveItem(a.ItemID)

	for cl := range b.clients {
		cl.drag.Forget(a.ItemID)
	}
	if ref, ok := board.AssetRef(item.Payload); ok && board.IsBlobRef(ref) && !b.referenced(ref) {
		delete(b.blobs, ref)
		delete(b.uploaded, ref)
	}

	b.broadcast(BoardEvent{Event: EventItemRemoved, ItemID: a.ItemID})
	return nil
}

func (b *LiveBoard) referenced(ref string) bool {
	for it := range b.session.Items() {
		if r, ok := board.AssetRef(it.Payload); ok && r == ref {
			return true
		}
	}
	return false
}

func handlePointerDown(b *LiveBoard, c *BoardClient, a BoardAction) error {
	target := a.Target
	if target == "" {
		target = drag.TargetItem
	}
	c.drag.PointerDown(a.ItemID, a.Point, target)
	return nil
}

func handlePointerMove(_ *LiveBoard, c *BoardClient, a BoardAction) error {
	c.drag.PointerMove(a.Point)
	return nil
}

func handlePointerUp(b *LiveBoard, c *BoardClient, _ BoardAction) error {
	rel, ok := c.drag.PointerUp()
	if !ok {
		return nil
	}
	b.sendTo(c, BoardEvent{Event: EventDragEnd, ItemID: rel.ItemID, Position: &rel.Position, Dragged: &rel.Dragged})
	return nil
}

func handlePointerCancel(b *LiveBoard, c *BoardClient, _ BoardAction) error {
	rel, ok := c.drag.Cancel()
	if !ok {
		return nil
	}
	b.sendTo(c, BoardEvent{Event: EventDragEnd, ItemID: rel.ItemID, Position: &rel.Position, Dragged: &rel.Dragged})
	return nil
}

func handleClick(b *LiveBoard, c *BoardClient, a BoardAction) error {
	handled := c.drag.Click(a.ItemID)
	b.sendTo(c, BoardEvent{Event: EventClick, ItemID: a.ItemID, Handled: &handled})
	return nil
}

func handleNoteEdit(b *LiveBoard, _ *BoardClient, a BoardAction) error {
	if !b.session.UpdateNoteContent(a.ItemID, a.Text) {
		return fmt.Errorf("%w: no note %s", ErrItemNotFound, a.ItemID)
	}
	text := a.Text
	b.broadcast(BoardEvent{Event: EventNoteUpdated, ItemID: a.ItemID, Content: &text})
	return nil
}

func handleStrokeBegin(_ *LiveBoard, c *BoardClient, a BoardAction) error {
	c.sketch.Begin(a.Point)
	return nil
}

func handleStrokeExtend(_ *LiveBoard, c *BoardClient, a BoardAction) error {
	c.sketch.Extend(a.Point)
	return nil
}

func handleStrokeEnd(b *LiveBoard, c *BoardClient, _ BoardAction) error {
	st, ok := c.sketch.End()
	if ok {
		b.sendTo(c, BoardEvent{Event: EventStroke, Stroke: &st})
	}
	return nil
}

func handleStrokeCancel(_ *LiveBoard, c *BoardClient, _ BoardAction) error {
	c.sketch.Cancel()
	return nil
}

func handleDoodleStyle(b *LiveBoard, c *BoardClient, a BoardAction) error {
	capture := c.sketch.Capture()
	if a.Color != "" {
		if err := capture.SetColor(a.Color); err != nil {
			return err
		}
	}
	if a.Width != 0 {
		if err := capture.SetWidth(a.Width); err != nil {
			return err
		}
	}
	b.sendTo(c, BoardEvent{Event: EventDoodleStyle, Color: capture.Color(), Width: capture.Width()})
	return nil
}

func handleDoodleClear(b *LiveBoard, c *BoardClient, _ BoardAction) error {
	c.sketch.Clear()
	b.sendTo(c, BoardEvent{Event: EventDoodleCleared})
	return nil
}

func handleDoodleSave(b *LiveBoard, c *BoardClient, a BoardAction) error {
	doc, err := c.sketch.Save()
	if err != nil {
		return err
	}
	_, err = b.create(board.Doodle{SVG: doc.SVG()}, a.Position)
	return err
}

func handleRecordStart(b *LiveBoard, c *BoardClient, a BoardAction) error {
	if err := c.recorder.Start(); err != nil {
		return err
	}
	c.recordAt = a.Position
	b.sendTo(c, BoardEvent{Event: EventRecording, State: "recording", MaxMs: c.recorder.MaxDuration().Milliseconds()})
	return nil
}

func handleRecordStop(b *LiveBoard, c *BoardClient, _ BoardAction) error {
	clip, err := c.recorder.Stop()
	if err != nil {
		return err
	}
	b.finishRecording(c, clip)
	return nil
}

func handleRecordDiscard(b *LiveBoard, c *BoardClient, _ BoardAction) error {
	c.recorder.Discard()
	c.recordAt = nil
	b.sendTo(c, BoardEvent{Event: EventRecording, State: "idle"})
	return nil
}

// finishRecording stages a stopped clip and places it as an audio item. It
// runs on the loop, also when the clip was cut off by the time limit.
func (b *LiveBoard) finishRecording(c *BoardClient, clip recorder.Clip) {
	if _, ok := b.clients[c]; !ok {
		return
	}
	at := c.recordAt
	c.recordAt = nil

	b.sendTo(c, BoardEvent{
		Event:       EventRecordingStopped,
		DurationMs:  clip.Duration.Milliseconds(),
		AutoStopped: clip.AutoStopped,
	})

	if len(clip.Data) == 0 {
		b.sendError(c, errors.New("recording was empty"))
		return
	}

	ref := b.stage(assets.KindAudio, "recording"+assets.ExtensionFor(assets.KindAudio, clip.MimeType), clip.Data)
	if _, err := b.create(board.Audio{AudioURL: ref}, at); err != nil {
		delete(b.blobs, ref)
		b.sendError(c, err)
	}
}

// BoardSnapshot is the current state of a live board.
type BoardSnapshot struct {
	BoardID       string       `json:"boardId"`
	Items         []board.Item `json:"items"`
	HighestZIndex int          `json:"highestZIndex"`
}

func (b *LiveBoard) Snapshot(ctx context.Context) (BoardSnapshot, error) {
	var snap BoardSnapshot
	err := b.Call(ctx, func() error {
		snap = BoardSnapshot{BoardID: b.ID, Items: b.session.List(), HighestZIndex: b.session.HighestZIndex()}
		return nil
	})
	return snap, err
}

// AddPhoto keeps an image in memory and places it on the board under a blob
// reference. The image is uploaded only when the board is shared.
func (b *LiveBoard) AddPhoto(ctx context.Context, filename string, data []byte, dateTaken string) (board.Item, error) {
	if _, err := assets.ObjectName(assets.KindImage, filename); err != nil {
		return board.Item{}, err
	}

	var item board.Item
	err := b.Call(ctx, func() error {
		ref := b.stage(assets.KindImage, filename, data)
		var err error
		item, err = b.create(board.Photo{ImageURL: ref, DateTaken: dateTaken}, nil)
		if err != nil {
			delete(b.blobs, ref)
		}
		return err
	})
	return item, err
}

// Share uploads every blob the board still holds, then stores a snapshot of
// the board with durable URLs. Each blob is uploaded at most once across
// shares. If any upload fails nothing is stored.
func (b *LiveBoard) Share(ctx context.Context, desiredID string) (*ShareResponse, error) {
	if desiredID != "" {
		if err := share.ValidateShareID(desiredID); err != nil {
			return nil, err
		}
	}

	var items []board.Item
	pending := make(map[string]stagedBlob)
	resolved := make(map[string]string)

	err := b.Call(ctx, func() error {
		items = b.session.List()
		for _, it := range items {
			ref, ok := board.AssetRef(it.Payload)
			if !ok || !board.IsBlobRef(ref) {
				continue
			}
			if url, done := b.uploaded[ref]; done {
				resolved[ref] = url
				continue
			}
			blob, staged := b.blobs[ref]
			if !staged {
				return fmt.Errorf("%w: %s", share.ErrUnresolvedAsset, ref)
			}
			pending[ref] = blob
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, share.ErrEmptyBoard
	}

	fresh := make(map[string]string, len(pending))
	var uploadErr error
	for ref, blob := range pending {
		url, err := b.manager.uploads.Upload(ctx, blob.kind, blob.filename, bytes.NewReader(blob.data))
		if err != nil {
			uploadErr = fmt.Errorf("%w: %w", ErrAssetUpload, err)
			break
		}
		fresh[ref] = url
		resolved[ref] = url
	}

	if len(fresh) > 0 {
		if err := b.Call(ctx, func() error {
			for ref, url := range fresh {
				b.uploaded[ref] = url
				delete(b.blobs, ref)
			}
			return nil
		}); err != nil {
			log.Printf("[Board %s] Could not record uploaded assets: %v", b.ID, err)
		}
	}
	if uploadErr != nil {
		return nil, uploadErr
	}

	for i, it := range items {
		if ref, ok := board.AssetRef(it.Payload); ok && board.IsBlobRef(ref) {
			items[i].Payload = board.WithAssetRef(it.Payload, resolved[ref])
		}
	}

	return b.manager.shares.CreateShare(ctx, items, desiredID)
}
