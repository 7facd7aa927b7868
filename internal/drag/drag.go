// Package drag implements pick-up, move and drop of board items, top-of-stack
// promotion, and swallowing of the click that follows a real drag.
package drag

import (
	"math"

	"byteGiftAPI/internal/types/board"
)

// Threshold is the net displacement, in pixels on either axis, above which a
// release counts as a drag rather than a click.
const Threshold = 5.0

// Board is the part of a session the controller mutates.
type Board interface {
	Item(id string) (board.Item, bool)
	UpdatePosition(id string, p board.Point)
	Promote(id string) (int, bool)
}

// Target is the element under the pointer when it went down.
type Target string

const (
	TargetItem     Target = "item"
	TargetTextarea Target = "textarea"
	TargetInput    Target = "input"
	TargetButton   Target = "button"
)

// Interactive targets keep the pointer for themselves: typing in a note or
// pressing a control never starts a drag.
func (t Target) Interactive() bool {
	switch t {
	case TargetTextarea, TargetInput, TargetButton:
		return true
	}
	return false
}

type State int

const (
	Idle State = iota
	Dragging
)

// Release describes how a drag ended.
type Release struct {
	ItemID   string
	Position board.Point
	Dragged  bool
}

// Controller follows one pointer. It is not safe for concurrent use.
type Controller struct {
	board Board

	state  State
	itemID string
	offset board.Point
	start  board.Point
	last   board.Point

	suppressed map[string]bool
}

func NewController(b Board) *Controller {
	return &Controller{board: b, suppressed: make(map[string]bool)}
}

func (c *Controller) State() State { return c.state }

// ItemID is the item being dragged, or "" when idle.
func (c *Controller) ItemID() string {
	if c.state != Dragging {
		return ""
	}
	return c.itemID
}

// PointerDown picks up the item and promotes it once. It reports false when no
// drag started. A drag still in progress is dropped where it is first.
func (c *Controller) PointerDown(id string, pointer board.Point, target Target) bool {
	if target.Interactive() {
		return false
	}
	item, ok := c.board.Item(id)
	if !ok {
		return false
	}
	if c.state == Dragging {
		c.Cancel()
	}

	delete(c.suppressed, id)
	c.state = Dragging
	c.itemID = id
	c.offset = pointer.Sub(item.Position)
	c.start = item.Position
	c.last = item.Position

	c.board.Promote(id)
	return true
}

// PointerMove writes the new position through to the board on every call.
func (c *Controller) PointerMove(pointer board.Point) (board.Point, bool) {
	if c.state != Dragging {
		return board.Point{}, false
	}
	c.last = pointer.Sub(c.offset)
	c.board.UpdatePosition(c.itemID, c.last)
	return c.last, true
}

// PointerUp commits the last position. A release that moved the item further
// than Threshold arms suppression of the next click on it.
func (c *Controller) PointerUp() (Release, bool) {
	rel, ok := c.release()
	if !ok {
		return Release{}, false
	}
	if math.Abs(rel.Position.X-c.start.X) > Threshold || math.Abs(rel.Position.Y-c.start.Y) > Threshold {
		rel.Dragged = true
		c.suppressed[rel.ItemID] = true
	}
	return rel, true
}

// Cancel handles lost pointer capture: the item stays at its last position and
// no click is suppressed.
func (c *Controller) Cancel() (Release, bool) {
	return c.release()
}

func (c *Controller) release() (Release, bool) {
	if c.state != Dragging {
		return Release{}, false
	}
	rel := Release{ItemID: c.itemID, Position: c.last}
	c.board.UpdatePosition(c.itemID, c.last)

	c.state = Idle
	c.itemID = ""
	return rel, true
}

// Click reports whether a click on the item should be acted on. The first
// click after a drag is swallowed. Clicking a note brings it to the front.
func (c *Controller) Click(id string) bool {
	if c.suppressed[id] {
		delete(c.suppressed, id)
		return false
	}
	item, ok := c.board.Item(id)
	if !ok {
		return false
	}
	if item.Type() == board.ItemTypeNote {
		c.board.Promote(id)
	}
	return true
}

// Forget drops per-item state for a removed item.
func (c *Controller) Forget(id string) {
	delete(c.suppressed, id)
	if c.state == Dragging && c.itemID == id {
		c.state = Idle
		c.itemID = ""
	}
}
