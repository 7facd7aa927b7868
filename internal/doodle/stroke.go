// Package doodle turns freehand pointer input into strokes and strokes into
// a compact vector document that can be stored on a board item and re-rendered
// at any position or scale.
package doodle

import (
	"errors"
	"math"
	"regexp"

	"byteGiftAPI/internal/types/board"
)

type Kind string

const (
	KindLine Kind = "line"
	KindDot  Kind = "dot"
)

const (
	DefaultColor = "#000000"
	DefaultWidth = 8.0
)

// Palette offered by the drawing tray.
var Palette = []string{"#000000", "#f87171", "#60a5fa", "#4ade80", "#c084fc", "#fbbf24", "#f472b6"}

var (
	ErrInvalidColor = errors.New("doodle: colour must be #rgb or #rrggbb")
	ErrInvalidWidth = errors.New("doodle: width must be a positive number")
)

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Stroke is one finished gesture. Kind is KindDot exactly when it holds a
// single point.
type Stroke struct {
	Kind   Kind          `json:"kind"`
	Points []board.Point `json:"points"`
	Color  string        `json:"color"`
	Width  float64       `json:"width"`
}

// Capture accumulates pointer samples for the stroke in progress.
// It never touches a board; the caller decides what to do with a finished stroke.
type Capture struct {
	color  string
	width  float64
	points []board.Point
	active bool
}

func NewCapture() *Capture {
	return &Capture{color: DefaultColor, width: DefaultWidth}
}

func (c *Capture) Color() string  { return c.color }
func (c *Capture) Width() float64 { return c.width }
func (c *Capture) Active() bool   { return c.active }

func (c *Capture) SetColor(color string) error {
	if !hexColorRe.MatchString(color) {
		return ErrInvalidColor
	}
	c.color = color
	return nil
}

func (c *Capture) SetWidth(w float64) error {
	if !(w > 0) || math.IsInf(w, 0) {
		return ErrInvalidWidth
	}
	c.width = w
	return nil
}

// Begin starts a new stroke with the current style. A stroke still in
// progress is abandoned.
func (c *Capture) Begin(p board.Point) {
	c.points = append(make([]board.Point, 0, 32), clampToCanvas(p))
	c.active = true
}

// Extend appends a sample. It is a no-op when no stroke is in progress.
func (c *Capture) Extend(p board.Point) {
	if !c.active {
		return
	}
	c.points = append(c.points, clampToCanvas(p))
}

// Finish finalizes the stroke in progress. ok is false when there is nothing
// to finish, which callers treat as a cancel.
func (c *Capture) Finish() (s Stroke, ok bool) {
	defer c.Cancel()

	if !c.active || len(c.points) == 0 {
		return Stroke{}, false
	}

	kind := KindLine
	if len(c.points) == 1 {
		kind = KindDot
	}
	return Stroke{Kind: kind, Points: c.points, Color: c.color, Width: c.width}, true
}

// Cancel discards the stroke in progress without producing anything.
func (c *Capture) Cancel() {
	c.points = nil
	c.active = false
}

// Canvas-local coordinates are never negative; samples taken after the
// pointer slid past the top or left edge are pinned to it.
func clampToCanvas(p board.Point) board.Point {
	return board.Point{X: math.Max(0, p.X), Y: math.Max(0, p.Y)}
}
