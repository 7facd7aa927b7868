package doodle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"byteGiftAPI/internal/types/board"
)

const (
	Padding = 20.0
	MinSize = 50.0
)

var (
	ErrEmpty        = errors.New("doodle: nothing to serialize")
	ErrInvalidPoint = errors.New("doodle: points must be finite and non-negative")
)

type ViewBox struct {
	MinX   float64
	MinY   float64
	Width  float64
	Height float64
}

func (v ViewBox) Contains(p board.Point) bool {
	return p.X >= v.MinX && p.X <= v.MinX+v.Width &&
		p.Y >= v.MinY && p.Y <= v.MinY+v.Height
}

func (v ViewBox) String() string {
	return strings.Join([]string{num(v.MinX), num(v.MinY), num(v.Width), num(v.Height)}, " ")
}

// Primitive is either a Circle or a Path.
type Primitive interface {
	primitive()
}

type Circle struct {
	CX, CY float64
	R      float64
	Color  string
}

type Path struct {
	Points []board.Point
	Color  string
	Width  float64
}

func (Circle) primitive() {}
func (Path) primitive()   {}

// D renders the path data: a move to the first point followed by a line to
// every subsequent point.
func (p Path) D() string {
	var b strings.Builder
	for i, pt := range p.Points {
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString(" L ")
		}
		b.WriteString(num(pt.X))
		b.WriteByte(' ')
		b.WriteString(num(pt.Y))
	}
	return b.String()
}

// Doc is the vector form of a finished drawing.
type Doc struct {
	ViewBox    ViewBox
	Primitives []Primitive
}

// Serialize fits every stroke into one padded view box and emits a circle per
// dot and a path per line, in stroke order. The result depends only on the input.
func Serialize(strokes []Stroke) (Doc, error) {
	var xs, ys []float64
	for _, s := range strokes {
		for _, p := range s.Points {
			if !validPoint(p) {
				return Doc{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidPoint, p.X, p.Y)
			}
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
	}
	if len(xs) == 0 {
		return Doc{}, ErrEmpty
	}

	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)

	viewX, viewW := fitAxis(minX, maxX)
	viewY, viewH := fitAxis(minY, maxY)

	doc := Doc{
		ViewBox:    ViewBox{MinX: viewX, MinY: viewY, Width: viewW, Height: viewH},
		Primitives: make([]Primitive, 0, len(strokes)),
	}

	for _, s := range strokes {
		switch {
		case len(s.Points) == 0:
			continue
		case len(s.Points) == 1:
			p := s.Points[0]
			doc.Primitives = append(doc.Primitives, Circle{CX: p.X, CY: p.Y, R: s.Width / 2, Color: s.Color})
		default:
			pts := make([]board.Point, len(s.Points))
			copy(pts, s.Points)
			doc.Primitives = append(doc.Primitives, Path{Points: pts, Color: s.Color, Width: s.Width})
		}
	}

	return doc, nil
}

// fitAxis pads [lo, hi] on both sides, grows it around its centre up to
// MinSize, then pins the origin at zero.
func fitAxis(lo, hi float64) (origin, size float64) {
	origin = lo - Padding
	size = hi - lo + 2*Padding
	if size < MinSize {
		origin -= (MinSize - size) / 2
		size = MinSize
	}
	return math.Max(0, origin), size
}

func validPoint(p board.Point) bool {
	for _, v := range []float64{p.X, p.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
