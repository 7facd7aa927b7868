package doodle

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"byteGiftAPI/internal/types/board"
)

func TestCaptureKeepsPointsInOrder(t *testing.T) {
	for n := 1; n <= 20; n++ {
		c := NewCapture()
		want := make([]board.Point, n)
		for i := range want {
			want[i] = board.Point{X: rand.Float64() * 500, Y: rand.Float64() * 500}
		}

		c.Begin(want[0])
		for _, p := range want[1:] {
			c.Extend(p)
		}

		s, ok := c.Finish()
		require.True(t, ok)
		assert.Equal(t, want, s.Points)
		if n == 1 {
			assert.Equal(t, KindDot, s.Kind)
		} else {
			assert.Equal(t, KindLine, s.Kind)
		}
	}
}

func TestFinishWithoutPointsIsNoStroke(t *testing.T) {
	c := NewCapture()

	_, ok := c.Finish()
	assert.False(t, ok)

	c.Extend(board.Point{X: 3, Y: 4})
	_, ok = c.Finish()
	assert.False(t, ok, "extend without begin must not start a stroke")
}

func TestTapThenBeginProducesDot(t *testing.T) {
	c := NewCapture()

	c.Begin(board.Point{X: 100, Y: 100})
	tap, ok := c.Finish()
	require.True(t, ok)
	assert.Equal(t, KindDot, tap.Kind)
	assert.False(t, c.Active())

	c.Begin(board.Point{X: 5, Y: 5})
	c.Extend(board.Point{X: 6, Y: 6})
	line, ok := c.Finish()
	require.True(t, ok)
	assert.Equal(t, KindLine, line.Kind)
	assert.Len(t, line.Points, 2)
}

func TestCancelDiscardsInProgressStroke(t *testing.T) {
	s := NewSketch()
	s.Begin(board.Point{X: 1, Y: 1})
	s.Extend(board.Point{X: 2, Y: 2})
	s.Cancel()

	_, ok := s.End()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestCaptureStyle(t *testing.T) {
	c := NewCapture()
	assert.Equal(t, DefaultColor, c.Color())
	assert.Equal(t, DefaultWidth, c.Width())

	require.NoError(t, c.SetColor("#f87171"))
	require.NoError(t, c.SetWidth(3))
	assert.ErrorIs(t, c.SetColor("red"), ErrInvalidColor)
	assert.ErrorIs(t, c.SetWidth(0), ErrInvalidWidth)

	c.Begin(board.Point{X: -4, Y: 10})
	s, ok := c.Finish()
	require.True(t, ok)
	assert.Equal(t, "#f87171", s.Color)
	assert.Equal(t, 3.0, s.Width)
	assert.Equal(t, board.Point{X: 0, Y: 10}, s.Points[0])
}

func TestSerializeTap(t *testing.T) {
	c := NewCapture()
	c.Begin(board.Point{X: 100, Y: 100})
	s, ok := c.Finish()
	require.True(t, ok)

	doc, err := Serialize([]Stroke{s})
	require.NoError(t, err)

	assert.Equal(t, []Primitive{Circle{CX: 100, CY: 100, R: 4, Color: DefaultColor}}, doc.Primitives)
	assert.Equal(t, ViewBox{MinX: 75, MinY: 75, Width: 50, Height: 50}, doc.ViewBox)
}

func TestSerializeLine(t *testing.T) {
	line := Stroke{
		Kind:   KindLine,
		Points: []board.Point{{X: 10, Y: 10}, {X: 200, Y: 40.5}, {X: 120, Y: 90}},
		Color:  "#60a5fa",
		Width:  8,
	}

	doc, err := Serialize([]Stroke{line})
	require.NoError(t, err)
	require.Len(t, doc.Primitives, 1)

	path, ok := doc.Primitives[0].(Path)
	require.True(t, ok)
	assert.Equal(t, "M 10 10 L 200 40.5 L 120 90", path.D())
	// padded origin is clamped at zero
	assert.Equal(t, ViewBox{MinX: 0, MinY: 0, Width: 230, Height: 120}, doc.ViewBox)
}

func TestSerializeViewBoxContainsAllPoints(t *testing.T) {
	for i := 0; i < 100; i++ {
		var strokes []Stroke
		for s := 0; s < 1+rand.IntN(4); s++ {
			c := NewCapture()
			c.Begin(board.Point{X: rand.Float64() * 800, Y: rand.Float64() * 600})
			for k := 0; k < rand.IntN(10); k++ {
				c.Extend(board.Point{X: rand.Float64() * 800, Y: rand.Float64() * 600})
			}
			st, ok := c.Finish()
			require.True(t, ok)
			strokes = append(strokes, st)
		}

		doc, err := Serialize(strokes)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, doc.ViewBox.Width, MinSize)
		assert.GreaterOrEqual(t, doc.ViewBox.Height, MinSize)
		for _, st := range strokes {
			for _, p := range st.Points {
				assert.True(t, doc.ViewBox.Contains(p), "point %v outside %v", p, doc.ViewBox)
			}
		}

		again, err := Serialize(strokes)
		require.NoError(t, err)
		assert.Equal(t, doc, again)
	}
}

func TestSerializeRejectsEmptyAndInvalid(t *testing.T) {
	_, err := Serialize(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Serialize([]Stroke{{Kind: KindLine}})
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Serialize([]Stroke{{Kind: KindDot, Points: []board.Point{{X: -1, Y: 0}}, Width: 8}})
	assert.ErrorIs(t, err, ErrInvalidPoint)
}

func TestSketchSave(t *testing.T) {
	s := NewSketch()
	_, err := s.Save()
	assert.ErrorIs(t, err, ErrEmpty)

	s.Begin(board.Point{X: 30, Y: 30})
	_, ok := s.End()
	require.True(t, ok)
	s.Begin(board.Point{X: 40, Y: 40})
	s.Extend(board.Point{X: 80, Y: 60})
	_, ok = s.End()
	require.True(t, ok)
	assert.Equal(t, 2, s.Len())

	doc, err := s.Save()
	require.NoError(t, err)
	assert.Len(t, doc.Primitives, 2)
	assert.Equal(t, 0, s.Len())
}

func TestSVGRoundTrip(t *testing.T) {
	doc, err := Serialize([]Stroke{
		{Kind: KindDot, Points: []board.Point{{X: 100, Y: 100}}, Color: "#000000", Width: 8},
		{Kind: KindLine, Points: []board.Point{{X: 90, Y: 80}, {X: 130.25, Y: 140}}, Color: "#4ade80", Width: 6},
	})
	require.NoError(t, err)

	svg := doc.SVG()
	assert.Contains(t, svg, `viewBox="70 60 80.25 100"`)
	assert.Contains(t, svg, `<circle cx="100" cy="100" r="4" fill="#000000"/>`)
	assert.Contains(t, svg, `d="M 90 80 L 130.25 140"`)
	assert.Contains(t, svg, `stroke-linecap="round"`)
	assert.Contains(t, svg, `fill="none"`)

	parsed, err := ParseSVG(svg)
	require.NoError(t, err)
	assert.Equal(t, doc, parsed)
	assert.Equal(t, svg, parsed.SVG())
}

func TestParseSVGDropsUnknownElements(t *testing.T) {
	doc, err := ParseSVG(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 60 60">` +
		`<script>alert(1)</script>` +
		`<path d="M10,10 L20,20 L30,10" stroke="#f472b6" stroke-width="4"/>` +
		`</svg>`)
	require.NoError(t, err)
	require.Len(t, doc.Primitives, 1)
	assert.Equal(t, Path{
		Points: []board.Point{{X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 10}},
		Color:  "#f472b6",
		Width:  4,
	}, doc.Primitives[0])
}

func TestParseSVGRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not xml":        `<svg`,
		"no viewBox":     `<svg></svg>`,
		"curve":          `<svg viewBox="0 0 50 50"><path d="M 1 1 C 2 2 3 3 4 4"/></svg>`,
		"second subpath": `<svg viewBox="0 0 50 50"><path d="M 1 1 L 2 2 M 3 3 L 4 4"/></svg>`,
		"single point":   `<svg viewBox="0 0 50 50"><path d="M 1 1"/></svg>`,
		"bad circle":     `<svg viewBox="0 0 50 50"><circle cx="a" cy="1" r="2"/></svg>`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSVG(in)
			assert.ErrorIs(t, err, ErrMalformedSVG)
		})
	}
}

func TestRasterize(t *testing.T) {
	doc, err := Serialize([]Stroke{
		{Kind: KindDot, Points: []board.Point{{X: 100, Y: 100}}, Color: "#f87171", Width: 20},
	})
	require.NoError(t, err)

	img := Rasterize(doc, 100, 100)
	center := img.RGBAAt(50, 50)
	assert.Equal(t, uint8(0xf8), center.R)
	assert.Equal(t, uint8(0xff), center.A)
	assert.Equal(t, uint8(0), img.RGBAAt(1, 1).A)
}
