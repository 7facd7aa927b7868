package doodle

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/vector"
)

const circleSegments = 32

// Rasterize paints the document into a w x h image with a transparent
// background. The view box is scaled uniformly and centred.
func Rasterize(doc Doc, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	vb := doc.ViewBox
	if w <= 0 || h <= 0 || vb.Width <= 0 || vb.Height <= 0 {
		return dst
	}

	scale := math.Min(float64(w)/vb.Width, float64(h)/vb.Height)
	offX := (float64(w) - vb.Width*scale) / 2
	offY := (float64(h) - vb.Height*scale) / 2
	project := func(x, y float64) (float32, float32) {
		return float32((x-vb.MinX)*scale + offX), float32((y-vb.MinY)*scale + offY)
	}

	r := vector.NewRasterizer(w, h)
	fill := func(c color.Color) {
		r.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
		r.Reset(w, h)
	}

	for _, p := range doc.Primitives {
		switch v := p.(type) {
		case Circle:
			cx, cy := project(v.CX, v.CY)
			circle(r, cx, cy, float32(math.Max(v.R*scale, 0.5)))
			fill(parseColor(v.Color))
		case Path:
			c := parseColor(v.Color)
			half := float32(math.Max(v.Width*scale, 1) / 2)
			for i := 1; i < len(v.Points); i++ {
				x0, y0 := project(v.Points[i-1].X, v.Points[i-1].Y)
				x1, y1 := project(v.Points[i].X, v.Points[i].Y)
				segment(r, x0, y0, x1, y1, half)
				fill(c)
			}
			// round caps and joins
			for _, pt := range v.Points {
				x, y := project(pt.X, pt.Y)
				circle(r, x, y, half)
				fill(c)
			}
		}
	}

	return dst
}

func segment(r *vector.Rasterizer, x0, y0, x1, y1, half float32) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		return
	}
	nx, ny := -dy/l*half, dx/l*half

	r.MoveTo(x0+nx, y0+ny)
	r.LineTo(x1+nx, y1+ny)
	r.LineTo(x1-nx, y1-ny)
	r.LineTo(x0-nx, y0-ny)
	r.ClosePath()
}

func circle(r *vector.Rasterizer, cx, cy, radius float32) {
	for i := 0; i <= circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		x := cx + radius*float32(math.Cos(a))
		y := cy + radius*float32(math.Sin(a))
		if i == 0 {
			r.MoveTo(x, y)
		} else {
			r.LineTo(x, y)
		}
	}
	r.ClosePath()
}

// parseColor understands #rgb and #rrggbb; anything else paints black.
func parseColor(s string) color.Color {
	if !hexColorRe.MatchString(s) {
		return color.Black
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
