package doodle

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"byteGiftAPI/internal/types/board"
)

var ErrMalformedSVG = errors.New("doodle: malformed svg")

const svgNS = "http://www.w3.org/2000/svg"

// SVG writes the document as a standalone <svg> element. Strokes keep their
// on-screen width when the element is scaled.
func (d Doc) SVG() string {
	var b strings.Builder
	vb := d.ViewBox

	fmt.Fprintf(&b, `<svg xmlns="%s" width="%s" height="%s" viewBox="%s">`,
		svgNS, num(vb.Width), num(vb.Height), vb.String())

	for _, p := range d.Primitives {
		switch v := p.(type) {
		case Circle:
			fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s" fill="%s"/>`,
				num(v.CX), num(v.CY), num(v.R), escape(v.Color))
		case Path:
			fmt.Fprintf(&b, `<path d="%s" stroke="%s" stroke-width="%s" fill="none" stroke-linecap="round" stroke-linejoin="round" vector-effect="non-scaling-stroke"/>`,
				v.D(), escape(v.Color), num(v.Width))
		}
	}

	b.WriteString("</svg>")
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

type svgRoot struct {
	XMLName xml.Name  `xml:"svg"`
	ViewBox string    `xml:"viewBox,attr"`
	Nodes   []svgNode `xml:",any"`
}

type svgNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
}

func (n svgNode) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// ParseSVG reads back a document produced by Doc.SVG. Elements other than
// circle and path are dropped; path data may only use absolute M and L.
func ParseSVG(s string) (Doc, error) {
	var root svgRoot
	if err := xml.Unmarshal([]byte(s), &root); err != nil {
		return Doc{}, fmt.Errorf("%w: %v", ErrMalformedSVG, err)
	}

	nums, err := parseNumbers(root.ViewBox)
	if err != nil || len(nums) != 4 || nums[2] <= 0 || nums[3] <= 0 {
		return Doc{}, fmt.Errorf("%w: bad viewBox %q", ErrMalformedSVG, root.ViewBox)
	}
	doc := Doc{ViewBox: ViewBox{MinX: nums[0], MinY: nums[1], Width: nums[2], Height: nums[3]}}

	for _, n := range root.Nodes {
		switch n.XMLName.Local {
		case "circle":
			c, err := parseCircle(n)
			if err != nil {
				return Doc{}, err
			}
			doc.Primitives = append(doc.Primitives, c)
		case "path":
			p, err := parsePath(n)
			if err != nil {
				return Doc{}, err
			}
			doc.Primitives = append(doc.Primitives, p)
		}
	}

	return doc, nil
}

func parseCircle(n svgNode) (Circle, error) {
	var vals [3]float64
	for i, name := range []string{"cx", "cy", "r"} {
		v, err := parseFloat(n.attr(name))
		if err != nil {
			return Circle{}, fmt.Errorf("%w: circle %s: %v", ErrMalformedSVG, name, err)
		}
		vals[i] = v
	}
	if vals[2] < 0 {
		return Circle{}, fmt.Errorf("%w: negative radius", ErrMalformedSVG)
	}
	return Circle{CX: vals[0], CY: vals[1], R: vals[2], Color: n.attr("fill")}, nil
}

func parsePath(n svgNode) (Path, error) {
	width, err := parseFloat(n.attr("stroke-width"))
	if err != nil {
		width = DefaultWidth
	}

	points, err := parsePathData(n.attr("d"))
	if err != nil {
		return Path{}, err
	}
	return Path{Points: points, Color: n.attr("stroke"), Width: width}, nil
}

func parsePathData(d string) ([]board.Point, error) {
	var (
		points  []board.Point
		cmd     byte
		pending []float64
	)

	flush := func() error {
		if len(pending) != 2 {
			return fmt.Errorf("%w: path %q: expected x y after %c", ErrMalformedSVG, d, cmd)
		}
		points = append(points, board.Point{X: pending[0], Y: pending[1]})
		pending = pending[:0]
		return nil
	}

	for _, tok := range strings.FieldsFunc(d, isSeparator) {
		if c := tok[0]; c == 'M' || c == 'L' {
			if cmd != 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			if (c == 'M') != (cmd == 0) {
				return nil, fmt.Errorf("%w: path %q must be one M followed by L segments", ErrMalformedSVG, d)
			}
			cmd = c
			tok = tok[1:]
			if tok == "" {
				continue
			}
		} else if cmd == 0 {
			return nil, fmt.Errorf("%w: path %q: unsupported command %q", ErrMalformedSVG, d, tok)
		}

		v, err := parseFloat(tok)
		if err != nil {
			return nil, fmt.Errorf("%w: path %q: %v", ErrMalformedSVG, d, err)
		}
		if len(pending) == 2 {
			return nil, fmt.Errorf("%w: path %q: dangling coordinate", ErrMalformedSVG, d)
		}
		pending = append(pending, v)
	}

	if cmd == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrMalformedSVG)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: path %q has a single point", ErrMalformedSVG, d)
	}
	return points, nil
}

func parseNumbers(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.FieldsFunc(s, isSeparator) {
		v, err := parseFloat(f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

func isSeparator(r rune) bool {
	return r == ' ' || r == ',' || r == '\t' || r == '\n' || r == '\r'
}
