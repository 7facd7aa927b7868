// Package export renders a board as a printable PDF page.
package export

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"byteGiftAPI/internal/doodle"
	"byteGiftAPI/internal/session"
	"byteGiftAPI/internal/types/board"
)

const (
	pageMargin = 10.0 // mm
	maxScale   = 0.3  // mm per canvas pixel
	doodleDPI  = 4    // raster pixels per canvas pixel
)

// ImageSource opens a stored photo. imageType is the gofpdf image type
// ("JPG", "PNG", "GIF"). A nil source renders photos as placeholders.
type ImageSource interface {
	Open(ref string) (rc io.ReadCloser, imageType string, err error)
}

type Options struct {
	Title  string
	Images ImageSource
}

type rgb struct{ r, g, b int }

var noteFill = map[board.NoteColor]rgb{
	board.NoteYellow: {254, 240, 138},
	board.NoteBlue:   {191, 219, 254},
	board.NoteGreen:  {187, 247, 208},
	board.NotePink:   {251, 207, 232},
	board.NotePurple: {233, 213, 255},
	board.NoteAmber:  {253, 230, 138},
}

// Size is the footprint an item occupies on the canvas.
func Size(it board.Item) (w, h float64) {
	switch p := it.Payload.(type) {
	case board.Photo:
		return 200, 240
	case board.Note:
		return 200, 200
	case board.Audio:
		return 240, 80
	case board.Media:
		return 300, 160
	case board.Doodle:
		if doc, err := doodle.ParseSVG(p.SVG); err == nil {
			return doc.ViewBox.Width, doc.ViewBox.Height
		}
		return doodle.MinSize, doodle.MinSize
	}
	return 100, 100
}

// WritePDF draws the items in paint order on one landscape page scaled to fit.
func WritePDF(w io.Writer, items []board.Item, opts Options) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(opts.Title, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()

	if opts.Title != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(60, 60, 60)
		pdf.Text(pageMargin, pageMargin-3, tr(opts.Title))
	}

	ordered := session.PaintOrder(items)
	if len(ordered) == 0 {
		return pdf.Output(w)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, it := range ordered {
		iw, ih := Size(it)
		minX = math.Min(minX, it.Position.X)
		minY = math.Min(minY, it.Position.Y)
		maxX = math.Max(maxX, it.Position.X+iw)
		maxY = math.Max(maxY, it.Position.Y+ih)
	}
	scale := math.Min(maxScale, math.Min(
		(pageW-2*pageMargin)/(maxX-minX),
		(pageH-2*pageMargin)/(maxY-minY),
	))

	for i, it := range ordered {
		iw, ih := Size(it)
		x := pageMargin + (it.Position.X-minX)*scale
		y := pageMargin + (it.Position.Y-minY)*scale
		wmm, hmm := iw*scale, ih*scale

		pdf.TransformBegin()
		pdf.TransformRotate(-it.Rotation, x+wmm/2, y+hmm/2)
		drawItem(pdf, tr, opts, fmt.Sprintf("item-%d", i), it, x, y, wmm, hmm)
		pdf.TransformEnd()
	}

	return pdf.Output(w)
}

func drawItem(pdf *gofpdf.Fpdf, tr func(string) string, opts Options, name string, it board.Item, x, y, w, h float64) {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.2)
	pdf.SetTextColor(40, 40, 40)

	switch p := it.Payload.(type) {
	case board.Photo:
		pdf.SetFillColor(255, 255, 255)
		pdf.Rect(x, y, w, h, "FD")
		pad := w * 0.05
		if !drawPhoto(pdf, opts.Images, name, p.ImageURL, x+pad, y+pad, w-2*pad, h*0.8) {
			pdf.SetFillColor(230, 230, 230)
			pdf.Rect(x+pad, y+pad, w-2*pad, h*0.8, "F")
		}
		if p.DateTaken != "" {
			pdf.SetFont("Helvetica", "", 7)
			pdf.Text(x+pad, y+h-pad, tr(p.DateTaken))
		}

	case board.Note:
		c, ok := noteFill[p.Color]
		if !ok {
			c = noteFill[board.DefaultNoteColor]
		}
		pdf.SetFillColor(c.r, c.g, c.b)
		pdf.Rect(x, y, w, h, "F")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetXY(x+2, y+2)
		pdf.MultiCell(w-4, 4, tr(p.Content), "", "L", false)

	case board.Audio:
		pdf.SetFillColor(243, 244, 246)
		pdf.Rect(x, y, w, h, "FD")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.Text(x+3, y+h/2+1, tr("Voice note"))

	case board.Media:
		pdf.SetFillColor(17, 24, 39)
		pdf.Rect(x, y, w, h, "F")
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "", 7)
		pdf.SetXY(x+2, y+2)
		pdf.MultiCell(w-4, 3.5, tr(p.URL), "", "L", false)
		pdf.LinkString(x, y, w, h, p.URL)

	case board.Doodle:
		drawDoodle(pdf, name, p.SVG, x, y, w, h)
	}
}

func drawPhoto(pdf *gofpdf.Fpdf, src ImageSource, name, ref string, x, y, w, h float64) bool {
	if src == nil || ref == "" {
		return false
	}
	rc, tp, err := src.Open(ref)
	if err != nil {
		return false
	}
	defer rc.Close()

	opt := gofpdf.ImageOptions{ImageType: tp}
	info := pdf.RegisterImageOptionsReader(name, opt, rc)
	if pdf.Err() || info == nil {
		pdf.ClearError()
		return false
	}
	pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")
	return true
}

func drawDoodle(pdf *gofpdf.Fpdf, name, svg string, x, y, w, h float64) {
	doc, err := doodle.ParseSVG(svg)
	if err != nil {
		return
	}

	img := doodle.Rasterize(doc, int(doc.ViewBox.Width)*doodleDPI, int(doc.ViewBox.Height)*doodleDPI)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return
	}

	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opt, &buf)
	if pdf.Err() {
		pdf.ClearError()
		return
	}
	pdf.ImageOptions(name, x, y, w, h, false, opt, 0, "")
}

// ImageTypeForRef guesses the gofpdf image type from a file name.
func ImageTypeForRef(ref string) string {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".png":
		return "PNG"
	case ".gif":
		return "GIF"
	case ".jpg", ".jpeg":
		return "JPG"
	}
	return ""
}
