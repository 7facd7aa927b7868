package doodle

import "byteGiftAPI/internal/types/board"

// Sketch is the drawing tray: one Capture plus the strokes finished so far.
type Sketch struct {
	capture *Capture
	strokes []Stroke
}

func NewSketch() *Sketch {
	return &Sketch{capture: NewCapture()}
}

func (s *Sketch) Capture() *Capture { return s.capture }

func (s *Sketch) Begin(p board.Point)  { s.capture.Begin(p) }
func (s *Sketch) Extend(p board.Point) { s.capture.Extend(p) }
func (s *Sketch) Cancel()              { s.capture.Cancel() }

// End finishes the current stroke and keeps it. ok is false when the gesture
// produced no points.
func (s *Sketch) End() (Stroke, bool) {
	st, ok := s.capture.Finish()
	if ok {
		s.strokes = append(s.strokes, st)
	}
	return st, ok
}

func (s *Sketch) Strokes() []Stroke {
	out := make([]Stroke, len(s.strokes))
	copy(out, s.strokes)
	return out
}

func (s *Sketch) Len() int { return len(s.strokes) }

func (s *Sketch) Clear() {
	s.capture.Cancel()
	s.strokes = nil
}

// Save serializes every finished stroke and empties the tray. On ErrEmpty the
// tray is left untouched.
func (s *Sketch) Save() (Doc, error) {
	doc, err := Serialize(s.strokes)
	if err != nil {
		return Doc{}, err
	}
	s.Clear()
	return doc, nil
}
