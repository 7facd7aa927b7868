package board

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

type ItemType string

const (
	ItemTypePhoto  ItemType = "photo"
	ItemTypeNote   ItemType = "note"
	ItemTypeAudio  ItemType = "audio"
	ItemTypeMedia  ItemType = "media"
	ItemTypeDoodle ItemType = "doodle"
)

// Older snapshots stored embedded media under this type name.
const legacyItemTypeSpotify ItemType = "spotify"

type NoteColor string

const (
	NoteYellow NoteColor = "yellow"
	NoteBlue   NoteColor = "blue"
	NoteGreen  NoteColor = "green"
	NotePink   NoteColor = "pink"
	NotePurple NoteColor = "purple"
	NoteAmber  NoteColor = "amber"

	DefaultNoteColor = NoteYellow
)

var NotePalette = []NoteColor{NoteYellow, NoteBlue, NoteGreen, NotePink, NotePurple, NoteAmber}

func (c NoteColor) Valid() bool {
	for _, p := range NotePalette {
		if c == p {
			return true
		}
	}
	return false
}

// BlobScheme prefixes asset references that only exist inside a live board
// and must be uploaded before the board can be shared.
const BlobScheme = "blob:"

func IsBlobRef(ref string) bool {
	return strings.HasPrefix(ref, BlobScheme)
}

var (
	ErrInvalidItem     = errors.New("invalid board item")
	ErrUnknownItemType = errors.New("unknown item type")
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Payload is the type-specific part of an item. The set of implementations
// is closed: Photo, Note, Audio, Media and Doodle.
type Payload interface {
	Type() ItemType
	payload()
}

type Photo struct {
	ImageURL  string
	DateTaken string
}

type Note struct {
	Color   NoteColor
	Content string
}

type Audio struct {
	AudioURL string
}

type Media struct {
	URL string
}

// Doodle carries a serialized vector document (SVG).
type Doodle struct {
	SVG string
}

func (Photo) Type() ItemType  { return ItemTypePhoto }
func (Note) Type() ItemType   { return ItemTypeNote }
func (Audio) Type() ItemType  { return ItemTypeAudio }
func (Media) Type() ItemType  { return ItemTypeMedia }
func (Doodle) Type() ItemType { return ItemTypeDoodle }

func (Photo) payload()  {}
func (Note) payload()   {}
func (Audio) payload()  {}
func (Media) payload()  {}
func (Doodle) payload() {}

// Item is a single object placed on the canvas. Rotation is fixed at creation;
// only Position, ZIndex and a note's Content change afterwards.
type Item struct {
	ID       string
	Position Point
	ZIndex   int
	Rotation float64
	Payload  Payload
}

func (i Item) Type() ItemType {
	if i.Payload == nil {
		return ""
	}
	return i.Payload.Type()
}

func (i Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if i.Payload == nil {
		return fmt.Errorf("%w: item %s has no payload", ErrInvalidItem, i.ID)
	}
	if !i.Position.finite() {
		return fmt.Errorf("%w: item %s has a non-finite position", ErrInvalidItem, i.ID)
	}
	if math.IsNaN(i.Rotation) || math.IsInf(i.Rotation, 0) {
		return fmt.Errorf("%w: item %s has a non-finite rotation", ErrInvalidItem, i.ID)
	}
	if n, ok := i.Payload.(Note); ok && !n.Color.Valid() {
		return fmt.Errorf("%w: note %s has colour %q outside the palette", ErrInvalidItem, i.ID, n.Color)
	}
	return nil
}

// New builds an item with a fresh id and a randomly jittered rotation.
// The caller supplies the zIndex from its session's promotion counter.
func New(p Payload, position Point, zIndex int) Item {
	return Item{
		ID:       uuid.NewString(),
		Position: position,
		ZIndex:   zIndex,
		Rotation: RandomRotation(p.Type()),
		Payload:  Normalize(p),
	}
}

// RandomRotation draws a cosmetic tilt: notes lean further than the rest.
func RandomRotation(t ItemType) float64 {
	spread := 5.0
	if t == ItemTypeNote {
		spread = 12.0
	}
	return rand.Float64()*2*spread - spread
}

// Normalize fills type-specific defaults. It is idempotent.
func Normalize(p Payload) Payload {
	switch v := p.(type) {
	case Note:
		if !v.Color.Valid() {
			v.Color = DefaultNoteColor
		}
		return v
	case Photo, Audio, Media, Doodle:
		return v
	default:
		return p
	}
}

// AssetRef returns the uploaded-asset reference carried by photos and audio clips.
func AssetRef(p Payload) (string, bool) {
	switch v := p.(type) {
	case Photo:
		return v.ImageURL, true
	case Audio:
		return v.AudioURL, true
	default:
		return "", false
	}
}

// WithAssetRef returns a copy of p with its asset reference replaced.
// Payloads without an asset reference are returned unchanged.
func WithAssetRef(p Payload, ref string) Payload {
	switch v := p.(type) {
	case Photo:
		v.ImageURL = ref
		return v
	case Audio:
		v.AudioURL = ref
		return v
	default:
		return p
	}
}
