package board

import (
	"encoding/json"
	"fmt"
)

type itemJSON struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Position Point    `json:"position"`
	ZIndex   int      `json:"zIndex"`
	Rotation float64  `json:"rotation"`
	Data     dataJSON `json:"data"`
}

type dataJSON struct {
	ImageURL   string    `json:"imageUrl,omitempty"`
	DateTaken  string    `json:"dateTaken,omitempty"`
	Color      NoteColor `json:"color,omitempty"`
	Content    *string   `json:"content,omitempty"`
	AudioURL   string    `json:"audioUrl,omitempty"`
	MediaURL   string    `json:"mediaUrl,omitempty"`
	SpotifyURL string    `json:"spotifyUrl,omitempty"`
	SVGData    string    `json:"svgData,omitempty"`
}

func (i Item) MarshalJSON() ([]byte, error) {
	out := itemJSON{
		ID:       i.ID,
		Type:     i.Type(),
		Position: i.Position,
		ZIndex:   i.ZIndex,
		Rotation: i.Rotation,
	}

	switch v := i.Payload.(type) {
	case Photo:
		out.Data.ImageURL = v.ImageURL
		out.Data.DateTaken = v.DateTaken
	case Note:
		content := v.Content
		out.Data.Color = v.Color
		out.Data.Content = &content
	case Audio:
		out.Data.AudioURL = v.AudioURL
	case Media:
		out.Data.MediaURL = v.URL
	case Doodle:
		out.Data.SVGData = v.SVG
	default:
		return nil, fmt.Errorf("%w: item %s", ErrUnknownItemType, i.ID)
	}

	return json.Marshal(out)
}

func (i *Item) UnmarshalJSON(b []byte) error {
	var in itemJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	var p Payload
	switch in.Type {
	case ItemTypePhoto:
		p = Photo{ImageURL: in.Data.ImageURL, DateTaken: in.Data.DateTaken}
	case ItemTypeNote:
		n := Note{Color: in.Data.Color}
		if in.Data.Content != nil {
			n.Content = *in.Data.Content
		}
		p = n
	case ItemTypeAudio:
		p = Audio{AudioURL: in.Data.AudioURL}
	case ItemTypeMedia, legacyItemTypeSpotify:
		url := in.Data.MediaURL
		if url == "" {
			url = in.Data.SpotifyURL
		}
		p = Media{URL: url}
	case ItemTypeDoodle:
		p = Doodle{SVG: in.Data.SVGData}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownItemType, in.Type)
	}

	*i = Item{
		ID:       in.ID,
		Position: in.Position,
		ZIndex:   in.ZIndex,
		Rotation: in.Rotation,
		Payload:  p,
	}
	return nil
}
