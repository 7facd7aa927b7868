package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log"
	"time"

	"byteGiftAPI/internal/doodle"
	"byteGiftAPI/internal/export"
	"byteGiftAPI/internal/metrics"
	"byteGiftAPI/internal/share"
	"byteGiftAPI/internal/types/board"

	"github.com/skip2/go-qrcode"
)

var ErrNotDoodle = errors.New("item is not a doodle")

const (
	qrSize           = 256
	DefaultThumbSize = 256
	maxThumbSize     = 2048
)

type ShareService struct {
	codec  *share.Codec
	store  share.Store
	origin string
	images export.ImageSource
}

func NewShareService(store share.Store, codec *share.Codec, origin string, images export.ImageSource) *ShareService {
	return &ShareService{
		codec:  codec,
		store:  store,
		origin: origin,
		images: images,
	}
}

type ShareResponse struct {
	ShareID   string    `json:"shareId"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *ShareService) ShareURL(shareID string) string {
	return share.URL(s.origin, shareID)
}

// CreateShare stores a snapshot of items under desiredID, or a generated id
// when desiredID is empty.
func (s *ShareService) CreateShare(ctx context.Context, items []board.Item, desiredID string) (*ShareResponse, error) {
	snap, err := s.codec.Serialize(ctx, items, desiredID)
	if err != nil {
		return nil, err
	}

	metrics.SharesCreated.Inc()
	log.Printf("Share %s created with %d items", snap.ShareID, len(snap.Items))

	return &ShareResponse{
		ShareID:   snap.ShareID,
		URL:       s.ShareURL(snap.ShareID),
		ExpiresAt: snap.ExpiresAt,
	}, nil
}

func (s *ShareService) GetShare(ctx context.Context, shareID string) (share.Snapshot, error) {
	snap, err := s.codec.Deserialize(ctx, shareID)
	if errors.Is(err, share.ErrExpired) {
		metrics.SharesExpired.Inc()
		log.Printf("Share %s expired", shareID)
	}
	return snap, err
}

// ShareQRCode renders the share link of an existing snapshot as a PNG.
func (s *ShareService) ShareQRCode(ctx context.Context, shareID string) ([]byte, error) {
	if _, err := s.GetShare(ctx, shareID); err != nil {
		return nil, err
	}

	pngBytes, err := qrcode.Encode(s.ShareURL(shareID), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR png: %w", err)
	}
	return pngBytes, nil
}

// ExportPDF writes a printable copy of a snapshot to w.
func (s *ShareService) ExportPDF(ctx context.Context, shareID string, w io.Writer) error {
	snap, err := s.GetShare(ctx, shareID)
	if err != nil {
		return err
	}

	opts := export.Options{
		Title:  "ByteGift " + snap.ShareID,
		Images: s.images,
	}
	if err := export.WritePDF(w, snap.Items, opts); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

// DoodlePNG rasterizes one doodle of a snapshot into a size x size PNG.
func (s *ShareService) DoodlePNG(ctx context.Context, shareID, itemID string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultThumbSize
	}
	size = min(size, maxThumbSize)

	snap, err := s.GetShare(ctx, shareID)
	if err != nil {
		return nil, err
	}

	for _, it := range snap.Items {
		if it.ID != itemID {
			continue
		}
		d, ok := it.Payload.(board.Doodle)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotDoodle, itemID)
		}

		// a doodle that no longer parses renders as an empty image
		doc, err := doodle.ParseSVG(d.SVG)
		if err != nil {
			doc = doodle.Doc{ViewBox: doodle.ViewBox{Width: doodle.MinSize, Height: doodle.MinSize}}
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, doodle.Rasterize(doc, size, size)); err != nil {
			return nil, fmt.Errorf("failed to encode doodle png: %w", err)
		}
		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
}

// PurgeExpired deletes every snapshot past its expiry.
func (s *ShareService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.codec.PurgeExpired(ctx)
}

func (s *ShareService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
