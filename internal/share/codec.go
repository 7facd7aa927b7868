// Package share turns a board's items into an expiring, read-only snapshot
// and back.
package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"byteGiftAPI/internal/doodle"
	"byteGiftAPI/internal/types/board"
)

const TTL = 7 * 24 * time.Hour

var shareIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

func ValidateShareID(id string) error {
	if !shareIDRe.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidShareID, id)
	}
	return nil
}

// Snapshot is the wire form of a shared board.
type Snapshot struct {
	ShareID   string       `json:"shareId"`
	Items     []board.Item `json:"items"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type Codec struct {
	store        Store
	assetBaseURL string

	now   func() time.Time
	newID func() string
}

func NewCodec(store Store, assetBaseURL string) *Codec {
	return &Codec{
		store:        store,
		assetBaseURL: assetBaseURL,
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// WithClock replaces the time source. Tests use it to step past expiry.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Serialize validates and stores a snapshot of items. A non-empty desiredID is
// checked for format before the store is touched; otherwise a random id is used.
// Every asset reference must already point at durable storage.
func (c *Codec) Serialize(ctx context.Context, items []board.Item, desiredID string) (Snapshot, error) {
	shareID := desiredID
	if shareID != "" {
		if err := ValidateShareID(shareID); err != nil {
			return Snapshot{}, err
		}
	}

	if len(items) == 0 {
		return Snapshot{}, ErrEmptyBoard
	}

	prepared, err := prepareItems(items)
	if err != nil {
		return Snapshot{}, err
	}

	if shareID != "" {
		taken, err := c.store.Exists(ctx, shareID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to check share id: %w", err)
		}
		if taken {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrShareIDTaken, shareID)
		}
	} else {
		shareID = c.newID()
	}

	raw, err := json.Marshal(prepared)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to encode items: %w", err)
	}

	created := c.now().UTC().Truncate(time.Millisecond)
	snap := Snapshot{
		ShareID:   shareID,
		Items:     prepared,
		CreatedAt: created,
		ExpiresAt: created.Add(TTL),
	}

	err = c.store.Put(ctx, Record{
		ShareID:   snap.ShareID,
		Items:     raw,
		CreatedAt: snap.CreatedAt,
		ExpiresAt: snap.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, ErrShareIDTaken) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrShareIDTaken, shareID)
		}
		return Snapshot{}, fmt.Errorf("failed to store snapshot: %w", err)
	}

	return snap, nil
}

func prepareItems(items []board.Item) ([]board.Item, error) {
	seen := make(map[string]bool, len(items))
	out := make([]board.Item, 0, len(items))

	for _, it := range items {
		it.Payload = board.Normalize(it.Payload)
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", board.ErrInvalidItem, it.ID)
		}
		seen[it.ID] = true

		if ref, ok := board.AssetRef(it.Payload); ok && board.IsBlobRef(ref) {
			return nil, fmt.Errorf("%w: item %s", ErrUnresolvedAsset, it.ID)
		}

		if d, ok := it.Payload.(board.Doodle); ok {
			doc, err := doodle.ParseSVG(d.SVG)
			if err != nil {
				return nil, fmt.Errorf("%w: doodle %s: %v", board.ErrInvalidItem, it.ID, err)
			}
			it.Payload = board.Doodle{SVG: doc.SVG()}
		}

		out = append(out, it)
	}

	return out, nil
}

// Deserialize loads a snapshot for read-only display. A snapshot fetched after
// its expiry is deleted and reported as ErrExpired; later fetches see ErrNotFound.
func (c *Codec) Deserialize(ctx context.Context, shareID string) (Snapshot, error) {
	if ValidateShareID(shareID) != nil {
		return Snapshot{}, ErrNotFound
	}

	rec, err := c.store.Get(ctx, shareID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if c.now().After(rec.ExpiresAt) {
		if err := c.store.Delete(ctx, shareID); err != nil {
			log.Printf("failed to delete expired snapshot %s: %v", shareID, err)
		}
		return Snapshot{}, ErrExpired
	}

	items, err := c.decodeItems(rec.Items)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot %s: %w", shareID, err)
	}

	return Snapshot{
		ShareID:   rec.ShareID,
		Items:     items,
		CreatedAt: rec.CreatedAt.UTC(),
		ExpiresAt: rec.ExpiresAt.UTC(),
	}, nil
}

// decodeItems fills defaults, makes asset references absolute and blanks
// doodles that no longer parse. Items of unknown type are skipped.
func (c *Codec) decodeItems(raw json.RawMessage) ([]board.Item, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, err
	}

	items := make([]board.Item, 0, len(elems))
	for _, e := range elems {
		var it board.Item
		if err := json.Unmarshal(e, &it); err != nil {
			if errors.Is(err, board.ErrUnknownItemType) {
				log.Printf("skipping snapshot item: %v", err)
				continue
			}
			return nil, err
		}

		it.Payload = board.Normalize(it.Payload)
		if ref, ok := board.AssetRef(it.Payload); ok {
			it.Payload = board.WithAssetRef(it.Payload, RewriteAssetURL(c.assetBaseURL, ref))
		}
		if d, ok := it.Payload.(board.Doodle); ok {
			if doc, err := doodle.ParseSVG(d.SVG); err == nil {
				it.Payload = board.Doodle{SVG: doc.SVG()}
			} else {
				it.Payload = board.Doodle{}
			}
		}

		items = append(items, it)
	}
	return items, nil
}

// PurgeExpired deletes every snapshot past its expiry.
func (c *Codec) PurgeExpired(ctx context.Context) (int64, error) {
	return c.store.DeleteExpired(ctx, c.now())
}

// RewriteAssetURL prefixes a relative asset reference with base. Absolute
// URLs, blob and data references, and empty strings pass through.
func RewriteAssetURL(base, ref string) string {
	if ref == "" || base == "" {
		return ref
	}
	for _, prefix := range []string{"http://", "https://", board.BlobScheme, "data:"} {
		if strings.HasPrefix(ref, prefix) {
			return ref
		}
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

// URL is the public link of a snapshot.
func URL(origin, shareID string) string {
	return strings.TrimRight(origin, "/") + "/share/" + url.PathEscape(shareID)
}
