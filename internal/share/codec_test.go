package share

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"byteGiftAPI/internal/session"
	"byteGiftAPI/internal/types/board"
)

type countingStore struct {
	*MemoryStore
	calls int
}

func (s *countingStore) Exists(ctx context.Context, id string) (bool, error) {
	s.calls++
	return s.MemoryStore.Exists(ctx, id)
}

func (s *countingStore) Put(ctx context.Context, rec Record) error {
	s.calls++
	return s.MemoryStore.Put(ctx, rec)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newCodec() (*Codec, *countingStore, *clock) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewCodec(store, "https://api.bytegift.app").WithClock(clk.now), store, clk
}

const tapSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="50" height="50" viewBox="75 75 50 50"><circle cx="100" cy="100" r="4" fill="#000000"/></svg>`

func TestSerializeNoteAfterEdit(t *testing.T) {
	codec, _, clk := newCodec()
	ctx := context.Background()

	s := session.New()
	note, err := s.Create(board.Note{Color: board.NoteYellow}, board.Point{X: 100, Y: 80})
	require.NoError(t, err)
	require.True(t, s.UpdateNoteContent(note.ID, "hello"))

	snap, err := codec.Serialize(ctx, s.List(), "")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, board.Note{Color: board.NoteYellow, Content: "hello"}, snap.Items[0].Payload)
	assert.Equal(t, clk.t, snap.CreatedAt)
	assert.Equal(t, clk.t.Add(7*24*time.Hour), snap.ExpiresAt)
	assert.NoError(t, ValidateShareID(snap.ShareID))

	back, err := codec.Deserialize(ctx, snap.ShareID)
	require.NoError(t, err)
	assert.Equal(t, snap.Items, back.Items)
	assert.Equal(t, snap.ExpiresAt, back.ExpiresAt)
}

func TestCustomShareID(t *testing.T) {
	codec, store, _ := newCodec()
	ctx := context.Background()
	items := []board.Item{{ID: "n", Payload: board.Note{}}}

	_, err := codec.Serialize(ctx, items, "ab")
	assert.ErrorIs(t, err, ErrInvalidShareID)
	assert.Equal(t, 0, store.calls, "format is checked before the store is touched")

	_, err = codec.Serialize(ctx, items, "has space")
	assert.ErrorIs(t, err, ErrInvalidShareID)

	snap, err := codec.Serialize(ctx, items, "ab-12")
	require.NoError(t, err)
	assert.Equal(t, "ab-12", snap.ShareID)

	_, err = codec.Serialize(ctx, items, "ab-12")
	assert.ErrorIs(t, err, ErrShareIDTaken)
}

func TestSerializeRejects(t *testing.T) {
	codec, _, _ := newCodec()
	ctx := context.Background()

	_, err := codec.Serialize(ctx, nil, "")
	assert.ErrorIs(t, err, ErrEmptyBoard)

	_, err = codec.Serialize(ctx, []board.Item{{ID: "p", Payload: board.Photo{ImageURL: "blob:abc"}}}, "")
	assert.ErrorIs(t, err, ErrUnresolvedAsset)

	_, err = codec.Serialize(ctx, []board.Item{
		{ID: "a", Payload: board.Note{}},
		{ID: "a", Payload: board.Note{}},
	}, "")
	assert.ErrorIs(t, err, board.ErrInvalidItem)

	_, err = codec.Serialize(ctx, []board.Item{{ID: "d", Payload: board.Doodle{SVG: "<svg"}}}, "")
	assert.ErrorIs(t, err, board.ErrInvalidItem)
}

func TestNormalizationIsIdempotentAcrossRoundTrips(t *testing.T) {
	codec, _, _ := newCodec()
	ctx := context.Background()

	first, err := codec.Serialize(ctx, []board.Item{
		{ID: "n", ZIndex: 11, Payload: board.Note{Color: "teal"}},
		{ID: "d", ZIndex: 12, Payload: board.Doodle{SVG: tapSVG}},
		{ID: "m", ZIndex: 13, Payload: board.Media{URL: "https://vimeo.com/76979871"}},
	}, "")
	require.NoError(t, err)

	loaded, err := codec.Deserialize(ctx, first.ShareID)
	require.NoError(t, err)

	second, err := codec.Serialize(ctx, loaded.Items, "")
	require.NoError(t, err)
	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, board.Note{Color: board.NoteYellow}, second.Items[0].Payload)
	assert.Equal(t, board.Doodle{SVG: tapSVG}, second.Items[1].Payload)
}

func TestDeserializeRewritesRelativeAssets(t *testing.T) {
	codec, _, _ := newCodec()
	ctx := context.Background()

	snap, err := codec.Serialize(ctx, []board.Item{
		{ID: "p", Payload: board.Photo{ImageURL: "/uploads/a.jpg", DateTaken: "2024-05-01"}},
		{ID: "a", Payload: board.Audio{AudioURL: "uploads/b.webm"}},
		{ID: "q", Payload: board.Photo{ImageURL: "https://cdn.example.com/c.png"}},
	}, "")
	require.NoError(t, err)

	back, err := codec.Deserialize(ctx, snap.ShareID)
	require.NoError(t, err)
	assert.Equal(t, board.Photo{ImageURL: "https://api.bytegift.app/uploads/a.jpg", DateTaken: "2024-05-01"}, back.Items[0].Payload)
	assert.Equal(t, board.Audio{AudioURL: "https://api.bytegift.app/uploads/b.webm"}, back.Items[1].Payload)
	assert.Equal(t, board.Photo{ImageURL: "https://cdn.example.com/c.png"}, back.Items[2].Payload)
}

func TestDeserializeLegacySnapshot(t *testing.T) {
	codec, store, clk := newCodec()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Record{
		ShareID: "legacy",
		Items: []byte(`[
			{"id":"n","type":"note","position":{"x":1,"y":2},"zIndex":11,"rotation":3,"data":{}},
			{"id":"s","type":"spotify","position":{"x":5,"y":6},"zIndex":12,"rotation":0,"data":{"spotifyUrl":"https://open.spotify.com/track/1"}},
			{"id":"x","type":"sticker","position":{"x":0,"y":0},"zIndex":13,"rotation":0,"data":{}},
			{"id":"d","type":"doodle","position":{"x":0,"y":0},"zIndex":14,"rotation":0,"data":{"svgData":"<svg><path d='Q 1 2'/></svg>"}}
		]`),
		CreatedAt: clk.t,
		ExpiresAt: clk.t.Add(time.Hour),
	}))

	snap, err := codec.Deserialize(ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, snap.Items, 3)
	assert.Equal(t, board.Note{Color: board.NoteYellow, Content: ""}, snap.Items[0].Payload)
	assert.Equal(t, board.Media{URL: "https://open.spotify.com/track/1"}, snap.Items[1].Payload)
	assert.Equal(t, board.Doodle{}, snap.Items[2].Payload)
}

func TestExpiredSnapshotIsDeleted(t *testing.T) {
	codec, _, clk := newCodec()
	ctx := context.Background()

	snap, err := codec.Serialize(ctx, []board.Item{{ID: "n", Payload: board.Note{}}}, "short-lived")
	require.NoError(t, err)

	clk.t = snap.ExpiresAt
	_, err = codec.Deserialize(ctx, snap.ShareID)
	require.NoError(t, err, "still readable at the exact expiry instant")

	clk.t = snap.ExpiresAt.Add(time.Second)
	_, err = codec.Deserialize(ctx, snap.ShareID)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = codec.Deserialize(ctx, snap.ShareID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeserializeUnknown(t *testing.T) {
	codec, _, _ := newCodec()
	_, err := codec.Deserialize(context.Background(), "nope-nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = codec.Deserialize(context.Background(), "../etc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeExpired(t *testing.T) {
	codec, store, clk := newCodec()
	ctx := context.Background()

	_, err := codec.Serialize(ctx, []board.Item{{ID: "n", Payload: board.Note{}}}, "old")
	require.NoError(t, err)
	clk.t = clk.t.Add(8 * 24 * time.Hour)
	_, err = codec.Serialize(ctx, []board.Item{{ID: "n", Payload: board.Note{}}}, "new")
	require.NoError(t, err)

	n, err := codec.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ok, _ := store.Exists(ctx, "old")
	assert.False(t, ok)
	ok, _ = store.Exists(ctx, "new")
	assert.True(t, ok)
}

func TestRewriteAssetURLAndLink(t *testing.T) {
	assert.Equal(t, "https://a.b/uploads/x.png", RewriteAssetURL("https://a.b/", "/uploads/x.png"))
	assert.Equal(t, "http://c.d/x.png", RewriteAssetURL("https://a.b", "http://c.d/x.png"))
	assert.Equal(t, "blob:1", RewriteAssetURL("https://a.b", "blob:1"))
	assert.Equal(t, "", RewriteAssetURL("https://a.b", ""))

	assert.Equal(t, "https://bytegift.app/share/ab-12", URL("https://bytegift.app/", "ab-12"))
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest(strings.NewReader(`{
		"shareId": "our-trip",
		"items": [{"id":"n","type":"note","position":{"x":1,"y":2},"zIndex":11,"rotation":0,"data":{"color":"pink","content":"hi"}}]
	}`), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "our-trip", req.ShareID)
	require.Len(t, req.Items, 1)
	assert.Equal(t, board.Note{Color: board.NotePink, Content: "hi"}, req.Items[0].Payload)

	bad := []string{
		`not json`,
		`{}`,
		`{"items":[{"id":"n","type":"sticker","position":{"x":1,"y":2},"data":{}}]}`,
		`{"items":[{"id":"n","type":"note","position":{"x":"1","y":2},"data":{}}]}`,
		`{"shareId": 12, "items":[]}`,
	}
	for _, body := range bad {
		_, err := DecodeRequest(strings.NewReader(body), 1<<20)
		assert.ErrorIs(t, err, ErrInvalidRequest, body)
	}

	_, err = DecodeRequest(strings.NewReader(`{"items":[]}`), 4)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
