package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"byteGiftAPI/internal/share"
	"byteGiftAPI/internal/types/board"
)

// setupTestDB connects to TEST_DATABASE_URL and skips the test when it is unset.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func runStoreContract(t *testing.T, store share.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	id := "test-" + uuid.NewString()[:8]

	t.Cleanup(func() { _ = store.Delete(ctx, id) })

	rec := share.Record{
		ShareID:   id,
		Items:     json.RawMessage(`[{"id":"n","type":"note","position":{"x":1,"y":2},"zIndex":11,"rotation":0,"data":{"color":"blue","content":"hi"}}]`),
		CreatedAt: now,
		ExpiresAt: now.Add(share.TTL),
	}

	ok, err := store.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, rec))
	assert.ErrorIs(t, store.Put(ctx, rec), share.ErrShareIDTaken)

	ok, err = store.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ShareID)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, rec.ExpiresAt.Equal(got.ExpiresAt))

	var items []board.Item
	require.NoError(t, json.Unmarshal(got.Items, &items))
	require.Len(t, items, 1)
	assert.Equal(t, board.Note{Color: board.NoteBlue, Content: "hi"}, items[0].Payload)

	n, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.DeleteExpired(ctx, now.Add(share.TTL+time.Second))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, share.ErrNotFound)

	require.NoError(t, store.Put(ctx, rec))
	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, share.ErrNotFound)

	assert.NoError(t, store.Ping(ctx))
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "shares.db"))
	require.NoError(t, err)
	defer store.Close()

	runStoreContract(t, store)
}

func TestPostgresStore(t *testing.T) {
	pool := setupTestDB(t)
	store := NewPostgresStore(pool)
	require.NoError(t, store.EnsureSchema(context.Background()))

	runStoreContract(t, store)
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, share.NewMemoryStore())
}

func TestCodecOverSQLite(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "shares.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	codec := share.NewCodec(store, "https://files.example.com")

	snap, err := codec.Serialize(ctx, []board.Item{
		{ID: "p", ZIndex: 11, Payload: board.Photo{ImageURL: "/uploads/a.png"}},
	}, "trip-2026")
	require.NoError(t, err)

	back, err := codec.Deserialize(ctx, snap.ShareID)
	require.NoError(t, err)
	assert.Equal(t, board.Photo{ImageURL: "https://files.example.com/uploads/a.png"}, back.Items[0].Payload)
	assert.True(t, snap.ExpiresAt.Equal(back.ExpiresAt))
}
