package assets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Image")
	require.NoError(t, err)
	assert.Equal(t, KindImage, k)

	_, err = ParseKind("video")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestObjectName(t *testing.T) {
	name, err := ObjectName(KindImage, "IMG_0042.JPG")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.Len(t, name, 36+4)

	_, err = ObjectName(KindAudio, "photo.png")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = ObjectName(KindImage, "noext")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".webm", ExtensionFor(KindAudio, "audio/webm;codecs=opus"))
	assert.Equal(t, ".png", ExtensionFor(KindImage, "image/png"))
	assert.Equal(t, ".jpg", ExtensionFor(KindImage, "application/octet-stream"))
}

func TestDiskUploader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u, err := NewDiskUploader(dir, "uploads")
	require.NoError(t, err)

	url, err := u.Upload(context.Background(), KindAudio, "clip.webm", strings.NewReader("RIFF"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".webm"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))

	_, err = u.Upload(context.Background(), KindImage, "evil.exe", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDiskUploaderHonoursCancellation(t *testing.T) {
	u, err := NewDiskUploader(t.TempDir(), "/uploads/")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = u.Upload(ctx, KindImage, "a.png", strings.NewReader("png"))
	assert.ErrorIs(t, err, ErrUpload)

	entries, err := os.ReadDir(u.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
