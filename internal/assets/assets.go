// Package assets stores uploaded photos and voice clips and hands back
// durable URLs for them.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

var (
	ErrUnknownKind     = errors.New("unknown asset kind")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrUpload          = errors.New("asset upload failed")
)

var allowedExt = map[Kind][]string{
	KindImage: {".jpg", ".jpeg", ".png", ".gif", ".webp", ".heic"},
	KindAudio: {".webm", ".ogg", ".mp3", ".m4a", ".wav", ".aac"},
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(s))
	if _, ok := allowedExt[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Uploader persists a blob and returns the URL it can be fetched from. The
// URL may be relative to the API origin.
type Uploader interface {
	Upload(ctx context.Context, kind Kind, filename string, r io.Reader) (string, error)
}

// ObjectName gives the stored name for an upload: a random id plus the
// original extension, which must suit the kind.
func ObjectName(kind Kind, filename string) (string, error) {
	exts, ok := allowedExt[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(exts, ext) {
		return "", fmt.Errorf("%w: %q for %s", ErrUnsupportedType, ext, kind)
	}
	return uuid.NewString() + ext, nil
}

// ExtensionFor maps a MIME type to a file extension accepted for kind.
func ExtensionFor(kind Kind, mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(strings.ToLower(base)) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4":
		return ".m4a"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	}
	return allowedExt[kind][0]
}
