package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskUploader writes uploads into a local directory that the HTTP server
// exposes under URLPrefix.
type DiskUploader struct {
	dir       string
	urlPrefix string
}

func NewDiskUploader(dir, urlPrefix string) (*DiskUploader, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskUploader{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/") + "/"}, nil
}

func (u *DiskUploader) Dir() string { return u.dir }

func (u *DiskUploader) Upload(ctx context.Context, kind Kind, filename string, r io.Reader) (string, error) {
	name, err := ObjectName(kind, filename)
	if err != nil {
		return "", err
	}

	path := filepath.Join(u.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	if _, err := io.Copy(f, readerWithContext(ctx, r)); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	return u.urlPrefix + name, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
