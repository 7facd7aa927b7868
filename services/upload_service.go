package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"byteGiftAPI/internal/assets"
	"byteGiftAPI/internal/export"
	"byteGiftAPI/internal/metrics"
)

var ErrFileTooLarge = errors.New("file too large")

type UploadService struct {
	uploader assets.Uploader
	maxBytes int64

	// set when uploads are kept on local disk
	localDir     string
	urlPrefix    string
	assetBaseURL string
}

func NewUploadService(uploader assets.Uploader, maxBytes int64) *UploadService {
	return &UploadService{uploader: uploader, maxBytes: maxBytes}
}

// WithLocalFiles lets the service read back disk uploads, e.g. for PDF export.
func (s *UploadService) WithLocalFiles(dir, urlPrefix, assetBaseURL string) *UploadService {
	s.localDir = dir
	s.urlPrefix = "/" + strings.Trim(urlPrefix, "/") + "/"
	s.assetBaseURL = strings.TrimRight(assetBaseURL, "/")
	return s
}

func (s *UploadService) MaxBytes() int64 { return s.maxBytes }

// Upload stores one asset and returns its URL.
func (s *UploadService) Upload(ctx context.Context, kind assets.Kind, filename string, r io.Reader) (string, error) {
	lr := &limitedReader{r: r, remaining: s.maxBytes}

	url, err := s.uploader.Upload(ctx, kind, filename, lr)
	if lr.exceeded {
		metrics.AssetUploads.WithLabelValues(string(kind), "rejected").Inc()
		return "", fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxBytes)
	}
	if err != nil {
		metrics.AssetUploads.WithLabelValues(string(kind), "error").Inc()
		log.Printf("Upload of %s %q failed: %v", kind, filename, err)
		return "", err
	}

	metrics.AssetUploads.WithLabelValues(string(kind), "ok").Inc()
	return url, nil
}

// Open implements export.ImageSource for uploads kept on local disk.
func (s *UploadService) Open(ref string) (io.ReadCloser, string, error) {
	if s.localDir == "" {
		return nil, "", errors.New("uploads are not stored locally")
	}

	rel := strings.TrimPrefix(ref, s.assetBaseURL)
	if !strings.HasPrefix(rel, s.urlPrefix) {
		return nil, "", fmt.Errorf("not a local upload: %s", ref)
	}
	name := filepath.Base(strings.TrimPrefix(rel, s.urlPrefix))

	tp := export.ImageTypeForRef(name)
	if tp == "" {
		return nil, "", fmt.Errorf("image type not printable: %s", name)
	}

	f, err := os.Open(filepath.Join(s.localDir, name))
	if err != nil {
		return nil, "", err
	}
	return f, tp, nil
}

type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		l.exceeded = true
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return n, ErrFileTooLarge
	}
	return n, err
}
