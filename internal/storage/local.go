// Package storage persists uploaded photo files on local disk and serves
// them back through the /uploads static route.
package storage

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/logger"
)

// allowed image extensions, lowercased
var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// SavedFile describes a stored upload.
type SavedFile struct {
	URL         string
	FileSize    int64
	Width       int
	Height      int
	ContentType string
}

// LocalStore writes uploads under dir and exposes them as
// baseURL/uploads/<filename>.
type LocalStore struct {
	dir     string
	baseURL string
	maxSize int64
	log     *slog.Logger
}

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(dir, baseURL string, maxSize int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
		log:     logger.With("component", "storage"),
	}, nil
}

// Dir returns the directory uploads are written to.
func (s *LocalStore) Dir() string { return s.dir }

// Save validates and writes an uploaded file to disk.
//
// Filenames are uuid + upload timestamp, so concurrent uploads never collide
// and the original name never reaches the filesystem. Image dimensions are
// decoded best effort; a photo that fails to decode is still stored.
func (s *LocalStore) Save(file multipart.File, header *multipart.FileHeader) (*SavedFile, error) {
	if header.Size > s.maxSize {
		return nil, apperror.TooLarge(fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := allowedExt[ext]
	if !ok {
		return nil, apperror.Validation("file", "unsupported image type, expected jpg, jpeg, png, gif or webp")
	}

	name := fmt.Sprintf("%s_%d%s", uuid.NewString(), time.Now().UnixMilli(), ext)
	dst := filepath.Join(s.dir, name)

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}
	written, err := io.Copy(out, io.LimitReader(file, s.maxSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("failed to write upload file: %w", err)
	}
	if written > s.maxSize {
		_ = os.Remove(dst)
		return nil, apperror.TooLarge(fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}

	saved := &SavedFile{
		URL:         s.baseURL + "/uploads/" + name,
		FileSize:    written,
		ContentType: contentType,
	}

	if img, err := imaging.Open(dst); err == nil {
		bounds := img.Bounds()
		saved.Width = bounds.Dx()
		saved.Height = bounds.Dy()
	} else {
		s.log.Warn("could not decode uploaded image", "file", name, "error", err)
	}

	return saved, nil
}

// Delete removes the file behind a stored URL. Unknown or external URLs are
// ignored so user deletion never fails on missing files.
func (s *LocalStore) Delete(url string) {
	name := path.Base(url)
	if name == "" || name == "." || name == "/" || strings.Contains(name, "..") {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove upload file", "file", name, "error", err)
	}
}
