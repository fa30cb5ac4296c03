package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrFileTooLarge is returned when an upload exceeds the configured ceiling.
var ErrFileTooLarge = fmt.Errorf("file exceeds maximum allowed size")

// UploadStorage persists marksheet images on disk under a base directory.
type UploadStorage struct {
	baseDir     string
	maxSize     int64
	allowedExts map[string]struct{}
}

// NewUploadStorage ensures the base directory exists and returns a handle.
func NewUploadStorage(baseDir string, maxSize int64, allowedExts []string) (*UploadStorage, error) {
	if baseDir == "" {
		baseDir = "./static/uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	if maxSize <= 0 {
		maxSize = 16 * 1024 * 1024
	}
	if len(allowedExts) == 0 {
		allowedExts = []string{"png", "jpg", "jpeg"}
	}
	extSet := make(map[string]struct{}, len(allowedExts))
	for _, ext := range allowedExts {
		extSet[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &UploadStorage{baseDir: baseDir, maxSize: maxSize, allowedExts: extSet}, nil
}

// Allowed reports whether the original filename carries an accepted extension.
func (s *UploadStorage) Allowed(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return false
	}
	_, ok := s.allowedExts[ext]
	return ok
}

// Save stores the upload under a timestamped name derived from the original
// filename and returns the stable relative reference ("uploads/<name>").
func (s *UploadStorage) Save(originalFilename string, size int64, r io.Reader) (string, error) {
	if size > s.maxSize {
		return "", ErrFileTooLarge
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), sanitize(originalFilename))
	target := filepath.Join(s.baseDir, name)

	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	written, err := io.Copy(file, io.LimitReader(r, s.maxSize+1))
	if err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if written > s.maxSize {
		_ = os.Remove(target)
		return "", ErrFileTooLarge
	}

	return path.Join("uploads", name), nil
}

// Delete removes a stored upload by its relative reference if present.
func (s *UploadStorage) Delete(reference string) error {
	if reference == "" {
		return nil
	}
	name := path.Base(reference)
	if err := os.Remove(filepath.Join(s.baseDir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// Path resolves a relative reference to the absolute on-disk location.
func (s *UploadStorage) Path(reference string) string {
	return filepath.Join(s.baseDir, path.Base(reference))
}

// Dir exposes the base directory for static file serving.
func (s *UploadStorage) Dir() string {
	return s.baseDir
}

// sanitize strips path separators and whitespace from user supplied names.
func sanitize(filename string) string {
	name := filepath.Base(filename)
	name = strings.ReplaceAll(name, " ", "_")
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}
