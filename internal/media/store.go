// Package media stores uploaded images on the local filesystem.
package media

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/config"
)

// Upload categories, used as sub-directories of the media root.
const (
	BookImages      = "book_images"
	ProfilePictures = "profile_pictures"
)

// URLPrefix is where the media root is served.
const URLPrefix = "/media/"

// MsgInvalidImage is the field error for uploads that are not images.
const MsgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Store writes uploads under a root directory with random file names.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates the media root if needed.
func NewStore(cfg config.Media) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &Store{dir: cfg.Dir, maxBytes: maxBytes}, nil
}

// SaveUpload stores a multipart upload. field names the form field for
// validation errors.
func (s *Store) SaveUpload(field, category string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.Save(field, category, f)
}

// Save validates that r holds an image within the size limit and writes it
// to category. It returns the path relative to the media root, using
// forward slashes.
func (s *Store) Save(field, category string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", apperr.Invalid(field, fmt.Sprintf("Ensure this file is no larger than %d bytes.", s.maxBytes))
	}

	mtype := mimetype.Detect(data)
	if !allowedTypes[mtype.String()] {
		return "", apperr.Invalid(field, MsgInvalidImage)
	}

	dir := filepath.Join(s.dir, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	name := uuid.NewString() + mtype.Extension()
	if err := writeAtomic(dir, name, data); err != nil {
		return "", err
	}
	return path.Join(category, name), nil
}

// writeAtomic writes through a temp file in the same directory so readers
// never see a partial image.
func writeAtomic(dir, name string, data []byte) error {
	tmpFile, err := os.CreateTemp(dir, "upload_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := io.Copy(tmpFile, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, filepath.Join(dir, name))
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(relPath string) error {
	full, ok := s.resolve(relPath)
	if !ok {
		return fmt.Errorf("invalid media path %q", relPath)
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) resolve(relPath string) (string, bool) {
	clean := path.Clean("/" + relPath)
	if clean == "/" || strings.Contains(relPath, "\\") {
		return "", false
	}
	return filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), true
}

// Dir returns the media root.
func (s *Store) Dir() string {
	return s.dir
}

// URL returns the public address of a stored file, or "" for none.
func URL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return URLPrefix + strings.TrimPrefix(relPath, "/")
}
