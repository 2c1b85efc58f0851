package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxUploadBytes caps photo and avatar uploads.
const MaxUploadBytes = 5 << 20

// Store keeps uploaded images on local disk under root, one subdirectory
// per kind ("geocaches", "avatars"). References handed out are paths
// relative to root and are treated as opaque by callers.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// AllowedImage reports whether the filename carries an accepted image
// extension.
func AllowedImage(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif":
		return true
	}
	return false
}

// Save writes the content to disk and returns the reference.
func (s *Store) Save(kind, filename string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitize(filename))
	ref := filepath.Join(kind, name)

	dir := filepath.Join(s.root, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(s.root, ref))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(r, MaxUploadBytes)); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return ref, nil
}

// SaveUpload validates a multipart image upload and stores it, returning
// the reference and the declared content type.
func (s *Store) SaveUpload(kind string, fh *multipart.FileHeader) (string, string, error) {
	if !AllowedImage(fh.Filename) {
		return "", "", errors.New("only images are allowed")
	}
	if fh.Size > MaxUploadBytes {
		return "", "", errors.New("image exceeds the 5MB limit")
	}

	src, err := fh.Open()
	if err != nil {
		return "", "", err
	}
	defer src.Close()

	ref, err := s.Save(kind, fh.Filename, src)
	if err != nil {
		return "", "", err
	}
	return ref, fh.Header.Get("Content-Type"), nil
}

// Path maps a reference to its absolute location on disk. References that
// try to escape the root resolve to an empty string.
func (s *Store) Path(ref string) string {
	cleaned := filepath.Clean(ref)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return ""
	}
	return filepath.Join(s.root, cleaned)
}

func (s *Store) Remove(ref string) error {
	path := s.Path(ref)
	if path == "" {
		return os.ErrNotExist
	}
	return os.Remove(path)
}

func sanitize(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "upload"
	}
	return base
}
