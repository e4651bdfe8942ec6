package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Per-category subdirectories under the media root.
const (
	AvatarDir = "avatars"
	ImageDir  = "images"
	VideoDir  = "videos"
)

// Store writes media files under a root directory, one subdirectory per
// category. Writes go to a temp file first and are renamed into place, so a
// concurrent reader never sees a half-written file; concurrent writers to
// the same name keep last-write-wins semantics.
type Store struct {
	root string
}

// NewStore creates the category directories under root
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{AvatarDir, ImageDir, VideoDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create media dir %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// Save atomically writes data under category/filename, replacing any
// previous file with that name.
func (s *Store) Save(category, filename string, data []byte) error {
	dir := filepath.Join(s.root, category)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, filename))
}

// SaveStream atomically writes a reader's contents under category/filename.
// Used for videos, which are stored unmodified.
func (s *Store) SaveStream(category, filename string, r io.Reader) error {
	dir := filepath.Join(s.root, category)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, filename))
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *Store) Remove(category, filename string) error {
	err := os.Remove(filepath.Join(s.root, category, filename))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Dir returns the absolute directory of a category, for static serving
func (s *Store) Dir(category string) string {
	return filepath.Join(s.root, category)
}
