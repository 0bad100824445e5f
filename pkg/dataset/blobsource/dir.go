package blobsource

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/glint-ui/glint/pkg/dataset"
)

// DirSource stores blobs as files in a flat directory, one file per
// canonical key (path-escaped so the canonical separators never form
// subdirectories). Intended for development and tests.
type DirSource struct {
	root string
}

// NewDirSource creates a directory source rooted at root. The directory
// is created on the first Store.
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// Fetch implements dataset.Source.
func (s *DirSource) Fetch(ctx context.Context, key dataset.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key.Canonical()))
	if os.IsNotExist(err) {
		return nil, dataset.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Store implements dataset.Source. The write is atomic: a temp file in
// the same directory renamed over the target, so a concurrent Fetch sees
// either the old blob or the new one, never a torn write.
func (s *DirSource) Store(ctx context.Context, key dataset.Key, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return err
	}
	target := s.path(key.Canonical())
	tmp, err := os.CreateTemp(s.root, ".blob-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("blobsource: store %s: %w", key, err)
	}
	return nil
}

func (s *DirSource) path(canonical string) string {
	return filepath.Join(s.root, url.PathEscape(canonical))
}
