package blob

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// diskStore keeps blobs on the local filesystem, keyed by their reference.
// Good enough for a single-node deployment; swap in an object store behind
// the same interface otherwise.
type diskStore struct {
	root string
}

func NewDiskStore(root string) (Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &diskStore{root: root}, nil
}

func (s *diskStore) path(ref string) string {
	// Refs are opaque, keep them from escaping the root.
	clean := filepath.Clean("/" + strings.ReplaceAll(ref, "..", ""))
	return filepath.Join(s.root, clean)
}

func (s *diskStore) Upload(ctx context.Context, ref string, content io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.path(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		return err
	}
	// Close flushes to disk; a failure here means the blob is incomplete.
	return f.Close()
}

func (s *diskStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.path(ref))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
