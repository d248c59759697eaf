package blob_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/azydesilva/Ecorporate-sub004/internal/blob"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDiskStore(t *testing.T) {
	ctx := context.Background()

	t.Run("upload then delete round trip", func(t *testing.T) {
		root := t.TempDir()
		store, err := blob.NewDiskStore(root)
		assert.NoError(t, err)

		ref := "receipts/2026/08/r-001.pdf"
		assert.NoError(t, store.Upload(ctx, ref, strings.NewReader("receipt-bytes")))

		content, err := os.ReadFile(filepath.Join(root, "receipts", "2026", "08", "r-001.pdf"))
		assert.NoError(t, err)
		assert.Equal(t, "receipt-bytes", string(content))

		assert.NoError(t, store.Delete(ctx, ref))
		_, err = os.Stat(filepath.Join(root, "receipts", "2026", "08", "r-001.pdf"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("negative failed copy surfaces the error", func(t *testing.T) {
		root := t.TempDir()
		store, err := blob.NewDiskStore(root)
		assert.NoError(t, err)

		assert.Error(t, store.Upload(ctx, "broken.pdf", &failingReader{}))
	})

	t.Run("upload is fully flushed when it returns", func(t *testing.T) {
		root := t.TempDir()
		store, err := blob.NewDiskStore(root)
		assert.NoError(t, err)

		payload := strings.Repeat("r", 1<<16)
		assert.NoError(t, store.Upload(ctx, "big.pdf", strings.NewReader(payload)))

		info, err := os.Stat(filepath.Join(root, "big.pdf"))
		assert.NoError(t, err)
		assert.Equal(t, int64(len(payload)), info.Size())
	})

	t.Run("delete of a missing ref is a no-op", func(t *testing.T) {
		store, err := blob.NewDiskStore(t.TempDir())
		assert.NoError(t, err)
		assert.NoError(t, store.Delete(ctx, "never-uploaded"))
	})

	t.Run("refs cannot escape the root", func(t *testing.T) {
		root := t.TempDir()
		store, err := blob.NewDiskStore(root)
		assert.NoError(t, err)

		outside := filepath.Join(filepath.Dir(root), "escape.txt")
		assert.NoError(t, store.Upload(ctx, "../escape.txt", strings.NewReader("x")))
		_, err = os.Stat(outside)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestCleanupReceipt(t *testing.T) {
	ctx := context.Background()

	t.Run("nil store and empty ref are ignored", func(t *testing.T) {
		assert.NotPanics(t, func() {
			blob.CleanupReceipt(ctx, nil, "receipts/x.pdf", zap.NewNop())
			blob.CleanupReceipt(ctx, blob.NewNoopStore(), "", zap.NewNop())
		})
	})

	t.Run("deletes the superseded receipt", func(t *testing.T) {
		root := t.TempDir()
		store, err := blob.NewDiskStore(root)
		assert.NoError(t, err)

		assert.NoError(t, store.Upload(ctx, "old.pdf", strings.NewReader("y")))
		blob.CleanupReceipt(ctx, store, "old.pdf", zap.NewNop())

		_, err = os.Stat(filepath.Join(root, "old.pdf"))
		assert.True(t, os.IsNotExist(err))
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("stream interrupted") }
