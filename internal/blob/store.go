package blob

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// Store is the opaque file service receipts and case documents live in. The
// core only ever uploads and deletes by reference.
type Store interface {
	Upload(ctx context.Context, ref string, content io.Reader) error
	Delete(ctx context.Context, ref string) error
}

type noopStore struct{}

func NewNoopStore() Store {
	return noopStore{}
}

func (noopStore) Upload(context.Context, string, io.Reader) error { return nil }
func (noopStore) Delete(context.Context, string) error            { return nil }

// CleanupReceipt deletes a superseded receipt, best effort. Blob cleanup is
// not transactional with the record write: a failure here is logged and never
// blocks the mutation that triggered it.
func CleanupReceipt(ctx context.Context, store Store, ref string, logger *zap.Logger) {
	if store == nil || ref == "" {
		return
	}
	if err := store.Delete(ctx, ref); err != nil {
		logger.Warn("cleanup superseded receipt failed",
			zap.String("receipt_ref", ref),
			zap.Error(err),
		)
	}
}
