// Package blob abstracts the physical storage of file bytes. The transfer
// core only ever sees opaque storage keys; where the bytes actually live
// (local disk or an S3-compatible bucket) is chosen by configuration.
package blob

import (
	"context"
	"io"
)

// Storage stores and retrieves file payloads by opaque key.
//
// Save enforces the caller's byte budget: when the stream exceeds maxBytes
// the write is aborted and common.ErrSizeExceeded is returned, leaving no
// partial object behind.
type Storage interface {
	// Save streams r into storage, returning the generated storage key and
	// the number of bytes written.
	Save(ctx context.Context, r io.Reader, maxBytes int64) (key string, size int64, err error)

	// Open returns a reader over the stored payload.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the payload. It reports false without error when the
	// payload was already absent.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether a payload is present under key.
	Exists(ctx context.Context, key string) (bool, error)
}
