// Package files persists stored-file records and their capability keys.
package files

import (
	"context"

	"github.com/dsmirnov/filedrop/internal/server/models"
)

// Repository is the file registry store. Key uniqueness is enforced by the
// storage layer itself (unique constraints on both key columns), not just
// in application logic.
type Repository interface {
	// Create inserts a new record. A unique violation on either key maps
	// to common.ErrDuplicateKey so the caller can retry with a fresh pair.
	Create(ctx context.Context, file *models.StoredFile) error

	// FindByPublicKey returns the live record addressed by the read key.
	// Tombstoned records are excluded; a miss is common.ErrorNotFound.
	FindByPublicKey(ctx context.Context, key string) (*models.StoredFile, error)

	// FindByPrivateKey returns the live record addressed by the delete key.
	FindByPrivateKey(ctx context.Context, key string) (*models.StoredFile, error)

	// MarkDeleted flips the tombstone. The row is retained so neither key
	// can ever be reused.
	MarkDeleted(ctx context.Context, fileID string) error
}
