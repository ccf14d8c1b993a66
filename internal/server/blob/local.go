package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dsmirnov/filedrop/internal/common"
)

// Local stores payloads as files under a single directory. Writes go
// through a temp file and an atomic rename, so readers never observe a
// partially written payload.
type Local struct {
	dataDir string
}

// NewLocal creates the data directory if needed and returns a store
// rooted at it.
func NewLocal(dataDir string) (*Local, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	return &Local{dataDir: dataDir}, nil
}

func (l *Local) Save(ctx context.Context, r io.Reader, maxBytes int64) (string, int64, error) {
	if maxBytes <= 0 {
		return "", 0, common.ErrSizeExceeded
	}

	key := uuid.New().String()
	fullPath := l.path(key)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	// Read one byte past the budget so an oversized stream is detected
	// without consuming it entirely.
	size, err := io.Copy(f, io.LimitReader(r, maxBytes+1))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("write payload: %w", err)
	}
	if size > maxBytes {
		f.Close()
		os.Remove(tmpPath)
		return "", 0, common.ErrSizeExceeded
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("sync payload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("close payload: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("rename payload: %w", err)
	}

	return key, size, nil
}

func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("open payload: %w", err)
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, key string) (bool, error) {
	err := os.Remove(l.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove payload: %w", err)
	}
	return true, nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(l.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat payload: %w", err)
	}
	return true, nil
}

// path maps a storage key to its on-disk location. Keys are server-generated
// UUIDs, so no sanitization against traversal is needed, but Base guards
// against a corrupted key from the database.
func (l *Local) path(key string) string {
	return filepath.Join(l.dataDir, filepath.Base(key))
}
