package files

import (
	"context"
	"sync"

	"github.com/dsmirnov/filedrop/internal/common"
	"github.com/dsmirnov/filedrop/internal/server/models"
)

// InMemoryRepository is a mutex-guarded map implementation used by service
// tests and the in-memory repository manager. Like the Postgres schema it
// keeps tombstoned rows around, so key uniqueness spans deleted files too.
type InMemoryRepository struct {
	mu   sync.Mutex
	byID map[string]*models.StoredFile
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byID: make(map[string]*models.StoredFile)}
}

func (r *InMemoryRepository) Create(ctx context.Context, file *models.StoredFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.PublicKey == file.PublicKey || existing.PrivateKey == file.PrivateKey {
			return common.ErrDuplicateKey
		}
	}

	copy := *file
	r.byID[file.ID] = &copy

	return nil
}

func (r *InMemoryRepository) FindByPublicKey(ctx context.Context, key string) (*models.StoredFile, error) {
	return r.find(func(f *models.StoredFile) bool { return f.PublicKey == key })
}

func (r *InMemoryRepository) FindByPrivateKey(ctx context.Context, key string) (*models.StoredFile, error) {
	return r.find(func(f *models.StoredFile) bool { return f.PrivateKey == key })
}

func (r *InMemoryRepository) find(match func(*models.StoredFile) bool) (*models.StoredFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range r.byID {
		if match(f) && !f.IsDeleted {
			copy := *f
			return &copy, nil
		}
	}

	return nil, common.ErrorNotFound
}

func (r *InMemoryRepository) MarkDeleted(ctx context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.byID[fileID]; ok {
		f.IsDeleted = true
	}

	return nil
}
