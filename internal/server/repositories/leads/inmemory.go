package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dsmirnov/filedrop/internal/common"
	"github.com/dsmirnov/filedrop/internal/server/models"
)

// InMemoryRepository is a mutex-guarded map implementation used by service
// tests and the in-memory repository manager.
type InMemoryRepository struct {
	mu    sync.Mutex
	byIP  map[string]*models.Lead
	SaveN int // number of successful Save calls, inspected by tests
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byIP: make(map[string]*models.Lead)}
}

func (r *InMemoryRepository) GetOrCreate(ctx context.Context, ip string, today time.Time) (*models.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lead, ok := r.byIP[ip]; ok {
		copy := *lead
		return &copy, nil
	}

	lead := &models.Lead{
		ID:               uuid.NewString(),
		IPAddress:        ip,
		LastUploadDate:   today,
		LastDownloadDate: today,
	}
	r.byIP[ip] = lead

	copy := *lead
	return &copy, nil
}

func (r *InMemoryRepository) Save(ctx context.Context, lead *models.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byIP[lead.IPAddress]
	if !ok || stored.ID != lead.ID {
		return common.ErrStorage
	}

	copy := *lead
	r.byIP[lead.IPAddress] = &copy
	r.SaveN++

	return nil
}
