package repomanager

import (
	"github.com/dsmirnov/filedrop/internal/server/repositories/files"
	"github.com/dsmirnov/filedrop/internal/server/repositories/leads"
)

// InMemoryRepositoryManager backs the service layer with map-based
// repositories. Used by tests and by runs without a database.
type InMemoryRepositoryManager struct {
	leads *leads.InMemoryRepository
	files *files.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		leads: leads.NewInMemoryRepository(),
		files: files.NewInMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) Leads() leads.Repository {
	return m.leads
}

// LeadStore returns the concrete in-memory lead repository so tests can
// inspect internal counters.
func (m *InMemoryRepositoryManager) LeadStore() *leads.InMemoryRepository {
	return m.leads
}

func (m *InMemoryRepositoryManager) Files() files.Repository {
	return m.files
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
