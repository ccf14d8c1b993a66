// Package repomanager bundles the repositories behind one constructor so
// the service layer can be wired against Postgres in production and against
// the in-memory implementations in tests.
package repomanager

import (
	"github.com/dsmirnov/filedrop/internal/server/repositories/files"
	"github.com/dsmirnov/filedrop/internal/server/repositories/leads"
)

// RepositoryManager exposes the data-owning repositories.
type RepositoryManager interface {
	Leads() leads.Repository
	Files() files.Repository
	Close() error
}
