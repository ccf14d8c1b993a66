// Package leads persists the per-IP daily quota ledger.
package leads

import (
	"context"
	"time"

	"github.com/dsmirnov/filedrop/internal/server/models"
)

// Repository is the client quota ledger store.
type Repository interface {
	// GetOrCreate returns the ledger entry for ip, inserting a fresh one
	// with zero balances and both dates set to today if none exists.
	// Creation is atomic: concurrent first requests from one IP yield a
	// single entry.
	GetOrCreate(ctx context.Context, ip string, today time.Time) (*models.Lead, error)

	// Save persists the lead's balances and accrual dates.
	Save(ctx context.Context, lead *models.Lead) error
}
