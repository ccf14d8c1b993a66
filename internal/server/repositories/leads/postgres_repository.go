package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dsmirnov/filedrop/internal/common"
	"github.com/dsmirnov/filedrop/internal/dbx"
	"github.com/dsmirnov/filedrop/internal/server/models"
	"github.com/dsmirnov/filedrop/internal/server/quota"
)

// PostgresRepository implements the ledger over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetOrCreate inserts the lead if absent and reads it back. The insert uses
// ON CONFLICT DO NOTHING against the unique ip_address index, so two
// concurrent first requests race harmlessly: one insert wins, both selects
// see the same row.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, ip string, today time.Time) (*models.Lead, error) {
	insert := `
		INSERT INTO lead (lead_id, ip_address, upload_balance, download_balance, last_upload_date, last_download_date)
		VALUES ($1, $2, 0, 0, $3, $3)
		ON CONFLICT (ip_address) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), ip, today); err != nil {
		return nil, fmt.Errorf("%w: lead insert: %v", common.ErrStorage, err)
	}

	query := `
		SELECT lead_id, ip_address, upload_balance, download_balance, last_upload_date, last_download_date
		FROM lead
		WHERE ip_address = $1
	`
	lead := &models.Lead{}
	err := r.db.QueryRowContext(ctx, query, ip).Scan(
		&lead.ID, &lead.IPAddress,
		&lead.UploadBalance, &lead.DownloadBalance,
		&lead.LastUploadDate, &lead.LastDownloadDate,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: lead select: %v", common.ErrStorage, err)
	}

	lead.LastUploadDate = quota.Day(lead.LastUploadDate)
	lead.LastDownloadDate = quota.Day(lead.LastDownloadDate)

	return lead, nil
}

// Save writes back the balances and dates of an existing lead. Exactly one
// row must be affected.
func (r *PostgresRepository) Save(ctx context.Context, lead *models.Lead) error {
	query := `
		UPDATE lead
		SET upload_balance = $2, download_balance = $3, last_upload_date = $4, last_download_date = $5, updated_at = now()
		WHERE lead_id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		lead.ID, lead.UploadBalance, lead.DownloadBalance, lead.LastUploadDate, lead.LastDownloadDate)
	if err != nil {
		return fmt.Errorf("%w: lead update: %v", common.ErrStorage, err)
	}

	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", common.ErrStorage, err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: wrong rows affected count: %d", common.ErrStorage, ra)
	}

	return nil
}
