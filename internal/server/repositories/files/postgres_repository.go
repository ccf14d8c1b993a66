package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dsmirnov/filedrop/internal/common"
	"github.com/dsmirnov/filedrop/internal/dbx"
	"github.com/dsmirnov/filedrop/internal/server/models"
)

// PostgresRepository implements the file registry over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// uniqueViolation is the PostgreSQL error code for a unique constraint
// violation (class 23, integrity constraint violation).
const uniqueViolation = "23505"

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.StoredFile) error {
	query := `
		INSERT INTO stored_file (file_id, file_name, file_url, file_size_mb, public_key, private_key)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.Name, file.StorageKey, file.SizeMB, file.PublicKey, file.PrivateKey)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrDuplicateKey
		}
		return fmt.Errorf("%w: file insert: %v", common.ErrStorage, err)
	}

	return nil
}

func (r *PostgresRepository) FindByPublicKey(ctx context.Context, key string) (*models.StoredFile, error) {
	return r.findByKey(ctx, "public_key", key)
}

func (r *PostgresRepository) FindByPrivateKey(ctx context.Context, key string) (*models.StoredFile, error) {
	return r.findByKey(ctx, "private_key", key)
}

// findByKey looks up a live record by one of the two key columns. The
// column name is interpolated from a fixed internal set, never from input.
func (r *PostgresRepository) findByKey(ctx context.Context, column, key string) (*models.StoredFile, error) {
	query := fmt.Sprintf(`
		SELECT file_id, file_name, file_url, file_size_mb, public_key, private_key, is_deleted
		FROM stored_file
		WHERE %s = $1 AND is_deleted = FALSE
	`, column)

	file := &models.StoredFile{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&file.ID, &file.Name, &file.StorageKey, &file.SizeMB,
		&file.PublicKey, &file.PrivateKey, &file.IsDeleted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: file select: %v", common.ErrStorage, err)
	}

	return file, nil
}

// MarkDeleted flips the tombstone. Affecting zero rows is not an error:
// a concurrent delete may have won, and the outcome is the same.
func (r *PostgresRepository) MarkDeleted(ctx context.Context, fileID string) error {
	query := `UPDATE stored_file SET is_deleted = TRUE, updated_at = now() WHERE file_id = $1`
	result, err := r.db.ExecContext(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("%w: file update: %v", common.ErrStorage, err)
	}

	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", common.ErrStorage, err)
	}
	if ra > 1 {
		return fmt.Errorf("%w: unexpected rows affected: %d", common.ErrStorage, ra)
	}

	return nil
}
