package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dsmirnov/filedrop/internal/server/migrations"
	"github.com/dsmirnov/filedrop/internal/server/repositories/files"
	"github.com/dsmirnov/filedrop/internal/server/repositories/leads"
)

// PostgresRepositoryManager owns the database handle and the repositories
// bound to it.
type PostgresRepositoryManager struct {
	db    *sql.DB
	leads leads.Repository
	files files.Repository
}

// NewPostgresRepositoryManager opens the database via the pgx stdlib driver,
// applies pending migrations and builds the repositories.
func NewPostgresRepositoryManager(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:    db,
		leads: leads.NewPostgresRepository(db),
		files: files.NewPostgresRepository(db),
	}

	if err := m.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}

func (m *PostgresRepositoryManager) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, m.db, ".")
}

func (m *PostgresRepositoryManager) Leads() leads.Repository {
	return m.leads
}

func (m *PostgresRepositoryManager) Files() files.Repository {
	return m.files
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}
