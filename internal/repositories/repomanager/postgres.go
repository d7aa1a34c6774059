// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/cetmix/towervault/internal/cryptox"
	"github.com/cetmix/towervault/internal/dbx"
	"github.com/cetmix/towervault/internal/migrations"
	"github.com/cetmix/towervault/internal/repositories/keys"
	"github.com/cetmix/towervault/internal/repositories/keyvalues"
	"github.com/cetmix/towervault/internal/repositories/vault"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook. When a cipher is
// set, vault payloads are encrypted at rest; the repository contract is
// unchanged either way.
type PostgresRepositoryManager struct {
	cipher *cryptox.Cipher
}

// NewPostgresRepositoryManager constructs a manager. cipher may be nil for
// plaintext vault storage.
func NewPostgresRepositoryManager(cipher *cryptox.Cipher) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{cipher: cipher}
}

// Vault returns a vault.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Vault(db dbx.DBTX) vault.Repository {
	repo := vault.NewPostgresRepository(db)
	if m.cipher != nil {
		return vault.NewEncryptedRepository(repo, m.cipher)
	}
	return repo
}

// Keys returns a keys.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Keys(db dbx.DBTX) keys.Repository {
	return keys.NewPostgresRepository(db)
}

// KeyValues returns a keyvalues.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) KeyValues(db dbx.DBTX) keyvalues.Repository {
	return keyvalues.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}
