package repomanager

import (
	"context"
	"database/sql"

	"github.com/cetmix/towervault/internal/dbx"
	"github.com/cetmix/towervault/internal/repositories/keys"
	"github.com/cetmix/towervault/internal/repositories/keyvalues"
	"github.com/cetmix/towervault/internal/repositories/vault"
)

// RepositoryManager vends repository implementations bound to a DBTX so the
// same unit of work can span several repositories inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Vault(db dbx.DBTX) vault.Repository
	Keys(db dbx.DBTX) keys.Repository
	KeyValues(db dbx.DBTX) keyvalues.Repository
}
