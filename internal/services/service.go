// Package services implements the key registry operations on top of the
// repositories: key and scoped-value lifecycle, inline token resolution and
// redaction. Every mutating operation runs inside one transaction so a
// half-written key never becomes visible.
package services

import (
	"context"
	"database/sql"

	"github.com/cetmix/towervault/internal/dbx"
	"github.com/cetmix/towervault/internal/logging"
	"github.com/cetmix/towervault/internal/models"
	"github.com/cetmix/towervault/internal/repositories/keys"
	"github.com/cetmix/towervault/internal/repositories/keyvalues"
	"github.com/cetmix/towervault/internal/repositories/repomanager"
	"github.com/cetmix/towervault/internal/secretfield"
)

// KeyService is the application-facing surface of the key registry.
type KeyService struct {
	db  *sql.DB
	rm  repomanager.RepositoryManager
	log logging.Logger
}

func NewKeyService(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) *KeyService {
	return &KeyService{db: db, rm: rm, log: log.With("service", "keys")}
}

// unit bundles the repositories for one unit of work, all bound to the same
// DBTX so they share the ambient transaction.
type unit struct {
	keys    keys.Repository
	values  keyvalues.Repository
	secrets *secretfield.Manager
}

func (s *KeyService) unit(db dbx.DBTX) unit {
	return unit{
		keys:    s.rm.Keys(db),
		values:  s.rm.KeyValues(db),
		secrets: secretfield.NewManager(s.rm.Vault(db)),
	}
}

// insertValues runs the two-phase create for scoped values: real secret
// values are swapped for temp tokens, rows are inserted, tokens are read back
// against the generated IDs and resolved into the vault, and the columns are
// cleared. Returned models carry the masking placeholder.
func insertValues(ctx context.Context, u unit, values []*models.KeyValue) error {
	batch := secretfield.NewCreateBatch()
	for _, v := range values {
		if v.SecretValue != "" && v.SecretValue != secretfield.Placeholder {
			v.SecretValue = batch.Add(v.SecretValue)
		} else {
			v.SecretValue = ""
		}
	}

	if err := u.values.Insert(ctx, values); err != nil {
		return err
	}
	ids := valueIDs(values)

	rowSecrets, err := u.values.SelectSecretColumns(ctx, ids)
	if err != nil {
		return err
	}
	if err := u.secrets.FinalizeCreate(ctx, models.KeyValueOwnerType, rowSecrets, batch); err != nil {
		return err
	}
	if err := u.values.ClearSecretColumns(ctx, ids); err != nil {
		return err
	}

	for _, v := range values {
		v.SecretValue = secretfield.Placeholder
	}
	return nil
}

func keyIDs(ks []*models.Key) []int64 {
	ids := make([]int64, 0, len(ks))
	for _, k := range ks {
		ids = append(ids, k.ID)
	}
	return ids
}

func valueIDs(vs []*models.KeyValue) []int64 {
	ids := make([]int64, 0, len(vs))
	for _, v := range vs {
		ids = append(ids, v.ID)
	}
	return ids
}
