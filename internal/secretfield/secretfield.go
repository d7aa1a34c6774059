// Package secretfield implements the secret-backed field capability: entity
// types declare which attributes are secret-backed, and this package routes
// those attributes through the vault store so the owning table never holds a
// real value.
package secretfield

import (
	"context"
	"fmt"

	"github.com/cetmix/towervault/internal/repositories/vault"
)

// Placeholder is what ordinary reads of a secret-backed field return.
const Placeholder = "*****"

// Owner identifies a vault entry owner.
type Owner interface {
	OwnerType() string
	OwnerID() int64
}

// SecretBacked is the capability flag: an entity type that declares
// secret-backed attribute names.
type SecretBacked interface {
	Owner
	SecretFields() []string
}

// Manager routes secret-backed attribute values to and from a vault
// repository. Construct one per unit of work, bound to the repository for
// the ambient transaction.
type Manager struct {
	vault vault.Repository
}

func NewManager(v vault.Repository) *Manager {
	return &Manager{vault: v}
}

// RealValue returns the true stored value of one secret-backed field,
// bypassing masking. The second return is false when no value is set or the
// field is not declared; absence is never an error.
func (m *Manager) RealValue(ctx context.Context, owner SecretBacked, field string) (string, bool, error) {
	if !declared(owner.SecretFields(), field) {
		return "", false, nil
	}
	values, err := m.vault.Get(ctx, owner.OwnerType(), []int64{owner.OwnerID()}, []string{field})
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch secret value: %w", err)
	}
	value, ok := values[owner.OwnerID()][field]
	return value, ok, nil
}

// RealValues returns true stored values for many owners at once, as
// map[ownerID]map[field]value. Owners with nothing stored are absent.
func (m *Manager) RealValues(ctx context.Context, ownerType string, ownerIDs []int64, fields []string) (map[int64]map[string]string, error) {
	return m.vault.Get(ctx, ownerType, ownerIDs, fields)
}

// SetValues writes secret-backed values for one owner. Fields outside the
// owner's declared list are ignored. Empty values clear the stored entry.
func (m *Manager) SetValues(ctx context.Context, owner SecretBacked, vals map[string]string) error {
	allowed := filterDeclared(owner.SecretFields(), vals)
	if len(allowed) == 0 {
		return nil
	}
	return m.vault.Set(ctx, owner.OwnerType(), []int64{owner.OwnerID()}, allowed)
}

// FinalizeCreate completes the two-phase create: rowSecrets holds the
// secret-column contents (temp tokens) read back per inserted row, and batch
// maps tokens to real values. Vault writes are grouped by identical value so
// N rows sharing a value cost one write.
func (m *Manager) FinalizeCreate(ctx context.Context, ownerType string, rowSecrets map[int64]map[string]string, batch *CreateBatch) error {
	if batch.Empty() {
		return nil
	}

	type group struct {
		field string
		value string
	}
	groups := make(map[group][]int64)
	for ownerID, fields := range rowSecrets {
		for field, token := range fields {
			value, ok := batch.Resolve(token)
			if !ok {
				continue
			}
			g := group{field: field, value: value}
			groups[g] = append(groups[g], ownerID)
		}
	}

	for g, ownerIDs := range groups {
		if err := m.vault.Set(ctx, ownerType, ownerIDs, map[string]string{g.field: g.value}); err != nil {
			return err
		}
	}
	return nil
}

// CascadeDelete removes every vault entry for the given owners. Call after
// the owning rows are deleted.
func (m *Manager) CascadeDelete(ctx context.Context, ownerType string, ownerIDs []int64) error {
	return m.vault.DeleteAll(ctx, ownerType, ownerIDs)
}

// SplitUpdate removes declared secret-backed fields from an update payload
// and returns them separately. The payload map is modified in place; the
// returned map is what must be routed to the vault.
func SplitUpdate(fields []string, vals map[string]string) map[string]string {
	secrets := make(map[string]string)
	for _, field := range fields {
		if value, ok := vals[field]; ok {
			secrets[field] = value
			delete(vals, field)
		}
	}
	return secrets
}

func declared(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

func filterDeclared(fields []string, vals map[string]string) map[string]string {
	allowed := make(map[string]string, len(vals))
	for field, value := range vals {
		if declared(fields, field) {
			allowed[field] = value
		}
	}
	return allowed
}
