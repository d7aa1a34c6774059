package vault

import (
	"context"
	"fmt"

	"github.com/cetmix/towervault/internal/cryptox"
)

// EncryptedRepository decorates a Repository with encryption at rest.
// Payloads are sealed before they reach the inner store and opened after
// they come back; the Repository contract is unchanged for callers.
//
// Each value is sealed once per Set call, so the inner store still sees
// identical payloads for all owners sharing a value and keeps its batched
// write shape.
type EncryptedRepository struct {
	inner  Repository
	cipher *cryptox.Cipher
}

// NewEncryptedRepository wraps inner with the given cipher.
func NewEncryptedRepository(inner Repository, cipher *cryptox.Cipher) *EncryptedRepository {
	return &EncryptedRepository{inner: inner, cipher: cipher}
}

func (r *EncryptedRepository) Get(ctx context.Context, ownerType string, ownerIDs []int64, fieldNames []string) (map[int64]map[string]string, error) {
	sealed, err := r.inner.Get(ctx, ownerType, ownerIDs, fieldNames)
	if err != nil {
		return nil, err
	}
	for ownerID, fields := range sealed {
		for field, data := range fields {
			plain, err := r.cipher.DecryptString(data)
			if err != nil {
				return nil, fmt.Errorf("failed to open vault entry %s/%d/%s: %w", ownerType, ownerID, field, err)
			}
			fields[field] = plain
		}
	}
	return sealed, nil
}

func (r *EncryptedRepository) Set(ctx context.Context, ownerType string, ownerIDs []int64, vals map[string]string) error {
	sealedVals := make(map[string]string, len(vals))
	for field, value := range vals {
		if value == "" {
			// Empty still means delete; never seal it.
			sealedVals[field] = ""
			continue
		}
		sealed, err := r.cipher.EncryptString(value)
		if err != nil {
			return fmt.Errorf("failed to seal vault entry: %w", err)
		}
		sealedVals[field] = sealed
	}
	return r.inner.Set(ctx, ownerType, ownerIDs, sealedVals)
}

func (r *EncryptedRepository) DeleteAll(ctx context.Context, ownerType string, ownerIDs []int64) error {
	return r.inner.DeleteAll(ctx, ownerType, ownerIDs)
}
