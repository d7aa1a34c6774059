package keys

import (
	"context"

	"github.com/cetmix/towervault/internal/models"
)

// Repository is key registry storage. Ordinary read paths mask the
// secret-backed column; the raw column is only reachable through
// SelectSecretColumns, which exists for the two-phase create flow.
type Repository interface {
	// Insert stores the given keys and fills in their generated IDs,
	// in order.
	Insert(ctx context.Context, keys []*models.Key) error

	// GetByID returns one key or common.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.Key, error)

	// GetByReference returns one key by its unique reference or
	// common.ErrNotFound.
	GetByReference(ctx context.Context, reference string) (*models.Key, error)

	// List returns all keys ordered by name.
	List(ctx context.Context) ([]*models.Key, error)

	// Update rewrites the non-secret attributes of a key.
	Update(ctx context.Context, key *models.Key) error

	// Delete removes the given keys. Scoped values cascade in the schema.
	Delete(ctx context.Context, ids []int64) error

	// ReferenceExists reports whether a reference is taken by a key other
	// than excludeID (pass 0 to consider all keys).
	ReferenceExists(ctx context.Context, reference string, excludeID int64) (bool, error)

	// NameExists reports whether any key carries the given name.
	NameExists(ctx context.Context, name string) (bool, error)

	// SelectSecretColumns reads the raw secret-backed column contents for
	// the given rows, bypassing masking. Used after a batch insert to
	// correlate temp tokens with real identities.
	SelectSecretColumns(ctx context.Context, ids []int64) (map[int64]map[string]string, error)

	// ClearSecretColumns empties the secret-backed columns for the given
	// rows in one bulk update.
	ClearSecretColumns(ctx context.Context, ids []int64) error
}
