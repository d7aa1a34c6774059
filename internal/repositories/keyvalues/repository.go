package keyvalues

import (
	"context"

	"github.com/cetmix/towervault/internal/models"
)

// Repository is scoped override storage. Like the key registry, ordinary
// reads mask the secret-backed column; SelectSecretColumns exists for the
// two-phase create flow only.
type Repository interface {
	// Insert stores the given values and fills in their generated IDs,
	// in order.
	Insert(ctx context.Context, values []*models.KeyValue) error

	// GetByID returns one value or common.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.KeyValue, error)

	// SelectByKey returns all values for one key.
	SelectByKey(ctx context.Context, keyID int64) ([]*models.KeyValue, error)

	// SelectByKeys returns all values for a group of keys.
	SelectByKeys(ctx context.Context, keyIDs []int64) ([]*models.KeyValue, error)

	// Update rewrites the scope of a value.
	Update(ctx context.Context, value *models.KeyValue) error

	// Delete removes the given values.
	Delete(ctx context.Context, ids []int64) error

	// SelectSecretColumns reads raw secret-backed column contents,
	// bypassing masking.
	SelectSecretColumns(ctx context.Context, ids []int64) (map[int64]map[string]string, error)

	// ClearSecretColumns empties the secret-backed columns in one bulk
	// update.
	ClearSecretColumns(ctx context.Context, ids []int64) error
}
