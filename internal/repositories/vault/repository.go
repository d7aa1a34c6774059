package vault

import "context"

// Repository is the flat indirection table mapping
// (owner type, owner id, field name) to an opaque value. It knows nothing
// about secret semantics, substitution, or redaction.
type Repository interface {
	// Get returns stored values as map[ownerID]map[fieldName]value.
	// Owners with no stored value for a field are simply absent from the
	// result; absence is not an error.
	Get(ctx context.Context, ownerType string, ownerIDs []int64, fieldNames []string) (map[int64]map[string]string, error)

	// Set writes one field-to-value map for a group of owners. An empty
	// value deletes any existing entry; a non-empty value is created or
	// overwritten. All owners in the call receive the same values, so N
	// owners sharing a value cost one statement.
	Set(ctx context.Context, ownerType string, ownerIDs []int64, vals map[string]string) error

	// DeleteAll removes every entry for the given owners. Best-effort
	// cascade: missing entries are not an error.
	DeleteAll(ctx context.Context, ownerType string, ownerIDs []int64) error
}
