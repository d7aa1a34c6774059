package secretfield

import "fmt"

// tempTokenFormat makes a residual token recognizable on sight should one
// ever survive a failed create.
const tempTokenFormat = "__vault_tmp_%d__"

// CreateBatch correlates temporary tokens with real secret values within a
// single creation batch. Rows are inserted with tokens in their secret
// columns because real identities do not exist yet; after the insert the
// tokens are resolved back to values keyed by the real row IDs.
//
// The counter is batch-local, never shared across batches, which is what
// makes concurrent creation safe.
type CreateBatch struct {
	counter int
	values  map[string]string
}

func NewCreateBatch() *CreateBatch {
	return &CreateBatch{values: make(map[string]string)}
}

// Add registers a real value and returns the temp token to store in the row
// until the insert completes.
func (b *CreateBatch) Add(value string) string {
	b.counter++
	token := fmt.Sprintf(tempTokenFormat, b.counter)
	b.values[token] = value
	return token
}

// Resolve returns the real value for a temp token.
func (b *CreateBatch) Resolve(token string) (string, bool) {
	value, ok := b.values[token]
	return value, ok
}

// Empty reports whether the batch carries no secret values.
func (b *CreateBatch) Empty() bool {
	return len(b.values) == 0
}

// ExtractSecrets pulls non-empty declared secret fields out of creation
// payloads, replacing each with a temp token, and returns the correlation
// batch. Payload maps are modified in place.
func ExtractSecrets(fields []string, valsList []map[string]string) *CreateBatch {
	batch := NewCreateBatch()
	for _, vals := range valsList {
		for _, field := range fields {
			if value, ok := vals[field]; ok && value != "" {
				vals[field] = batch.Add(value)
			}
		}
	}
	return batch
}
