package secretfield

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeOwner struct {
	ownerType string
	id        int64
	fields    []string
}

func (o *fakeOwner) OwnerType() string      { return o.ownerType }
func (o *fakeOwner) OwnerID() int64         { return o.id }
func (o *fakeOwner) SecretFields() []string { return o.fields }

type entryKey struct {
	ownerType string
	ownerID   int64
	field     string
}

type fakeVault struct {
	entries map[entryKey]string
	setOps  int
}

func newFakeVault() *fakeVault {
	return &fakeVault{entries: make(map[entryKey]string)}
}

func (v *fakeVault) Get(_ context.Context, ownerType string, ownerIDs []int64, fieldNames []string) (map[int64]map[string]string, error) {
	result := make(map[int64]map[string]string)
	for _, id := range ownerIDs {
		for _, field := range fieldNames {
			if data, ok := v.entries[entryKey{ownerType, id, field}]; ok {
				if result[id] == nil {
					result[id] = make(map[string]string)
				}
				result[id][field] = data
			}
		}
	}
	return result, nil
}

func (v *fakeVault) Set(_ context.Context, ownerType string, ownerIDs []int64, vals map[string]string) error {
	v.setOps++
	for _, id := range ownerIDs {
		for field, value := range vals {
			k := entryKey{ownerType, id, field}
			if value == "" {
				delete(v.entries, k)
			} else {
				v.entries[k] = value
			}
		}
	}
	return nil
}

func (v *fakeVault) DeleteAll(_ context.Context, ownerType string, ownerIDs []int64) error {
	for _, id := range ownerIDs {
		for k := range v.entries {
			if k.ownerType == ownerType && k.ownerID == id {
				delete(v.entries, k)
			}
		}
	}
	return nil
}

func TestRealValue_RoundTrip(t *testing.T) {
	fv := newFakeVault()
	m := NewManager(fv)
	owner := &fakeOwner{ownerType: "tower.key", id: 1, fields: []string{"secret_value"}}
	ctx := context.Background()

	require.NoError(t, m.SetValues(ctx, owner, map[string]string{"secret_value": "hunter2"}))

	got, ok, err := m.RealValue(ctx, owner, "secret_value")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hunter2", got)
}

func TestRealValue_MissingIsNotAnError(t *testing.T) {
	m := NewManager(newFakeVault())
	owner := &fakeOwner{ownerType: "tower.key", id: 1, fields: []string{"secret_value"}}

	got, ok, err := m.RealValue(context.Background(), owner, "secret_value")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, got)
}

func TestSetValues_UndeclaredFieldIgnored(t *testing.T) {
	fv := newFakeVault()
	m := NewManager(fv)
	owner := &fakeOwner{ownerType: "tower.key", id: 1, fields: []string{"secret_value"}}

	err := m.SetValues(context.Background(), owner, map[string]string{"note": "not a secret"})
	require.NoError(t, err)
	require.Empty(t, fv.entries)

	_, ok, err := m.RealValue(context.Background(), owner, "note")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetValues_EmptyValueClears(t *testing.T) {
	fv := newFakeVault()
	m := NewManager(fv)
	owner := &fakeOwner{ownerType: "tower.key", id: 1, fields: []string{"secret_value"}}
	ctx := context.Background()

	require.NoError(t, m.SetValues(ctx, owner, map[string]string{"secret_value": "v"}))
	require.NoError(t, m.SetValues(ctx, owner, map[string]string{"secret_value": ""}))
	require.Empty(t, fv.entries)
}

func TestExtractSecrets_ReplacesWithBatchLocalTokens(t *testing.T) {
	valsList := []map[string]string{
		{"name": "a", "secret_value": "one"},
		{"name": "b"},
		{"name": "c", "secret_value": "two"},
	}

	batch := ExtractSecrets([]string{"secret_value"}, valsList)

	require.NotEqual(t, "one", valsList[0]["secret_value"])
	require.NotEqual(t, "two", valsList[2]["secret_value"])
	_, hasSecret := valsList[1]["secret_value"]
	require.False(t, hasSecret, "rows without a secret stay untouched")

	v, ok := batch.Resolve(valsList[0]["secret_value"])
	require.True(t, ok)
	require.Equal(t, "one", v)
	v, ok = batch.Resolve(valsList[2]["secret_value"])
	require.True(t, ok)
	require.Equal(t, "two", v)

	// Tokens are distinct and monotonic within the batch.
	require.NotEqual(t, valsList[0]["secret_value"], valsList[2]["secret_value"])
}

func TestFinalizeCreate_GroupsIdenticalValues(t *testing.T) {
	fv := newFakeVault()
	m := NewManager(fv)
	ctx := context.Background()

	batch := NewCreateBatch()
	shared := batch.Add("shared-pw")

	rowSecrets := map[int64]map[string]string{
		10: {"secret_value": shared},
		11: {"secret_value": shared},
		12: {"secret_value": shared},
	}

	require.NoError(t, m.FinalizeCreate(ctx, "tower.key", rowSecrets, batch))
	require.Equal(t, 1, fv.setOps, "identical values across owners must cost one write")
	for id := int64(10); id <= 12; id++ {
		require.Equal(t, "shared-pw", fv.entries[entryKey{"tower.key", id, "secret_value"}])
	}
}

func TestFinalizeCreate_DistinctValuesPerRow(t *testing.T) {
	fv := newFakeVault()
	m := NewManager(fv)
	ctx := context.Background()

	batch := NewCreateBatch()
	rowSecrets := make(map[int64]map[string]string)
	for i := int64(1); i <= 100; i++ {
		token := batch.Add(fmt.Sprintf("secret-%d", i))
		rowSecrets[i] = map[string]string{"secret_value": token}
	}

	require.NoError(t, m.FinalizeCreate(ctx, "tower.key", rowSecrets, batch))
	require.Len(t, fv.entries, 100)
	for i := int64(1); i <= 100; i++ {
		require.Equal(t, fmt.Sprintf("secret-%d", i), fv.entries[entryKey{"tower.key", i, "secret_value"}])
	}
}

func TestFinalizeCreate_UnknownTokenSkipped(t *testing.T) {
	fv := newFakeVault()
	m := NewManager(fv)

	batch := NewCreateBatch()
	batch.Add("real")

	rowSecrets := map[int64]map[string]string{
		1: {"secret_value": "not-a-token"},
	}
	require.NoError(t, m.FinalizeCreate(context.Background(), "tower.key", rowSecrets, batch))
	require.Empty(t, fv.entries)
}

func TestSplitUpdate(t *testing.T) {
	vals := map[string]string{
		"name":         "renamed",
		"secret_value": "new-secret",
	}
	secrets := SplitUpdate([]string{"secret_value"}, vals)

	require.Equal(t, map[string]string{"secret_value": "new-secret"}, secrets)
	require.Equal(t, map[string]string{"name": "renamed"}, vals)
}

func TestCascadeDelete(t *testing.T) {
	fv := newFakeVault()
	m := NewManager(fv)
	owner := &fakeOwner{ownerType: "tower.key", id: 5, fields: []string{"secret_value"}}
	ctx := context.Background()

	require.NoError(t, m.SetValues(ctx, owner, map[string]string{"secret_value": "v"}))
	require.NoError(t, m.CascadeDelete(ctx, "tower.key", []int64{5}))
	require.Empty(t, fv.entries)
}
