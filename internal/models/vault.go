package models

// VaultEntry is one opaque secret payload in the vault indirection table.
// It is addressed purely by (owner type, owner id, field name); the vault
// has no knowledge of which entity kinds exist.
type VaultEntry struct {
	ID        int64
	OwnerType string
	OwnerID   int64
	FieldName string
	Data      string
}
