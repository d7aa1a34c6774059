// Package models holds the persistence models shared by repositories and
// services.
package models

// KeyKind discriminates the two kinds of stored secrets.
type KeyKind string

const (
	// KindSSHKey is SSH private key material. The value lives on the key
	// itself (secret-backed).
	KindSSHKey KeyKind = "ssh_key"

	// KindSecret is a generic secret resolvable through scoped values.
	KindSecret KeyKind = "secret"
)

// Owner type identifiers used to address vault entries.
const (
	KeyOwnerType      = "tower.key"
	KeyValueOwnerType = "tower.key.value"
)

// SecretValueField is the single secret-backed attribute both Key and
// KeyValue declare.
const SecretValueField = "secret_value"

// Key is a named, referenceable secret definition. SecretValue is
// secret-backed: it never holds the real value outside the vault and reads
// back as the masking placeholder.
type Key struct {
	ID          int64
	Name        string
	Reference   string
	Kind        KeyKind
	SecretValue string
	Note        string
}

func (k *Key) OwnerType() string { return KeyOwnerType }
func (k *Key) OwnerID() int64    { return k.ID }

// SecretFields lists the secret-backed attribute names, in column order.
func (k *Key) SecretFields() []string { return []string{SecretValueField} }

// KeyValue is a scoped override for a secret-kind Key. ServerID and
// PartnerID are opaque references to external context entities; nil means
// the axis is unscoped. Both nil is the global value.
type KeyValue struct {
	ID          int64
	KeyID       int64
	ServerID    *int64
	PartnerID   *int64
	SecretValue string
}

func (v *KeyValue) OwnerType() string { return KeyValueOwnerType }
func (v *KeyValue) OwnerID() int64    { return v.ID }

func (v *KeyValue) SecretFields() []string { return []string{SecretValueField} }

// IsGlobal reports whether the value applies to all servers and partners.
func (v *KeyValue) IsGlobal() bool { return v.ServerID == nil && v.PartnerID == nil }

// SameScope reports whether two values cover the same (server, partner)
// combination.
func (v *KeyValue) SameScope(serverID, partnerID *int64) bool {
	return eqID(v.ServerID, serverID) && eqID(v.PartnerID, partnerID)
}

func eqID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
