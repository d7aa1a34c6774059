package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/mitchellh/copystructure"

	"github.com/cetmix/towervault/internal/common"
	"github.com/cetmix/towervault/internal/dbx"
	"github.com/cetmix/towervault/internal/models"
	"github.com/cetmix/towervault/internal/repositories/keys"
	"github.com/cetmix/towervault/internal/secretfield"
)

// KeyInput describes one key to create.
type KeyInput struct {
	Name string

	// Reference is optional; when empty it is derived from Name.
	Reference string

	Kind models.KeyKind

	// SecretValue is the initial secret, optional. For secret-kind keys it
	// is stored as the global scoped value; for SSH keys it is stored
	// against the key itself.
	SecretValue string

	Note string
}

// KeyUpdate carries the attributes to change. Nil pointers leave the
// attribute untouched. An empty SecretValue clears the stored secret.
type KeyUpdate struct {
	Name        *string
	Reference   *string
	Note        *string
	SecretValue *string
}

// CreateKeys creates a batch of keys inside one transaction. Secret values
// never touch the key rows: they travel through temp tokens and land in the
// vault keyed by the generated IDs. Returned keys are masked.
func (s *KeyService) CreateKeys(ctx context.Context, inputs []KeyInput) ([]*models.Key, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	var created []*models.Key
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u := s.unit(tx)

		taken := make(map[string]bool)
		batch := secretfield.NewCreateBatch()
		ks := make([]*models.Key, 0, len(inputs))

		// Inline values of secret-kind keys become the global scoped value,
		// not a vault entry on the key row.
		globalValueByIdx := make(map[int]string)

		for i, in := range inputs {
			if err := validateKind(in.Kind); err != nil {
				return err
			}
			if in.Name == "" {
				return fmt.Errorf("%w: key name is required", common.ErrValidation)
			}

			ref, err := assignReference(ctx, u.keys, in.Reference, in.Name, 0, taken)
			if err != nil {
				return err
			}

			k := &models.Key{Name: in.Name, Reference: ref, Kind: in.Kind, Note: in.Note}
			if in.SecretValue != "" {
				if in.Kind == models.KindSecret {
					globalValueByIdx[i] = in.SecretValue
				} else {
					k.SecretValue = batch.Add(in.SecretValue)
				}
			}
			ks = append(ks, k)
		}

		if err := u.keys.Insert(ctx, ks); err != nil {
			return err
		}
		ids := keyIDs(ks)

		rowSecrets, err := u.keys.SelectSecretColumns(ctx, ids)
		if err != nil {
			return err
		}
		if err := u.secrets.FinalizeCreate(ctx, models.KeyOwnerType, rowSecrets, batch); err != nil {
			return err
		}
		if err := u.keys.ClearSecretColumns(ctx, ids); err != nil {
			return err
		}

		var globals []*models.KeyValue
		for i := range inputs {
			if value, ok := globalValueByIdx[i]; ok {
				globals = append(globals, &models.KeyValue{KeyID: ks[i].ID, SecretValue: value})
			}
		}
		if len(globals) > 0 {
			if err := insertValues(ctx, u, globals); err != nil {
				return err
			}
		}

		for _, k := range ks {
			k.SecretValue = secretfield.Placeholder
		}
		created = ks
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "keys created", "count", len(created))
	return created, nil
}

func (s *KeyService) GetKey(ctx context.Context, id int64) (*models.Key, error) {
	return s.rm.Keys(s.db).GetByID(ctx, id)
}

func (s *KeyService) GetKeyByReference(ctx context.Context, reference string) (*models.Key, error) {
	return s.rm.Keys(s.db).GetByReference(ctx, reference)
}

func (s *KeyService) ListKeys(ctx context.Context) ([]*models.Key, error) {
	return s.rm.Keys(s.db).List(ctx)
}

// UpdateKey changes a key's attributes. The kind is immutable: changing it
// would silently reroute where the secret lives.
func (s *KeyService) UpdateKey(ctx context.Context, id int64, upd KeyUpdate) (*models.Key, error) {
	var result *models.Key
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u := s.unit(tx)

		k, err := u.keys.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if upd.Name != nil {
			if *upd.Name == "" {
				return fmt.Errorf("%w: key name is required", common.ErrValidation)
			}
			k.Name = *upd.Name
		}
		if upd.Reference != nil {
			ref, err := assignReference(ctx, u.keys, *upd.Reference, k.Name, k.ID, nil)
			if err != nil {
				return err
			}
			k.Reference = ref
		}
		if upd.Note != nil {
			k.Note = *upd.Note
		}

		if err := u.keys.Update(ctx, k); err != nil {
			return err
		}

		if upd.SecretValue != nil {
			if err := storeKeySecret(ctx, u, k, *upd.SecretValue); err != nil {
				return err
			}
		}

		result = k
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "key updated", "reference", result.Reference)
	return result, nil
}

// storeKeySecret writes a key's own secret. For secret-kind keys the write is
// redirected to the global scoped value, creating it if needed, so resolution
// has a single source of truth.
func storeKeySecret(ctx context.Context, u unit, k *models.Key, value string) error {
	if k.Kind != models.KindSecret {
		return u.secrets.SetValues(ctx, k, map[string]string{models.SecretValueField: value})
	}

	existing, err := u.values.SelectByKey(ctx, k.ID)
	if err != nil {
		return err
	}
	for _, v := range existing {
		if v.IsGlobal() {
			return u.secrets.SetValues(ctx, v, map[string]string{models.SecretValueField: value})
		}
	}
	if value == "" {
		return nil
	}
	return insertValues(ctx, u, []*models.KeyValue{{KeyID: k.ID, SecretValue: value}})
}

// DeleteKeys removes keys together with their scoped values and every vault
// entry either of them owned.
func (s *KeyService) DeleteKeys(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u := s.unit(tx)

		// Collect value IDs before the cascade wipes the rows.
		vs, err := u.values.SelectByKeys(ctx, ids)
		if err != nil {
			return err
		}

		if err := u.keys.Delete(ctx, ids); err != nil {
			return err
		}
		if err := u.secrets.CascadeDelete(ctx, models.KeyOwnerType, ids); err != nil {
			return err
		}
		if len(vs) > 0 {
			return u.secrets.CascadeDelete(ctx, models.KeyValueOwnerType, valueIDs(vs))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "keys deleted", "count", len(ids))
	return nil
}

// DuplicateKey copies a key including its real stored secret and all scoped
// values with theirs. The copy gets a derived name and a fresh reference.
func (s *KeyService) DuplicateKey(ctx context.Context, id int64) (*models.Key, error) {
	var dup *models.Key
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u := s.unit(tx)

		orig, err := u.keys.GetByID(ctx, id)
		if err != nil {
			return err
		}

		copied, err := copystructure.Copy(orig)
		if err != nil {
			return fmt.Errorf("failed to copy key: %w", err)
		}
		k := copied.(*models.Key)
		k.ID = 0

		k.Name, err = copyName(ctx, u.keys, orig.Name)
		if err != nil {
			return err
		}
		k.Reference, err = assignReference(ctx, u.keys, "", k.Name, 0, nil)
		if err != nil {
			return err
		}

		// The masked placeholder must never be stored; fetch the real value.
		real, ok, err := u.secrets.RealValue(ctx, orig, models.SecretValueField)
		if err != nil {
			return err
		}
		batch := secretfield.NewCreateBatch()
		k.SecretValue = ""
		if ok && real != "" {
			k.SecretValue = batch.Add(real)
		}

		if err := u.keys.Insert(ctx, []*models.Key{k}); err != nil {
			return err
		}
		rowSecrets, err := u.keys.SelectSecretColumns(ctx, []int64{k.ID})
		if err != nil {
			return err
		}
		if err := u.secrets.FinalizeCreate(ctx, models.KeyOwnerType, rowSecrets, batch); err != nil {
			return err
		}
		if err := u.keys.ClearSecretColumns(ctx, []int64{k.ID}); err != nil {
			return err
		}
		k.SecretValue = secretfield.Placeholder

		origValues, err := u.values.SelectByKey(ctx, orig.ID)
		if err != nil {
			return err
		}
		if len(origValues) > 0 {
			reals, err := u.secrets.RealValues(ctx, models.KeyValueOwnerType,
				valueIDs(origValues), []string{models.SecretValueField})
			if err != nil {
				return err
			}

			copies := make([]*models.KeyValue, 0, len(origValues))
			for _, v := range origValues {
				cv, err := copystructure.Copy(v)
				if err != nil {
					return fmt.Errorf("failed to copy value: %w", err)
				}
				nv := cv.(*models.KeyValue)
				nv.ID = 0
				nv.KeyID = k.ID
				nv.SecretValue = reals[v.ID][models.SecretValueField]
				copies = append(copies, nv)
			}
			if err := insertValues(ctx, u, copies); err != nil {
				return err
			}
		}

		dup = k
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "key duplicated", "reference", dup.Reference)
	return dup, nil
}

// KeyRealValue returns the true secret behind a reference: scoped resolution
// for secret-kind keys, the key's own vault entry otherwise. An unknown
// reference is not an error.
func (s *KeyService) KeyRealValue(ctx context.Context, reference string, sc ResolveScope) (string, bool, error) {
	u := s.unit(s.db)

	k, err := u.keys.GetByReference(ctx, reference)
	if errors.Is(err, common.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if k.Kind == models.KindSecret {
		return resolveKeySecret(ctx, u, k, sc)
	}
	return u.secrets.RealValue(ctx, k, models.SecretValueField)
}

func copyName(ctx context.Context, repo keys.Repository, base string) (string, error) {
	name := base + " (copy)"
	for counter := 2; ; counter++ {
		exists, err := repo.NameExists(ctx, name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
		name = fmt.Sprintf("%s (copy %d)", base, counter)
	}
}

func validateKind(kind models.KeyKind) error {
	switch kind {
	case models.KindSSHKey, models.KindSecret:
		return nil
	default:
		return fmt.Errorf("%w: unknown key kind %q", common.ErrValidation, kind)
	}
}
