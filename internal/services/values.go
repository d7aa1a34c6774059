package services

import (
	"context"
	"fmt"

	"github.com/cetmix/towervault/internal/common"
	"github.com/cetmix/towervault/internal/dbx"
	"github.com/cetmix/towervault/internal/models"
)

// ValueInput describes one scoped value to create.
type ValueInput struct {
	KeyID int64

	// ServerID and PartnerID pin the value to a scope axis; nil leaves the
	// axis unscoped. Both nil makes the global value.
	ServerID  *int64
	PartnerID *int64

	SecretValue string
}

// CreateValue creates a scoped value for a secret-kind key. At most one value
// may exist per (server, partner) combination, the global combination
// included.
func (s *KeyService) CreateValue(ctx context.Context, in ValueInput) (*models.KeyValue, error) {
	var created *models.KeyValue
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u := s.unit(tx)

		if err := validateValueScope(ctx, u, in.KeyID, in.ServerID, in.PartnerID, 0); err != nil {
			return err
		}

		v := &models.KeyValue{
			KeyID:       in.KeyID,
			ServerID:    in.ServerID,
			PartnerID:   in.PartnerID,
			SecretValue: in.SecretValue,
		}
		if err := insertValues(ctx, u, []*models.KeyValue{v}); err != nil {
			return err
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "key value created", "key_id", created.KeyID, "value_id", created.ID)
	return created, nil
}

// UpdateValueScope moves a value to a different (server, partner)
// combination, subject to the same uniqueness rule as creation.
func (s *KeyService) UpdateValueScope(ctx context.Context, id int64, serverID, partnerID *int64) (*models.KeyValue, error) {
	var result *models.KeyValue
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u := s.unit(tx)

		v, err := u.values.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := validateValueScope(ctx, u, v.KeyID, serverID, partnerID, v.ID); err != nil {
			return err
		}

		v.ServerID = serverID
		v.PartnerID = partnerID
		if err := u.values.Update(ctx, v); err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetValueSecret replaces the stored secret of one value. Empty clears it.
func (s *KeyService) SetValueSecret(ctx context.Context, id int64, value string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u := s.unit(tx)

		v, err := u.values.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return u.secrets.SetValues(ctx, v, map[string]string{models.SecretValueField: value})
	})
}

// DeleteValues removes scoped values and their vault entries.
func (s *KeyService) DeleteValues(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u := s.unit(tx)

		if err := u.values.Delete(ctx, ids); err != nil {
			return err
		}
		return u.secrets.CascadeDelete(ctx, models.KeyValueOwnerType, ids)
	})
}

func (s *KeyService) ListValues(ctx context.Context, keyID int64) ([]*models.KeyValue, error) {
	return s.rm.KeyValues(s.db).SelectByKey(ctx, keyID)
}

// validateValueScope enforces the two value rules: the key must be of the
// secret kind, and no other value of the key may cover the same (server,
// partner) combination. excludeID lets a value keep its own scope on update.
func validateValueScope(ctx context.Context, u unit, keyID int64, serverID, partnerID *int64, excludeID int64) error {
	k, err := u.keys.GetByID(ctx, keyID)
	if err != nil {
		return err
	}
	if k.Kind != models.KindSecret {
		return fmt.Errorf("%w: scoped values can only be defined for keys of kind %q",
			common.ErrValidation, models.KindSecret)
	}

	existing, err := u.values.SelectByKey(ctx, keyID)
	if err != nil {
		return err
	}
	for _, v := range existing {
		if v.ID == excludeID {
			continue
		}
		if v.SameScope(serverID, partnerID) {
			return fmt.Errorf("%w: %s", common.ErrValidation, scopeConflictMessage(serverID, partnerID))
		}
	}
	return nil
}

func scopeConflictMessage(serverID, partnerID *int64) string {
	switch {
	case serverID != nil && partnerID != nil:
		return "a value for this server and partner combination already exists"
	case serverID != nil:
		return "a value for this server already exists"
	case partnerID != nil:
		return "a value for this partner already exists"
	default:
		return "a global value already exists"
	}
}
