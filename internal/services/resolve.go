package services

import (
	"context"
	"errors"

	"github.com/cetmix/towervault/internal/common"
	"github.com/cetmix/towervault/internal/models"
	"github.com/cetmix/towervault/internal/placeholder"
)

// ResolveScope pins resolution to an optional server and partner.
type ResolveScope struct {
	ServerID  *int64
	PartnerID *int64
}

// RenderOptions control inline token rendering.
type RenderOptions struct {
	Scope ResolveScope

	// SafeLiteral quotes substituted values and escapes line breaks so they
	// stay valid single-line literals in generated interpreter code.
	SafeLiteral bool
}

// scopePrecedence orders candidate matching from most to least specific.
// The first value a matcher accepts wins; later matchers never run for it.
var scopePrecedence = []func(v *models.KeyValue, sc ResolveScope) bool{
	// Exact server and partner combination.
	func(v *models.KeyValue, sc ResolveScope) bool {
		return sc.ServerID != nil && sc.PartnerID != nil && v.SameScope(sc.ServerID, sc.PartnerID)
	},
	// Server-only value.
	func(v *models.KeyValue, sc ResolveScope) bool {
		return sc.ServerID != nil && v.SameScope(sc.ServerID, nil)
	},
	// Partner-only value.
	func(v *models.KeyValue, sc ResolveScope) bool {
		return sc.PartnerID != nil && v.SameScope(nil, sc.PartnerID)
	},
	// Global fallback.
	func(v *models.KeyValue, sc ResolveScope) bool {
		return v.IsGlobal()
	},
}

// ResolveSecret resolves a reference to its real value under the given scope.
// An unknown reference or a key with no matching value is not an error; the
// second return is false.
func (s *KeyService) ResolveSecret(ctx context.Context, reference string, sc ResolveScope) (string, bool, error) {
	return resolveReference(ctx, s.unit(s.db), reference, sc)
}

func resolveReference(ctx context.Context, u unit, reference string, sc ResolveScope) (string, bool, error) {
	k, err := u.keys.GetByReference(ctx, reference)
	if errors.Is(err, common.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return resolveKeySecret(ctx, u, k, sc)
}

func resolveKeySecret(ctx context.Context, u unit, k *models.Key, sc ResolveScope) (string, bool, error) {
	values, err := u.values.SelectByKey(ctx, k.ID)
	if err != nil {
		return "", false, err
	}

	for _, match := range scopePrecedence {
		for _, v := range values {
			if match(v, sc) {
				return u.secrets.RealValue(ctx, v, models.SecretValueField)
			}
		}
	}

	// No scoped value at all; fall back to the key's own vault entry.
	return u.secrets.RealValue(ctx, k, models.SecretValueField)
}

// RenderCode substitutes every inline secret token in code with its resolved
// value and returns the rendered text plus the distinct literals that were
// substituted, for later redaction. Well-formed tokens that resolve to
// nothing render as placeholder.NoValue; malformed ones stay untouched.
func (s *KeyService) RenderCode(ctx context.Context, code string, opts RenderOptions) (string, []string, error) {
	u := s.unit(s.db)

	resolver := func(kind, reference string) (string, bool, error) {
		if kind != string(models.KindSecret) {
			return "", false, nil
		}
		return resolveReference(ctx, u, reference, opts.Scope)
	}

	return placeholder.Substitute(code, resolver, placeholder.Options{SafeLiteral: opts.SafeLiteral})
}

// Redact replaces every previously substituted literal in text with the
// spoiler. Safe to apply repeatedly.
func (s *KeyService) Redact(text string, literals []string) string {
	return placeholder.Redact(text, literals)
}

// KeyCode returns the inline token form of a key. Only secret-kind keys have
// one.
func KeyCode(k *models.Key) (string, bool) {
	if k.Kind != models.KindSecret {
		return "", false
	}
	return placeholder.Code(string(models.KindSecret), k.Reference), true
}
