package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cetmix/towervault/internal/repositories/keys"
)

var (
	referenceValid   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	referenceInvalid = regexp.MustCompile(`[^a-z0-9_]`)
)

// sanitizeReference derives a storable reference from free-form input. Input
// that is already a valid reference passes through unchanged, case included.
// Anything else is lowercased, spaces become underscores and the remaining
// invalid characters are dropped. Input with nothing salvageable gets a
// generated fallback.
func sanitizeReference(source string) string {
	if referenceValid.MatchString(source) {
		return source
	}

	ref := strings.ToLower(strings.TrimSpace(source))
	ref = strings.ReplaceAll(ref, " ", "_")
	ref = referenceInvalid.ReplaceAllString(ref, "")
	if ref == "" {
		ref = "key_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return ref
}

// assignReference produces a unique reference for a key. The explicit
// reference wins when given, otherwise the key name is the source. excludeID
// lets a key keep its own reference on update. taken tracks references
// claimed earlier in the same batch, before they exist in the database.
func assignReference(ctx context.Context, repo keys.Repository, explicit, name string, excludeID int64, taken map[string]bool) (string, error) {
	source := explicit
	if source == "" {
		source = name
	}
	base := sanitizeReference(source)

	ref := base
	for counter := 2; ; counter++ {
		exists, err := repo.ReferenceExists(ctx, ref, excludeID)
		if err != nil {
			return "", err
		}
		if !exists && !taken[ref] {
			if taken != nil {
				taken[ref] = true
			}
			return ref, nil
		}
		ref = fmt.Sprintf("%s_%d", base, counter)
	}
}
