// Package vault provides the PostgreSQL-backed vault store: pure key/value
// indirection keyed by (owner type, owner id, field name).
package vault

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cetmix/towervault/internal/dbx"
)

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns existing entries for the given owners and fields.
func (r *PostgresRepository) Get(ctx context.Context, ownerType string, ownerIDs []int64, fieldNames []string) (map[int64]map[string]string, error) {
	result := make(map[int64]map[string]string)
	if len(ownerIDs) == 0 || len(fieldNames) == 0 {
		return result, nil
	}

	args := []any{ownerType}
	idList := int64Placeholders(&args, ownerIDs)
	fieldList := stringPlaceholders(&args, fieldNames)

	query := fmt.Sprintf(`
		SELECT owner_id, field_name, data FROM vault_entries
		WHERE owner_type = $1 AND owner_id IN (%s) AND field_name IN (%s)
	`, idList, fieldList)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select vault entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ownerID int64
		var field, data string
		if err := rows.Scan(&ownerID, &field, &data); err != nil {
			return nil, err
		}
		if result[ownerID] == nil {
			result[ownerID] = make(map[string]string)
		}
		result[ownerID][field] = data
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Set upserts or deletes entries for all given owners. One statement per
// field: a delete when the value is empty, a multi-row upsert otherwise.
func (r *PostgresRepository) Set(ctx context.Context, ownerType string, ownerIDs []int64, vals map[string]string) error {
	if len(ownerIDs) == 0 || len(vals) == 0 {
		return nil
	}

	// Deterministic statement order.
	fields := make([]string, 0, len(vals))
	for field := range vals {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		value := vals[field]
		if value == "" {
			if err := r.deleteField(ctx, ownerType, ownerIDs, field); err != nil {
				return err
			}
			continue
		}
		if err := r.upsertField(ctx, ownerType, ownerIDs, field, value); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll removes every entry for the given owners.
func (r *PostgresRepository) DeleteAll(ctx context.Context, ownerType string, ownerIDs []int64) error {
	if len(ownerIDs) == 0 {
		return nil
	}

	args := []any{ownerType}
	idList := int64Placeholders(&args, ownerIDs)

	query := fmt.Sprintf(`DELETE FROM vault_entries WHERE owner_type = $1 AND owner_id IN (%s)`, idList)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete vault entries: %w", err)
	}
	return nil
}

func (r *PostgresRepository) deleteField(ctx context.Context, ownerType string, ownerIDs []int64, field string) error {
	args := []any{ownerType, field}
	idList := int64Placeholders(&args, ownerIDs)

	query := fmt.Sprintf(`DELETE FROM vault_entries WHERE owner_type = $1 AND field_name = $2 AND owner_id IN (%s)`, idList)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete vault entries: %w", err)
	}
	return nil
}

func (r *PostgresRepository) upsertField(ctx context.Context, ownerType string, ownerIDs []int64, field, value string) error {
	args := []any{ownerType, field, value}
	tuples := make([]string, 0, len(ownerIDs))
	for _, id := range ownerIDs {
		args = append(args, id)
		tuples = append(tuples, fmt.Sprintf("($1, $%d, $2, $3)", len(args)))
	}

	query := fmt.Sprintf(`
		INSERT INTO vault_entries (owner_type, owner_id, field_name, data)
		VALUES %s
		ON CONFLICT (owner_type, owner_id, field_name)
		DO UPDATE SET data = EXCLUDED.data
	`, strings.Join(tuples, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert vault entries: %w", err)
	}
	return nil
}

// int64Placeholders appends ids to args and returns "$n, $n+1, ..." for them.
func int64Placeholders(args *[]any, ids []int64) string {
	ph := make([]string, 0, len(ids))
	for _, id := range ids {
		*args = append(*args, id)
		ph = append(ph, fmt.Sprintf("$%d", len(*args)))
	}
	return strings.Join(ph, ", ")
}

func stringPlaceholders(args *[]any, vals []string) string {
	ph := make([]string, 0, len(vals))
	for _, v := range vals {
		*args = append(*args, v)
		ph = append(ph, fmt.Sprintf("$%d", len(*args)))
	}
	return strings.Join(ph, ", ")
}
