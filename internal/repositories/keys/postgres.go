// Package keys provides the PostgreSQL-backed key registry repository.
package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cetmix/towervault/internal/common"
	"github.com/cetmix/towervault/internal/dbx"
	"github.com/cetmix/towervault/internal/models"
	"github.com/cetmix/towervault/internal/secretfield"
)

// PostgresRepository implements key storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores keys and assigns generated IDs in insertion order. Secret
// columns hold whatever the caller put there (temp tokens during the
// two-phase create); they are cleared by ClearSecretColumns afterwards.
func (r *PostgresRepository) Insert(ctx context.Context, keys []*models.Key) error {
	if len(keys) == 0 {
		return nil
	}

	var args []any
	tuples := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, k.Name, k.Reference, string(k.Kind), nullString(k.SecretValue), nullString(k.Note))
		n := len(args)
		tuples = append(tuples, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", n-4, n-3, n-2, n-1, n))
	}

	query := fmt.Sprintf(`
		INSERT INTO keys (name, reference, kind, secret_value, note)
		VALUES %s
		RETURNING id
	`, strings.Join(tuples, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert keys: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(keys) {
			return fmt.Errorf("unexpected extra row returned")
		}
		if err := rows.Scan(&keys[i].ID); err != nil {
			return err
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if i != len(keys) {
		return fmt.Errorf("expected %d generated ids, got %d", len(keys), i)
	}
	return nil
}

const keyColumns = `id, name, reference, kind, secret_value, note`

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Key, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+keyColumns+` FROM keys WHERE id = $1`, id)
	return scanKey(row)
}

func (r *PostgresRepository) GetByReference(ctx context.Context, reference string) (*models.Key, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+keyColumns+` FROM keys WHERE reference = $1`, reference)
	return scanKey(row)
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Key, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+keyColumns+` FROM keys ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to select keys: %w", err)
	}
	defer rows.Close()

	var result []*models.Key
	for rows.Next() {
		k, err := scanKeyRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update rewrites name, reference, kind and note. The secret-backed column
// is never written here; it belongs to the vault flow.
func (r *PostgresRepository) Update(ctx context.Context, key *models.Key) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE keys SET name = $1, reference = $2, kind = $3, note = $4 WHERE id = $5
	`, key.Name, key.Reference, string(key.Kind), nullString(key.Note), key.ID)
	if err != nil {
		return fmt.Errorf("failed to update key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{}
	idList := int64Placeholders(&args, ids)
	query := fmt.Sprintf(`DELETE FROM keys WHERE id IN (%s)`, idList)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ReferenceExists(ctx context.Context, reference string, excludeID int64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM keys WHERE reference = $1 AND id <> $2`,
		reference, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check reference: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) NameExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM keys WHERE name = $1`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check name: %w", err)
	}
	return n > 0, nil
}

// SelectSecretColumns reads the raw secret-backed columns, bypassing the
// masking applied by ordinary reads.
func (r *PostgresRepository) SelectSecretColumns(ctx context.Context, ids []int64) (map[int64]map[string]string, error) {
	result := make(map[int64]map[string]string)
	if len(ids) == 0 {
		return result, nil
	}

	args := []any{}
	idList := int64Placeholders(&args, ids)
	query := fmt.Sprintf(`SELECT id, secret_value FROM keys WHERE id IN (%s)`, idList)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select secret columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var secretValue sql.NullString
		if err := rows.Scan(&id, &secretValue); err != nil {
			return nil, err
		}
		if secretValue.Valid && secretValue.String != "" {
			result[id] = map[string]string{models.SecretValueField: secretValue.String}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ClearSecretColumns resets the secret-backed columns to NULL in one bulk
// update so no temp token ever survives a create.
func (r *PostgresRepository) ClearSecretColumns(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{}
	idList := int64Placeholders(&args, ids)
	query := fmt.Sprintf(`UPDATE keys SET secret_value = NULL WHERE id IN (%s)`, idList)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear secret columns: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row *sql.Row) (*models.Key, error) {
	k, err := scanKeyRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return k, err
}

func scanKeyRow(row rowScanner) (*models.Key, error) {
	var k models.Key
	var kind string
	var secretValue, note sql.NullString
	if err := row.Scan(&k.ID, &k.Name, &k.Reference, &kind, &secretValue, &note); err != nil {
		return nil, err
	}
	k.Kind = models.KeyKind(kind)
	k.Note = note.String

	// The stored column is empty in practice; masking it unconditionally is
	// the safety net for anything that slipped through.
	k.SecretValue = secretfield.Placeholder
	return &k, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func int64Placeholders(args *[]any, ids []int64) string {
	ph := make([]string, 0, len(ids))
	for _, id := range ids {
		*args = append(*args, id)
		ph = append(ph, fmt.Sprintf("$%d", len(*args)))
	}
	return strings.Join(ph, ", ")
}
