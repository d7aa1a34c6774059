// Package keyvalues provides the PostgreSQL-backed repository for scoped
// key values.
package keyvalues

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

// PostgresRepository implements scoped value storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores values and assigns generated IDs in insertion order.
func (r *PostgresRepository) Insert(ctx context.Context, values []*models.KeyValue) error {
	if len(values) == 0 {
		return nil
	}

	var args []any
	tuples := make([]string, 0, len(values))
	for _, v := range values {
		args = append(args, v.KeyID, nullID(v.ServerID), nullID(v.PartnerID), nullStr(v.SecretValue))
		n := len(args)
		tuples = append(tuples, fmt.Sprintf("($%d, $%d, $%d, $%d)", n-3, n-2, n-1, n))
	}

	query := fmt.Sprintf(`
		INSERT INTO key_values (key_id, server_id, partner_id, secret_value)
		VALUES %s
		RETURNING id
	`, strings.Join(tuples, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert key values: %w", err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i >= len(values) {
			return fmt.Errorf("unexpected extra row returned")
		}
		if err := rows.Scan(&values[i].ID); err != nil {
			return err
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if i != len(values) {
		return fmt.Errorf("expected %d generated ids, got %d", len(values), i)
	}
	return nil
}

const valueColumns = `id, key_id, server_id, partner_id, secret_value`

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.KeyValue, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+valueColumns+` FROM key_values WHERE id = $1`, id)
	v, err := scanValueRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return v, err
}

func (r *PostgresRepository) SelectByKey(ctx context.Context, keyID int64) ([]*models.KeyValue, error) {
	return r.selectWhere(ctx, `key_id = $1`, keyID)
}

func (r *PostgresRepository) SelectByKeys(ctx context.Context, keyIDs []int64) ([]*models.KeyValue, error) {
	if len(keyIDs) == 0 {
		return nil, nil
	}
	args := []any{}
	idList := int64Placeholders(&args, keyIDs)
	return r.selectWhere(ctx, fmt.Sprintf(`key_id IN (%s)`, idList), args...)
}

func (r *PostgresRepository) selectWhere(ctx context.Context, where string, args ...any) ([]*models.KeyValue, error) {
	query := `SELECT ` + valueColumns + ` FROM key_values WHERE ` + where + ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select key values: %w", err)
	}
	defer rows.Close()

	var result []*models.KeyValue
	for rows.Next() {
		v, err := scanValueRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update rewrites the scope columns. The secret-backed column belongs to
// the vault flow.
func (r *PostgresRepository) Update(ctx context.Context, value *models.KeyValue) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE key_values SET server_id = $1, partner_id = $2 WHERE id = $3
	`, nullID(value.ServerID), nullID(value.PartnerID), value.ID)
	if err != nil {
		return fmt.Errorf("failed to update key value: %w", err)
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
	query := fmt.Sprintf(`DELETE FROM key_values WHERE id IN (%s)`, idList)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete key values: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectSecretColumns(ctx context.Context, ids []int64) (map[int64]map[string]string, error) {
	result := make(map[int64]map[string]string)
	if len(ids) == 0 {
		return result, nil
	}

	args := []any{}
	idList := int64Placeholders(&args, ids)
	query := fmt.Sprintf(`SELECT id, secret_value FROM key_values WHERE id IN (%s)`, idList)

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

func (r *PostgresRepository) ClearSecretColumns(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{}
	idList := int64Placeholders(&args, ids)
	query := fmt.Sprintf(`UPDATE key_values SET secret_value = NULL WHERE id IN (%s)`, idList)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear secret columns: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanValueRow(row rowScanner) (*models.KeyValue, error) {
	var v models.KeyValue
	var serverID, partnerID sql.NullInt64
	var secretValue sql.NullString
	if err := row.Scan(&v.ID, &v.KeyID, &serverID, &partnerID, &secretValue); err != nil {
		return nil, err
	}
	if serverID.Valid {
		v.ServerID = &serverID.Int64
	}
	if partnerID.Valid {
		v.PartnerID = &partnerID.Int64
	}

	// Safety net, same as the key registry read path.
	v.SecretValue = secretfield.Placeholder
	return &v, nil
}

func nullID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullStr(s string) any {
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
