package vault

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGet_ReturnsOnlyExistingEntries(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"owner_id", "field_name", "data"}).
		AddRow(int64(1), "secret_value", "hunter2").
		AddRow(int64(3), "secret_value", "swordfish")

	mock.ExpectQuery(`SELECT owner_id, field_name, data FROM vault_entries`).
		WithArgs("tower.key", int64(1), int64(2), int64(3), "secret_value").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "tower.key", []int64{1, 2, 3}, []string{"secret_value"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[1]["secret_value"] != "hunter2" || got[3]["secret_value"] != "swordfish" {
		t.Fatalf("unexpected result: %v", got)
	}
	if _, ok := got[2]; ok {
		t.Fatalf("owner without entries must be absent, got %v", got[2])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGet_EmptyInputsShortCircuit(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	got, err := repo.Get(context.Background(), "tower.key", nil, []string{"secret_value"})
	if err != nil || len(got) != 0 {
		t.Fatalf("want empty result without query, got %v, %v", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no SQL expected: %v", err)
	}
}

func TestSet_SharedValueIsOneStatement(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// Three owners, one value: a single multi-row upsert.
	mock.ExpectExec(`INSERT INTO vault_entries .* ON CONFLICT \(owner_type, owner_id, field_name\)\s+DO UPDATE SET data = EXCLUDED\.data`).
		WithArgs("tower.key", "secret_value", "hunter2", int64(1), int64(2), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.Set(context.Background(), "tower.key", []int64{1, 2, 3},
		map[string]string{"secret_value": "hunter2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSet_EmptyValueDeletes(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM vault_entries WHERE owner_type = \$1 AND field_name = \$2 AND owner_id IN`).
		WithArgs("tower.key", "secret_value", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Set(context.Background(), "tower.key", []int64{7},
		map[string]string{"secret_value": ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSet_FieldsProcessedInSortedOrder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO vault_entries`).
		WithArgs("tower.server", "password", "pw", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO vault_entries`).
		WithArgs("tower.server", "ssh_key", "key material", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Set(context.Background(), "tower.server", []int64{1},
		map[string]string{"ssh_key": "key material", "password": "pw"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSet_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO vault_entries`).
		WithArgs("tower.key", "secret_value", "v", int64(1)).
		WillReturnError(errors.New("db is down"))

	err := repo.Set(context.Background(), "tower.key", []int64{1},
		map[string]string{"secret_value": "v"})
	if err == nil {
		t.Fatalf("expected error to propagate unchanged")
	}
}

func TestDeleteAll(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM vault_entries WHERE owner_type = \$1 AND owner_id IN`).
		WithArgs("tower.key", int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Zero rows affected is fine: cascade is best effort.
	if err := repo.DeleteAll(context.Background(), "tower.key", []int64{1, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
