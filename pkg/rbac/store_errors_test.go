package rbac

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// These tests drive the store against a mocked connection to reach failure
// paths an in-memory database cannot produce.

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestCreateRoleRollsBackOnInsertFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM roles WHERE role_type = $1 AND name = $2`)).
		WithArgs("global", "reporters").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO roles").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.CreateRole(context.Background(), &Role{
		Type:        RoleTypeGlobal,
		Name:        "reporters",
		Permissions: []string{"Job.Read"},
	})
	if err == nil {
		t.Fatal("expected insert failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBindSidSurfacesLookupFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM roles WHERE role_type = $1 AND name = $2`)).
		WithArgs("folder", "qa").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.BindSid(context.Background(), RoleTypeFolder, "qa", "alice")
	if err == nil {
		t.Fatal("expected lookup failure to surface")
	}
	var notFound *RoleNotFoundError
	if errors.As(err, &notFound) {
		t.Error("transport failure must not be reported as a missing role")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeleteRoleCommitFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM roles WHERE role_type = $1 AND name = $2`)).
		WithArgs("folder", "qa").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM role_sids WHERE role_id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM role_resources WHERE role_id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM roles WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("commit torn"))

	if err := store.DeleteRole(context.Background(), RoleTypeFolder, "qa"); err == nil {
		t.Fatal("expected commit failure to surface")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
