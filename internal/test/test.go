// Package test holds shared helpers for package tests.
package test

import (
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/martiantux/redditarr/internal/db"
)

// NewMockDB returns a store backed by sqlmock for error injection tests.
func NewMockDB(t *testing.T) (*db.Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { mockDb.Close() })
	return db.NewWithDB(sqlx.NewDb(mockDb, "sqlmock")), mock
}

// NewTestStore opens a real SQLite database in a temp directory with the
// full schema applied, so queries with CTEs and aggregates run for real.
func NewTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
