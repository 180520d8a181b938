package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store wraps the embedded database. Reads go through the connection pool;
// every write path serializes through writeMu and runs inside an explicit
// transaction, which keeps write-write races off the single-writer SQLite
// file.
type Store struct {
	db      *sqlx.DB
	writeMu sync.Mutex
}

// Open connects to the SQLite database at path, creating the parent
// directory and applying the schema if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=60000&_foreign_keys=on&_synchronous=NORMAL", path)
	conn, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(5)

	s := &Store{db: conn}
	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Printf("Database ready at %s", path)
	return s, nil
}

// NewWithDB wraps an existing connection without applying the schema. Used
// by tests that inject a mock database.
func NewWithDB(conn *sqlx.DB) *Store {
	return &Store{db: conn}
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// withWriteTx runs fn inside a transaction while holding the write mutex.
// fn returning an error rolls the whole transaction back.
func (s *Store) withWriteTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("db: rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
